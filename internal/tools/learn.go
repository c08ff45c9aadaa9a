package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/adestefa/ccmem/internal/facts"
	"github.com/adestefa/ccmem/internal/store"
)

const (
	sampleFacts    = 3
	sampleValueLen = 60
	defaultRecall  = 10
)

// LearnTool handles the ccmem-prime-learn MCP tool.
type LearnTool struct {
	store *store.Store
}

// NewLearnTool creates a LearnTool.
func NewLearnTool(s *store.Store) *LearnTool {
	return &LearnTool{store: s}
}

// Definition returns the MCP tool definition for ccmem-prime-learn.
func (t *LearnTool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-prime-learn",
		mcp.WithDescription(
			"Learns key/value facts from text or a .md/.txt file. Markdown headers set the category; "+
				"'key: value' lines and '- **key**: value' bullets become facts. A fact learned again replaces the old one.",
		),
		mcp.WithString("input", mcp.Required(), mcp.Description("Literal text, or a path to a .md or .txt file")),
		mcp.WithString("category", mcp.Description("Category used until a header sets one (default: general)")),
		mcp.WithNumber("confidence", mcp.Description("Confidence 0-100 (default: 100)")),
	)
}

// Handle processes the ccmem-prime-learn tool call.
func (t *LearnTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := requiredString(req, "input")
	if err != nil {
		return errorResult("%v", err), nil
	}
	confidence, err := intArg(req, "confidence", 100)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if confidence < 0 || confidence > 100 {
		return errorResult("'confidence' must be between 0 and 100"), nil
	}

	content, source, err := facts.Load(input)
	if err != nil {
		return errorResult("%v", err), nil
	}
	parsed := facts.Parse(content, req.GetString("category", facts.DefaultCategory), source, confidence)
	if len(parsed) == 0 {
		return mcp.NewToolResultText("⚠️ No facts extracted from: " + input), nil
	}

	stored, err := facts.Save(ctx, t.store, parsed)
	if err != nil {
		return failure("store the learned facts", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Prime learned %d facts from %s\n\n", stored, source)
	fmt.Fprintf(&b, "📚 Categories learned: %s\n\n", strings.Join(facts.Categories(parsed), ", "))
	b.WriteString("💡 Sample facts:")
	for i, f := range parsed {
		if i == sampleFacts {
			break
		}
		fmt.Fprintf(&b, "\n• %s: %s...", f.Key, truncateRunes(f.Value, sampleValueLen))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── RecallTool ─────────────────────────────────────────────────────────────

// RecallTool handles the ccmem-recall-facts MCP tool.
type RecallTool struct {
	store *store.Store
}

// NewRecallTool creates a RecallTool.
func NewRecallTool(s *store.Store) *RecallTool {
	return &RecallTool{store: s}
}

// Definition returns the MCP tool definition for ccmem-recall-facts.
func (t *RecallTool) Definition() mcp.Tool {
	return mcp.NewTool("ccmem-recall-facts",
		mcp.WithDescription("Recalls learned facts by category or keyword, newest first."),
		mcp.WithString("query", mcp.Description("Text to look for in keys and values")),
		mcp.WithString("category", mcp.Description("Only facts in this category")),
		mcp.WithNumber("limit", mcp.Description("Maximum facts returned (default: 10)")),
	)
}

// Handle processes the ccmem-recall-facts tool call.
func (t *RecallTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, err := intArg(req, "limit", defaultRecall)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if limit <= 0 {
		limit = defaultRecall
	}
	found, err := t.store.RecallFacts(ctx, store.FactQuery{
		Category: req.GetString("category", ""),
		Query:    req.GetString("query", ""),
		Limit:    limit,
	})
	if err != nil {
		return failure("recall facts", err), nil
	}
	if len(found) == 0 {
		return mcp.NewToolResultText("🤔 Prime doesn't recall any facts matching your query"), nil
	}

	var order []string
	byCategory := make(map[string][]store.Fact)
	for _, f := range found {
		if _, ok := byCategory[f.Category]; !ok {
			order = append(order, f.Category)
		}
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧠 **Prime's Memory Recall** (%d facts)\n\n", len(found))
	for _, cat := range order {
		group := byCategory[cat]
		fmt.Fprintf(&b, "**%s** (%d facts):\n", strings.ToUpper(cat), len(group))
		for _, f := range group {
			fmt.Fprintf(&b, "• **%s**: %s", f.Key, f.Value)
			if f.Confidence < 100 {
				fmt.Fprintf(&b, " (%d%% confident)", f.Confidence)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
