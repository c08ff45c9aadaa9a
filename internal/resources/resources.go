// Package resources implements the MCP resource handlers of ccmem.
//
// Resources provide read-only JSON the host can pull into context. They
// use ccmem:// URIs.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

// Resource URIs.
const (
	SummaryURI = "ccmem://project/summary"
	RisksURI   = "ccmem://risks"
)

// Handler serves the ccmem resources.
type Handler struct {
	store *store.Store
	risks *risk.Correlator
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(s *store.Store, c *risk.Correlator) *Handler {
	return &Handler{store: s, risks: c}
}

// Summary is the body of the project summary resource.
type Summary struct {
	Counts    store.Counts                      `json:"counts"`
	Knowledge map[store.Section][]store.KeyValue `json:"knowledge"`
}

// RiskReport is the body of the risks resource.
type RiskReport struct {
	Risks    []store.Risk       `json:"risks"`
	Dangling []risk.DanglingRef `json:"dangling"`
}

// SummaryResource returns the MCP resource definition for the project summary.
func (h *Handler) SummaryResource() mcp.Resource {
	return mcp.NewResource(
		SummaryURI,
		"ccmem Project Summary",
		mcp.WithResourceDescription("Record counts and every project knowledge section"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSummary returns the project summary as JSON.
func (h *Handler) HandleSummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	n, err := h.store.Counts(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	out := Summary{Counts: n, Knowledge: make(map[store.Section][]store.KeyValue, len(store.Sections))}
	for _, sec := range store.Sections {
		kv, err := h.store.Info(ctx, sec)
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		if kv == nil {
			kv = []store.KeyValue{}
		}
		out.Knowledge[sec] = kv
	}
	return jsonResource(req.Params.URI, out)
}

// RisksResource returns the MCP resource definition for the risk index.
func (h *Handler) RisksResource() mcp.Resource {
	return mcp.NewResource(
		RisksURI,
		"ccmem Risk Index",
		mcp.WithResourceDescription("Risk keywords with their landmine ids, plus references to landmines that no longer exist"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRisks returns the risk index as JSON.
func (h *Handler) HandleRisks(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	risks, err := h.store.Risks(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	dangling, err := h.risks.Verify(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	out := RiskReport{Risks: risks, Dangling: dangling}
	if out.Risks == nil {
		out.Risks = []store.Risk{}
	}
	if out.Dangling == nil {
		out.Dangling = []risk.DanglingRef{}
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
