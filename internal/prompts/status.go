package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the ccmem-status MCP prompt.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("ccmem-status",
		mcp.WithPromptDescription(
			"Check the health of the project memory: progress, open defects, "+
				"top risk areas and integrity issues.",
		),
	)
}

// Handle processes the ccmem-status prompt request.
func (p *StatusPrompt) Handle(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "ccmem Project Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `ccmem-list` and `ccmem-doc` to check the project memory.\n\n" +
						"Then:\n" +
						"1. Summarise story progress and what is in flight\n" +
						"2. Call out open defects and the riskiest areas by landmine count\n" +
						"3. List any integrity issues, including risks pointing at missing landmines\n" +
						"4. Tell me exactly what I should do next",
				),
			},
		},
	}, nil
}
