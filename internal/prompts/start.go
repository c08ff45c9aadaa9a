// Package prompts implements the MCP prompt handlers of ccmem.
//
// Prompts are user-triggered workflows (like slash commands) that tell
// the AI which tools to run and in what order. Unlike tools, which the AI
// calls on its own, prompts start from the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the ccmem-start MCP prompt.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("ccmem-start",
		mcp.WithPromptDescription(
			"Begin a working session with ccmem: load the project briefing, "+
				"check known landmines and pick up where the last session stopped.",
		),
		mcp.WithArgument("story",
			mcp.ArgumentDescription("Describe new work to plan it as a story with suggested tasks"),
		),
		mcp.WithArgument("task_id",
			mcp.ArgumentDescription("Task to focus on this session"),
		),
	)
}

// Handle processes the ccmem-start prompt request.
func (p *StartPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var story, taskID string
	if args := req.Params.Arguments; args != nil {
		story = args["story"]
		taskID = args["task_id"]
	}

	prime := "`ccmem-prime`"
	switch {
	case story != "":
		prime = fmt.Sprintf("`ccmem-prime` with storyDescription=%q", story)
	case taskID != "":
		prime = fmt.Sprintf("`ccmem-prime` with taskId=%s", taskID)
	}

	focus := "3. Recommend the next task to work on and ask me to confirm before starting"
	if taskID != "" {
		focus = fmt.Sprintf("3. Run `ccmem-dev` with taskId=%s and `start-work-on-task` once I confirm", taskID)
	}

	return &mcp.GetPromptResult{
		Description: "Start a ccmem session",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Let's start a working session.\n\n" +
						"Please:\n" +
						"1. Run " + prime + " and read the trauma alerts first\n" +
						"2. Before touching any area it mentions, run `find-relevant-risks` for that area\n" +
						focus + "\n" +
						"4. Whenever something fails in a way worth remembering, run `flag-landmine` with the keywords it is a risk for\n" +
						"5. When the task is done, run `record-task-result` with the files you edited",
				),
			},
		},
	}, nil
}
