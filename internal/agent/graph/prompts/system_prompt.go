package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/graph/tools"
	"github.com/homefix-assistant/server/internal/agent/model"
)

//go:embed template/system_prompt.txt
var defaultSystemPrompt string

// RenderSystemPrompt renders the assistant system prompt via Eino prompt
// component so prompt callbacks fire. A configured file replaces the
// embedded template; it may reference the same tool name variables.
func RenderSystemPrompt(ctx context.Context, cfg model.PromptConfig) (string, error) {
	text, err := loadTemplate(cfg.SystemPromptPath, defaultSystemPrompt)
	if err != nil {
		return "", err
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(text),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"BookTool":              tools.ToolBookAppointment,
		"LogIssueTool":          tools.ToolLogIssue,
		"TicketTool":            tools.ToolCreateTicket,
		"EscalateTool":          tools.ToolEscalateToHuman,
		"CheckAvailabilityTool": tools.ToolCheckAvailability,
	})
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}

func loadTemplate(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", path, err)
	}
	return string(b), nil
}
