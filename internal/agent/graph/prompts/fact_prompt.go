package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/model"
)

//go:embed template/fact_prompt.txt
var defaultFactPrompt string

// FactPrompt holds the loaded fact-extraction instructions.
type FactPrompt struct {
	system string
}

func LoadFactPrompt(cfg model.PromptConfig) (*FactPrompt, error) {
	text, err := loadTemplate(cfg.FactPromptPath, defaultFactPrompt)
	if err != nil {
		return nil, err
	}
	return &FactPrompt{system: text}, nil
}

// Messages renders the system instructions and the single user message.
// The instructions go through a placeholder so their JSON braces are never
// treated as template variables.
func (p *FactPrompt) Messages(ctx context.Context, userMessage string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
		schema.MessagesPlaceholder("user_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(p.system)},
		"user_messages":   []*schema.Message{schema.UserMessage(userMessage)},
	})
	if err != nil {
		return nil, fmt.Errorf("fact prompt callbacks: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("fact prompt callbacks: unexpected %d messages", len(msgs))
	}
	return msgs, nil
}
