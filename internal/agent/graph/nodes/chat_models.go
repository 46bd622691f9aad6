package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/homefix-assistant/server/internal/agent/model"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey     string
	BaseURL    string
	FactConfig *model.FactModelConfig
	RespConfig *model.ResponseModelConfig
}

// ChatModels holds the fact-extraction and response chat models. Response
// must support tool binding; Fact is only ever called with plain messages.
type ChatModels struct {
	Fact              einomodel.BaseChatModel
	Response          einomodel.ChatModel
	FactModelName     string
	ResponseModelName string
}

// NewChatModels creates both Gemini chat models over one shared client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.FactConfig == nil || config.RespConfig == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Facts must be deterministic JSON; no thinking budget
	chatModelFact, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.FactConfig.Model,
		Temperature: &config.FactConfig.Temperature,
		MaxTokens:   &config.FactConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating fact model")
		return nil, fmt.Errorf("error creating fact model: %w", err)
	}

	chatModelResponse, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RespConfig.Model,
		Temperature: &config.RespConfig.Temperature,
		MaxTokens:   &config.RespConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, fmt.Errorf("error creating Response model: %w", err)
	}

	return &ChatModels{
		Fact:              chatModelFact,
		Response:          chatModelResponse,
		FactModelName:     config.FactConfig.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}

// BindToolsToResponseModel binds tools to the response chat model
func (cm *ChatModels) BindToolsToResponseModel(ctx context.Context, tools []*schema.ToolInfo) error {
	if err := cm.Response.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}

	logx.Debug().Int("tool_count", len(tools)).Msg("Successfully bound tools to response model")
	return nil
}
