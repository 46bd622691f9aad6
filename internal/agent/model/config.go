package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL   string `envconfig:"CONVERSATION_TTL" default:"24h"`
	Tools struct {
		Enabled   bool `envconfig:"CONVERSATION_TOOLS_ENABLED" default:"true"`
		MaxRounds int  `envconfig:"CONVERSATION_TOOL_MAX_ROUNDS" default:"2"`
	}
}

// SessionTTL parses TTL. An empty value means snapshots never expire.
func (c ConversationConfig) SessionTTL() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(c.TTL)
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type FactModelConfig struct {
	Model       string  `envconfig:"FACT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"FACT_MAX_TOKENS" default:"500"`
	Temperature float32 `envconfig:"FACT_TEMPERATURE" default:"0"`
}

// PromptConfig points at optional prompt files. Empty paths use the
// embedded defaults.
type PromptConfig struct {
	SystemPromptPath string `envconfig:"SYSTEM_PROMPT_PATH"`
	FactPromptPath   string `envconfig:"FACT_PROMPT_PATH"`
}

type StoreConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"file"`
	DataDir string `envconfig:"STORE_DATA_DIR" default:"maintenance_data"`
}
