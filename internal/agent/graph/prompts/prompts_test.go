package prompts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefix-assistant/server/internal/agent/model"
)

func TestRenderSystemPrompt_Default(t *testing.T) {
	out, err := RenderSystemPrompt(context.Background(), model.PromptConfig{})
	require.NoError(t, err)
	assert.Contains(t, out, "book_maintenance_appointment")
	assert.Contains(t, out, "check_booking_availability")
	assert.NotContains(t, out, "{{")
}

func TestRenderSystemPrompt_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.txt")
	require.NoError(t, os.WriteFile(path, []byte("Be brief. Escalate with {{.EscalateTool}}."), 0o644))

	out, err := RenderSystemPrompt(context.Background(), model.PromptConfig{SystemPromptPath: path})
	require.NoError(t, err)
	assert.Equal(t, "Be brief. Escalate with escalate_to_human_representative.", out)

	_, err = RenderSystemPrompt(context.Background(), model.PromptConfig{SystemPromptPath: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}

func TestFactPrompt_Messages(t *testing.T) {
	fp, err := LoadFactPrompt(model.PromptConfig{})
	require.NoError(t, err)

	msgs, err := fp.Messages(context.Background(), "My name is {Sam} and the boiler is broken")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, `{"customer_name"`)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "My name is {Sam} and the boiler is broken", msgs[1].Content)
}
