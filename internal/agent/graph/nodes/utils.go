package nodes

import (
	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/model"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

// Graph node keys
const (
	NodeInputConverter    = "InputConverter"
	NodeFactExtractor     = "FactExtractor"
	NodeResponseAssembler = "ResponseAssembler"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolExecutor      = "ToolExecutor"
	NodeToolRecorder      = "ToolRecorder"
	NodeFinalizer         = "Finalizer"
)

const DefaultMaxToolRounds = 2

// ===== Small helpers to keep handlers simple/readable =====
// normalizeMaxToolRounds returns a sane default when the provided value is invalid.
func normalizeMaxToolRounds(n int) int {
	if n <= 0 {
		return DefaultMaxToolRounds
	}
	return n
}

// incrementToolRoundAndCheck counts a tools-node execution and marks the
// state once the round budget is spent. Returns true when marked now.
func incrementToolRoundAndCheck(state *model.AppState, max int) bool {
	max = normalizeMaxToolRounds(max)
	state.ToolRounds++
	if !state.ToolLimitReached && state.ToolRounds >= max {
		state.ToolLimitReached = true
		return true
	}
	return false
}

// recordUsage adds the model call cost to the running turn total.
func recordUsage(state *model.AppState, node, modelName string, out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	state.TotalCostUSD += totalC

	logx.Debug().
		Str("session_id", sessionID(state)).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", state.TotalCostUSD).
		Msg("LLM usage")
}

func sessionID(state *model.AppState) string {
	if state == nil || state.Session == nil {
		return ""
	}
	return state.Session.ID
}
