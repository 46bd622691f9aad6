package model

import (
	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	"github.com/homefix-assistant/server/internal/agent/escalation"
)

// AppState stores per-turn state for the Eino Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState, so a new
//     AppState exists for every Invoke.
//   - All reads/writes happen inside Eino state handlers or compose.ProcessState,
//     which serialize access.
//   - Session points at the caller-owned session; the graph mutates it only
//     from those handlers.
type AppState struct {
	Session *conversation.Session

	ToneGuidance     string            // set by input converter from the user message
	TurnStart        int               // transcript length before this turn's user message
	Answered         []string          // follow-up questions the user message answered
	ToolCallMessages []*schema.Message // assistant messages carrying tool calls this turn
	ToolRounds       int               // tools node executions this turn
	ToolCalls        int               // individual tool results recorded this turn
	ToolLimitReached bool
	ToolCallIDSeq    int // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// TurnInput is one user message for a session.
type TurnInput struct {
	Session *conversation.Session `json:"-"`
	Message string                `json:"message"`
}

// TurnResult is everything the caller needs to render a turn.
type TurnResult struct {
	SessionID  string             `json:"session_id"`
	Reply      string             `json:"reply"`
	Verdict    escalation.Verdict `json:"verdict"`
	Advisory   string             `json:"advisory,omitempty"`
	Answered   []string           `json:"answered,omitempty"`
	Unanswered int                `json:"unanswered"`
	ToolCalls  int                `json:"tool_calls"`
	CostUSD    float64            `json:"cost_usd"`
}
