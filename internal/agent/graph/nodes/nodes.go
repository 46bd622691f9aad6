package nodes

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	"github.com/homefix-assistant/server/internal/agent/escalation"
	"github.com/homefix-assistant/server/internal/agent/graph/conversations"
	"github.com/homefix-assistant/server/internal/agent/graph/parsers"
	"github.com/homefix-assistant/server/internal/agent/graph/prompts"
	"github.com/homefix-assistant/server/internal/agent/model"
	"github.com/homefix-assistant/server/internal/agent/repo"
	"github.com/homefix-assistant/server/internal/agent/sentiment"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

// NewInputConverterPreHandler binds the caller's session to the turn state.
func NewInputConverterPreHandler() func(context.Context, model.TurnInput, *model.AppState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.AppState) (model.TurnInput, error) {
		if in.Session == nil {
			return in, fmt.Errorf("turn input has no session")
		}
		s.Session = in.Session
		s.ToolRounds = 0
		s.ToolCalls = 0
		s.ToolLimitReached = false
		s.ToolCallIDSeq = 0
		s.ToolCallMessages = nil
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode records the user message, classifies its tone and
// resolves any follow-up questions it answers.
func NewInputConverterNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.TurnInput) (string, error) {
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			sess := state.Session
			state.TurnStart = len(sess.State.Messages())
			sess.State.Append(schema.User, input.Message)

			reading := sentiment.Classify(input.Message)
			sess.LastSentiment = reading
			state.ToneGuidance = sentiment.Guidance(reading)
			state.Answered = sess.FollowUps.CheckAnswered(input.Message)

			logx.Debug().
				Str("session_id", sess.ID).
				Str("tone", string(reading.Tone)).
				Int("answered", len(state.Answered)).
				Int("turn", sess.State.TurnCount()).
				Msg("User message recorded")
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		return input.Message, nil
	})
}

// NewFactExtractorNode asks the fact model for facts stated in the message.
// Any failure yields no facts and never fails the turn.
func NewFactExtractorNode(cm einomodel.BaseChatModel, fp *prompts.FactPrompt, modelName string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, message string) ([]conversation.Fact, error) {
		msgs, err := fp.Messages(ctx, message)
		if err != nil {
			logx.Warn().Err(err).Str("node", NodeFactExtractor).Msg("Fact prompt render failed")
			return []conversation.Fact{}, nil
		}

		out, err := cm.Generate(ctx, msgs)
		if err != nil {
			logx.Warn().Err(err).Str("node", NodeFactExtractor).Msg("Fact extraction failed; continuing without facts")
			return []conversation.Fact{}, nil
		}

		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			recordUsage(state, NodeFactExtractor, modelName, out)
			return nil
		})
		return parsers.ParseFacts(out.Content), nil
	})
}

// NewFactExtractorPostHandler stores extracted facts on the session.
func NewFactExtractorPostHandler() func(context.Context, []conversation.Fact, *model.AppState) ([]conversation.Fact, error) {
	return func(ctx context.Context, out []conversation.Fact, state *model.AppState) ([]conversation.Fact, error) {
		for _, f := range out {
			state.Session.State.SetFact(f.Key, f.Value)
		}
		if len(out) > 0 {
			logx.Debug().Str("session_id", state.Session.ID).Int("facts", len(out)).Msg("Facts extracted")
		}
		return out, nil
	}
}

// NewResponseAssemblerNode builds the first response-model context of the turn.
func NewResponseAssemblerNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ []conversation.Fact) ([]*schema.Message, error) {
		return assembleContext(ctx, mm)
	})
}

func assembleContext(ctx context.Context, mm *conversations.MessagesManager) ([]*schema.Message, error) {
	var messages []*schema.Message
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		messages = mm.BuildResponseContext(state.Session, state.ToneGuidance, state.ToolCallMessages, state.TurnStart)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access state: %w", err)
	}
	return messages, nil
}

// NewResponseChatModelPreHandler appends the wrap-up notice once the tool
// round budget is spent.
func NewResponseChatModelPreHandler(maxToolRounds int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		if state.ToolLimitReached {
			maxToolRounds = normalizeMaxToolRounds(maxToolRounds)
			wrapUp := schema.SystemMessage(fmt.Sprintf(
				"SYSTEM NOTICE: You have reached the maximum number of tool rounds (%d) for this message. "+
					"Reply to the customer now using the tool results you already have. Do not call more tools.",
				maxToolRounds,
			))
			in = append(in, wrapUp)
		}

		logx.Debug().Str("session_id", sessionID(state)).Int("messages", len(in)).Msg("AI thinking...")
		return in, nil
	}
}

// NewResponseChatModelPostHandler accounts cost, normalizes tool call ids and
// keeps any text that accompanies a tool call.
func NewResponseChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("response model returned no message")
		}
		recordUsage(state, NodeResponseChatModel, modelName, out)

		// Some providers omit tool_call ids
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		if len(out.ToolCalls) == 0 || state.ToolLimitReached {
			logx.Debug().Str("session_id", sessionID(state)).Msg("AI response ready")
			return out, nil
		}

		state.Session.State.Append(schema.Assistant, out.Content)
		call := &schema.Message{
			Role:      schema.Assistant,
			ToolCalls: append([]schema.ToolCall(nil), out.ToolCalls...),
		}
		state.ToolCallMessages = append(state.ToolCallMessages, call)

		logx.Debug().Str("session_id", sessionID(state)).Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		return out, nil
	}
}

// NewToolExecutorCondition routes tool calls to the tools node unless the
// round budget is spent.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to finalizer")
			return NodeFinalizer, nil
		}
		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		return NodeFinalizer, nil
	}
}

// NewToolExecutorPreHandler counts tool rounds against the budget.
func NewToolExecutorPreHandler(maxToolRounds int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		if incrementToolRoundAndCheck(state, maxToolRounds) {
			logx.Warn().
				Int("tool_rounds", state.ToolRounds).
				Int("max_tool_rounds", normalizeMaxToolRounds(maxToolRounds)).
				Str("session_id", sessionID(state)).
				Msg("Tool round limit reached - model will be asked to wrap up")
		}
		return in, nil
	}
}

// NewToolRecorderNode appends tool results to the transcript and rebuilds the
// response context for the next model call.
func NewToolRecorderNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, results []*schema.Message) ([]*schema.Message, error) {
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			for _, m := range results {
				if m == nil {
					continue
				}
				name := m.ToolName
				if name == "" {
					name = toolNameFor(state.ToolCallMessages, m.ToolCallID)
				}
				state.Session.State.AppendToolResult(m.ToolCallID, name, m.Content)
				state.ToolCalls++

				ev := logx.Debug()
				if r, err := model.ParseToolResult(m.Content); err == nil {
					ev = ev.Str("tool_status", string(r.Status))
				}
				ev.Str("session_id", state.Session.ID).Str("tool_name", name).Msg("Tool result recorded")
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return assembleContext(ctx, mm)
	})
}

func toolNameFor(callMsgs []*schema.Message, id string) string {
	for _, m := range callMsgs {
		for _, tc := range m.ToolCalls {
			if tc.ID == id {
				return tc.Function.Name
			}
		}
	}
	return ""
}

// NewFinalizerNode records the reply, evaluates escalation and builds the
// turn result.
func NewFinalizerNode(records *repo.Records, detector *escalation.Detector) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, out *schema.Message) (*model.TurnResult, error) {
		critical, err := records.HasCriticalTicket(ctx)
		if err != nil {
			logx.Warn().Err(err).Msg("Failed to read tickets; assuming no critical safety issue")
		}

		result := &model.TurnResult{}
		err = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			sess := state.Session
			reply := out.Content
			sess.State.Append(schema.Assistant, reply)
			sess.FollowUps.RecordResponse(reply)

			verdict := detector.Evaluate(sess.State, sess.LastSentiment, critical)

			result.SessionID = sess.ID
			result.Reply = strings.TrimSpace(reply)
			result.Verdict = verdict
			result.Answered = state.Answered
			result.Unanswered = sess.FollowUps.UnansweredCount()
			result.ToolCalls = state.ToolCalls
			result.CostUSD = state.TotalCostUSD
			if verdict.ShouldEscalate {
				result.Advisory = escalation.Message(verdict.Severity)
				logx.Warn().
					Str("session_id", sess.ID).
					Str("severity", verdict.Severity.String()).
					Strs("reasons", verdict.Reasons).
					Msg("Escalation recommended")
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return result, nil
	})
}
