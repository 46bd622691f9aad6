package conversations

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	"github.com/homefix-assistant/server/internal/agent/model"
	errx "github.com/homefix-assistant/server/internal/core/error"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	systemPrompt     string
}

func NewMessagesManager(conversationRepo model.ConversationRepository, systemPrompt string) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		systemPrompt:     systemPrompt,
	}
}

func (cm *MessagesManager) SystemPrompt() string { return cm.systemPrompt }

// =========== Session persistence ===========

// LoadSession restores a session by id. Unknown ids, empty ids and
// unreadable snapshots all start a fresh session.
func (cm *MessagesManager) LoadSession(ctx context.Context, sessionID string) *conversation.Session {
	if sessionID == "" {
		return conversation.NewSession("", cm.systemPrompt)
	}
	snap, err := cm.conversationRepo.LoadSnapshot(ctx, sessionID)
	if err != nil {
		if !errx.IsNotFound(err) {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load session; starting fresh")
		}
		return conversation.NewSession(sessionID, cm.systemPrompt)
	}
	logx.Debug().Str("session_id", sessionID).Int("turns", snap.TurnCount).Msg("session restored")
	return conversation.RestoreSession(snap)
}

func (cm *MessagesManager) SaveSession(ctx context.Context, sess *conversation.Session) error {
	if err := cm.conversationRepo.SaveSnapshot(ctx, sess.Snapshot()); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

func (cm *MessagesManager) ClearSession(ctx context.Context, sessionID string) error {
	return cm.conversationRepo.DeleteSnapshot(ctx, sessionID)
}

// =========== Function for Response ===========

// BuildResponseContext assembles the messages sent to the response model:
// the transcript with the facts summary and then the tone guidance inserted
// at index 1, so tone ends up first after the system prompt. Assistant
// tool-call messages of the current turn are placed before their results;
// results from earlier turns get a reconstructed call message so every tool
// result follows a matching call. turnStart is the transcript length before
// the current turn began; only results at or after it are matched against
// toolCallMsgs, since providers reuse call ids across turns.
func (cm *MessagesManager) BuildResponseContext(sess *conversation.Session, toneGuidance string, toolCallMsgs []*schema.Message, turnStart int) []*schema.Message {
	messages := spliceToolCalls(sess.State.Messages(), toolCallMsgs, turnStart)

	if summary := sess.State.FactsSummary(); summary != "" {
		messages = insertAt(messages, 1, schema.SystemMessage(summary))
	}
	if toneGuidance != "" {
		messages = insertAt(messages, 1, schema.SystemMessage(toneGuidance))
	}
	return messages
}

func spliceToolCalls(transcript, callMsgs []*schema.Message, turnStart int) []*schema.Message {
	// ids can repeat within a turn too, so owners are consumed in call order
	owners := make(map[string][]*schema.Message)
	for _, m := range callMsgs {
		if m == nil {
			continue
		}
		for _, tc := range m.ToolCalls {
			owners[tc.ID] = append(owners[tc.ID], m)
		}
	}

	out := make([]*schema.Message, 0, len(transcript)+len(callMsgs))
	placed := make(map[*schema.Message]bool)
	var orphan *schema.Message
	for i, m := range transcript {
		if m.Role != schema.Tool {
			orphan = nil
			out = append(out, m)
			continue
		}
		if i >= turnStart {
			if queue := owners[m.ToolCallID]; len(queue) > 0 {
				call := queue[0]
				owners[m.ToolCallID] = queue[1:]
				orphan = nil
				if !placed[call] {
					placed[call] = true
					out = append(out, call)
				}
				out = append(out, m)
				continue
			}
		}
		// consecutive unmatched results share one reconstructed call
		if orphan == nil {
			orphan = schema.AssistantMessage("", nil)
			out = append(out, orphan)
		}
		orphan.ToolCalls = append(orphan.ToolCalls, schema.ToolCall{
			ID:       m.ToolCallID,
			Type:     "function",
			Function: schema.FunctionCall{Name: m.ToolName, Arguments: "{}"},
		})
		out = append(out, m)
	}
	return out
}

func insertAt(msgs []*schema.Message, i int, m *schema.Message) []*schema.Message {
	if i > len(msgs) {
		i = len(msgs)
	}
	msgs = append(msgs, nil)
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = m
	return msgs
}
