package conversation

import (
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/homefix-assistant/server/internal/agent/sentiment"
)

// Session bundles everything one conversation owns. A Session must never be
// shared between users; create one per conversation.
type Session struct {
	ID            string
	State         *State
	FollowUps     *FollowUpTracker
	LastSentiment sentiment.Reading
}

// NewSession creates a session seeded with systemPrompt. An empty id gets a
// fresh UUID.
func NewSession(id, systemPrompt string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:            id,
		State:         NewState(systemPrompt),
		FollowUps:     NewFollowUpTracker(),
		LastSentiment: sentiment.Calm(),
	}
}

// Reset starts the conversation over while keeping the session id.
func (s *Session) Reset() {
	s.State.Reset()
	s.FollowUps.Reset()
	s.LastSentiment = sentiment.Calm()
}

// Fact is a key/value pair in insertion order.
type Fact struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Snapshot is the persisted form of a Session.
type Snapshot struct {
	ID                string            `json:"id"`
	SystemPrompt      string            `json:"system_prompt"`
	Messages          []*schema.Message `json:"messages"`
	Facts             []Fact            `json:"facts"`
	TurnCount         int               `json:"turn_count"`
	ToolCallCount     int               `json:"tool_call_count"`
	PendingQuestions  []string          `json:"pending_questions"`
	AnsweredQuestions []string          `json:"answered_questions"`
	LastSentiment     sentiment.Reading `json:"last_sentiment"`
	SavedAt           time.Time         `json:"saved_at"`
}

func (s *Session) Snapshot() *Snapshot {
	facts := make([]Fact, 0, len(s.State.factKeys))
	for _, k := range s.State.factKeys {
		facts = append(facts, Fact{Key: k, Value: s.State.facts[k]})
	}
	return &Snapshot{
		ID:                s.ID,
		SystemPrompt:      s.State.systemPrompt,
		Messages:          s.State.Messages(),
		Facts:             facts,
		TurnCount:         s.State.turnCount,
		ToolCallCount:     s.State.toolCallCount,
		PendingQuestions:  s.FollowUps.Pending(),
		AnsweredQuestions: s.FollowUps.Answered(),
		LastSentiment:     s.LastSentiment,
		SavedAt:           time.Now().UTC(),
	}
}

// RestoreSession rebuilds a Session from a snapshot. A snapshot without
// messages is treated as freshly created.
func RestoreSession(snap *Snapshot) *Session {
	sess := NewSession(snap.ID, snap.SystemPrompt)
	if len(snap.Messages) > 0 {
		sess.State.messages = copyMessages(snap.Messages, nil)
	}
	for _, f := range snap.Facts {
		sess.State.SetFact(f.Key, f.Value)
	}
	sess.State.turnCount = snap.TurnCount
	sess.State.toolCallCount = snap.ToolCallCount
	sess.FollowUps.pending = append([]string(nil), snap.PendingQuestions...)
	sess.FollowUps.answered = append([]string(nil), snap.AnsweredQuestions...)
	if snap.LastSentiment.Tone != "" {
		sess.LastSentiment = snap.LastSentiment
	}
	return sess
}
