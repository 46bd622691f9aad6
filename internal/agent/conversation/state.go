package conversation

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// State is the transcript, fact store and counters of a single conversation.
// It is not safe for concurrent use; each session owns its own State.
type State struct {
	systemPrompt  string
	messages      []*schema.Message
	facts         map[string]string
	factKeys      []string // insertion order, used for display only
	turnCount     int
	toolCallCount int
}

// NewState returns a state seeded with the system prompt as its only message.
func NewState(systemPrompt string) *State {
	s := &State{systemPrompt: systemPrompt}
	s.Reset()
	return s
}

// Reset discards transcript, facts and counters, leaving the seed message.
func (s *State) Reset() {
	s.messages = []*schema.Message{schema.SystemMessage(s.systemPrompt)}
	s.facts = make(map[string]string)
	s.factKeys = nil
	s.turnCount = 0
	s.toolCallCount = 0
}

// Append adds a message with the given role. Blank content is dropped.
// User messages advance the turn counter.
func (s *State) Append(role schema.RoleType, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	s.messages = append(s.messages, &schema.Message{Role: role, Content: content})
	if role == schema.User {
		s.turnCount++
	}
}

// AppendToolResult records a tool result. It always counts as a tool call,
// even when content is empty.
func (s *State) AppendToolResult(callID, name, content string) {
	s.messages = append(s.messages, &schema.Message{
		Role:       schema.Tool,
		Content:    content,
		ToolCallID: callID,
		ToolName:   name,
	})
	s.toolCallCount++
}

// SetFact stores the trimmed value under key. Blank values are ignored.
func (s *State) SetFact(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if _, ok := s.facts[key]; !ok {
		s.factKeys = append(s.factKeys, key)
	}
	s.facts[key] = value
}

// Fact returns the value stored under key.
func (s *State) Fact(key string) (string, bool) {
	v, ok := s.facts[key]
	return v, ok
}

// Facts returns a copy of all facts.
func (s *State) Facts() map[string]string {
	out := make(map[string]string, len(s.facts))
	for k, v := range s.facts {
		out[k] = v
	}
	return out
}

// FactKeys returns fact keys in the order they were first set.
func (s *State) FactKeys() []string {
	return append([]string(nil), s.factKeys...)
}

// FactsSummary renders the facts as a bullet block, or "" when there are none.
func (s *State) FactsSummary() string {
	if len(s.facts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Confirmed Information:\n")
	for _, k := range s.factKeys {
		b.WriteString("  • " + k + ": " + s.facts[k] + "\n")
	}
	return strings.TrimSpace(b.String())
}

// Messages returns a copy of the transcript in chronological order.
func (s *State) Messages() []*schema.Message {
	return copyMessages(s.messages, nil)
}

// UserMessages returns copies of the user-authored messages in order.
func (s *State) UserMessages() []*schema.Message {
	return copyMessages(s.messages, func(m *schema.Message) bool { return m.Role == schema.User })
}

func (s *State) SystemPrompt() string { return s.systemPrompt }
func (s *State) TurnCount() int       { return s.turnCount }
func (s *State) ToolCallCount() int   { return s.toolCallCount }

func copyMessages(msgs []*schema.Message, keep func(*schema.Message) bool) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil || (keep != nil && !keep(m)) {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	return out
}
