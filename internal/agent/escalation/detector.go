// Package escalation decides when a conversation should be handed to a human.
package escalation

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/sentiment"
)

const (
	turnThreshold           = 8
	frustratedTurnThreshold = 3
	toolCallThreshold       = 5
	urgentTurnThreshold     = 4

	repeatWindow       = 3
	repeatOverlapRatio = 0.5
)

var repeatStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "how": {}, "what": {},
	"when": {}, "where": {}, "why": {}, "can": {}, "could": {}, "should": {},
	"i": {}, "my": {}, "me": {}, "you": {},
}

// Reason strings shown to the user.
const (
	ReasonCriticalSafety   = "Critical safety issue logged - immediate expert attention required"
	ReasonFrustrated       = "Customer appears frustrated after multiple exchanges"
	ReasonUrgent           = "Urgent issue not resolved after several exchanges"
	ReasonRepeatedQuestion = "User asking similar questions - AI may not be helping effectively"
)

// Conversation is the read-only view of a conversation the detector needs.
type Conversation interface {
	TurnCount() int
	ToolCallCount() int
	UserMessages() []*schema.Message
}

// Verdict is the outcome of one evaluation.
type Verdict struct {
	ShouldEscalate bool     `json:"should_escalate"`
	Reasons        []string `json:"reasons"`
	Severity       Severity `json:"severity"`
}

// Detector evaluates escalation rules with fixed thresholds.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Evaluate applies the rules in order. A logged critical safety issue wins
// outright; otherwise every firing rule adds a reason and can only raise the
// severity.
func (d *Detector) Evaluate(conv Conversation, reading sentiment.Reading, criticalSafetyLogged bool) Verdict {
	if criticalSafetyLogged {
		return Verdict{
			ShouldEscalate: true,
			Reasons:        []string{ReasonCriticalSafety},
			Severity:       Critical,
		}
	}

	v := Verdict{Reasons: []string{}, Severity: Low}
	raise := func(reason string, sev Severity) {
		v.Reasons = append(v.Reasons, reason)
		v.Severity = Max(v.Severity, sev)
	}

	turns := conv.TurnCount()
	if turns >= turnThreshold {
		raise(fmt.Sprintf("Conversation exceeds %d turns - may need expert guidance", turnThreshold), High)
	}
	if reading.IsFrustrated && turns >= frustratedTurnThreshold {
		raise(ReasonFrustrated, High)
	}
	if reading.IsUrgent && turns >= urgentTurnThreshold {
		raise(ReasonUrgent, Medium)
	}
	if calls := conv.ToolCallCount(); calls >= toolCallThreshold {
		raise(fmt.Sprintf("Complex issue requiring %d tool calls", calls), Medium)
	}
	if RepeatedQuestions(conv.UserMessages()) {
		raise(ReasonRepeatedQuestion, Medium)
	}

	v.ShouldEscalate = len(v.Reasons) > 0
	return v
}

// RepeatedQuestions reports whether the last three user messages share most
// of their vocabulary with their predecessor. The ratio is divided by the
// size of the earlier message's word set, not by the union.
func RepeatedQuestions(userMessages []*schema.Message) bool {
	if len(userMessages) < repeatWindow {
		return false
	}
	recent := userMessages[len(userMessages)-repeatWindow:]

	sets := make([]map[string]struct{}, len(recent))
	for i, m := range recent {
		sets[i] = contentWords(m.Content)
	}
	return overlap(sets[0], sets[1]) > repeatOverlapRatio ||
		overlap(sets[1], sets[2]) > repeatOverlapRatio
}

func contentWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, stop := repeatStopWords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

func overlap(earlier, later map[string]struct{}) float64 {
	shared := 0
	for w := range earlier {
		if _, ok := later[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(earlier), 1))
}
