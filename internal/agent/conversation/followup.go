package conversation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minQuestionLen = 10 // characters; questions must be longer than this after trimming
	keyWordCount   = 3
)

var questionPattern = regexp.MustCompile(`[^.!?]*\?`)

// questionStopWords are skipped when picking the key words of a question.
var questionStopWords = map[string]struct{}{
	"is": {}, "are": {}, "the": {}, "a": {}, "an": {},
	"when": {}, "where": {}, "what": {}, "how": {},
}

// FollowUpTracker remembers questions the assistant asked and notices when
// the user appears to address them.
type FollowUpTracker struct {
	pending  []string
	answered []string
}

func NewFollowUpTracker() *FollowUpTracker {
	return &FollowUpTracker{}
}

// ExtractQuestions returns the "?"-terminated fragments of text that are
// longer than ten characters once trimmed.
func ExtractQuestions(text string) []string {
	var out []string
	for _, q := range questionPattern.FindAllString(text, -1) {
		q = strings.TrimSpace(q)
		if utf8.RuneCountInString(q) > minQuestionLen {
			out = append(out, q)
		}
	}
	return out
}

// RecordResponse queues the questions found in an assistant reply.
// Duplicates are kept.
func (t *FollowUpTracker) RecordResponse(aiMessage string) {
	t.pending = append(t.pending, ExtractQuestions(aiMessage)...)
}

// CheckAnswered moves every pending question whose key words occur in the
// user message to the answered list and returns them in pending order.
func (t *FollowUpTracker) CheckAnswered(userMessage string) []string {
	user := strings.ToLower(userMessage)

	var answered, remaining []string
	for _, q := range t.pending {
		if mentionsKeyWords(user, q) {
			answered = append(answered, q)
			continue
		}
		remaining = append(remaining, q)
	}
	t.pending = remaining
	t.answered = append(t.answered, answered...)
	return answered
}

func mentionsKeyWords(userLower, question string) bool {
	var keys []string
	for _, w := range strings.Fields(strings.ToLower(question)) {
		if _, stop := questionStopWords[w]; stop {
			continue
		}
		keys = append(keys, w)
		if len(keys) == keyWordCount {
			break
		}
	}
	for _, k := range keys {
		if strings.Contains(userLower, k) {
			return true
		}
	}
	return false
}

// Pending returns a copy of the unanswered questions.
func (t *FollowUpTracker) Pending() []string {
	return append([]string(nil), t.pending...)
}

// Answered returns a copy of the questions answered so far.
func (t *FollowUpTracker) Answered() []string {
	return append([]string(nil), t.answered...)
}

func (t *FollowUpTracker) UnansweredCount() int { return len(t.pending) }
func (t *FollowUpTracker) HasUnanswered() bool  { return len(t.pending) > 0 }

// Reset forgets all pending and answered questions.
func (t *FollowUpTracker) Reset() {
	t.pending = nil
	t.answered = nil
}
