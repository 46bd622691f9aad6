// Package sentiment detects the tone of a user message with fixed keyword lists.
package sentiment

import "strings"

type Tone string

const (
	ToneCalm       Tone = "calm"
	ToneFrustrated Tone = "frustrated"
	ToneAnxious    Tone = "anxious"
	ToneUrgent     Tone = "urgent"
)

// Reading is the tone of one message. Only one Tone is reported even when
// several signal sets fire.
type Reading struct {
	Tone         Tone `json:"tone"`
	IsFrustrated bool `json:"is_frustrated"`
	IsAnxious    bool `json:"is_anxious"`
	IsUrgent     bool `json:"is_urgent"`
}

// Calm is the reading assumed before any user message has been classified.
func Calm() Reading {
	return Reading{Tone: ToneCalm}
}

// Keyword tables. These are matched as substrings and must stay as they are.
var (
	FrustratedWords = []string{
		"angry", "frustrated", "terrible", "worst", "useless",
		"ridiculous", "annoyed", "fed up", "disappointed",
	}
	AnxiousWords = []string{
		"worried", "anxious", "scared", "afraid", "nervous",
		"concerned", "not sure", "uncertain", "don't know",
	}
	UrgentWords = []string{
		"urgent", "emergency", "asap", "immediately", "now",
		"right now", "help", "serious", "critical", "danger",
	}
)

// Classify lower-cases message and checks it against the keyword tables.
// Precedence is urgent, then frustrated, then anxious, then calm.
func Classify(message string) Reading {
	text := strings.ToLower(message)

	r := Reading{
		IsFrustrated: containsAny(text, FrustratedWords),
		IsAnxious:    containsAny(text, AnxiousWords),
		IsUrgent:     containsAny(text, UrgentWords),
	}
	switch {
	case r.IsUrgent:
		r.Tone = ToneUrgent
	case r.IsFrustrated:
		r.Tone = ToneFrustrated
	case r.IsAnxious:
		r.Tone = ToneAnxious
	default:
		r.Tone = ToneCalm
	}
	return r
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
