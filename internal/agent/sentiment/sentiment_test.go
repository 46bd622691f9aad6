package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want Reading
	}{
		{
			msg:  "this is urgent and I am frustrated",
			want: Reading{Tone: ToneUrgent, IsFrustrated: true, IsUrgent: true},
		},
		{
			msg:  "I'm FED UP with this leaking tap",
			want: Reading{Tone: ToneFrustrated, IsFrustrated: true},
		},
		{
			msg:  "I'm a bit nervous about the wiring",
			want: Reading{Tone: ToneAnxious, IsAnxious: true},
		},
		{
			msg:  "So annoyed and scared",
			want: Reading{Tone: ToneFrustrated, IsFrustrated: true, IsAnxious: true},
		},
		{
			msg:  "The gutter needs cleaning",
			want: Reading{Tone: ToneCalm},
		},
		{
			// "know" contains "now": matching is by substring on purpose.
			msg:  "I'd like to know the price",
			want: Reading{Tone: ToneUrgent, IsUrgent: true},
		},
		{
			msg:  "I don't know what's wrong",
			want: Reading{Tone: ToneUrgent, IsAnxious: true, IsUrgent: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.msg))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	msg := "Emergency! The ceiling is dripping"
	assert.Equal(t, Classify(msg), Classify(msg))
}

func TestGuidance(t *testing.T) {
	assert.Contains(t, Guidance(Reading{Tone: ToneFrustrated}), "User is frustrated.")
	assert.Contains(t, Guidance(Reading{Tone: ToneAnxious}), "User is anxious/worried.")
	assert.Contains(t, Guidance(Reading{Tone: ToneUrgent}), "User indicates urgency.")
	assert.Contains(t, Guidance(Calm()), "User appears calm.")
	assert.Equal(t, Guidance(Calm()), Guidance(Reading{}))
}
