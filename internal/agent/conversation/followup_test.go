package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractQuestions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "trailing statement is not a question",
			text: "Is the leak near the ceiling? It's urgent.",
			want: []string{"Is the leak near the ceiling?"},
		},
		{
			name: "short questions are discarded",
			text: "Really? When did the boiler stop working?",
			want: []string{"When did the boiler stop working?"},
		},
		{
			name: "multiple questions keep order",
			text: "Thanks. Which room has the damp patch? Have you noticed any mould!",
			want: []string{"Which room has the damp patch?"},
		},
		{
			name: "no questions",
			text: "Turn off the water at the mains.",
			want: nil,
		},
		{
			name: "each question mark ends a fragment",
			text: "Is it the hot tap?? Or the cold one?",
			want: []string{"Is it the hot tap?", "Or the cold one?"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractQuestions(tt.text))
		})
	}
}

func TestExtractQuestions_LengthBoundary(t *testing.T) {
	// "Is it dry?" is ten characters and is dropped; eleven is kept.
	assert.Empty(t, ExtractQuestions("Is it dry?"))
	assert.Equal(t, []string{"Is it damp?"}, ExtractQuestions("Is it damp?"))

	// length counts characters, not bytes
	assert.Empty(t, ExtractQuestions("¿Está mal?"))
	assert.Equal(t, []string{"¿Está malo?"}, ExtractQuestions("¿Está malo?"))
}

func TestFollowUpTracker_RecordAndAnswer(t *testing.T) {
	tr := NewFollowUpTracker()
	tr.RecordResponse("I can help. Is the leak near the ceiling? Which room is affected?")
	require.Equal(t, 2, tr.UnansweredCount())
	assert.True(t, tr.HasUnanswered())

	answered := tr.CheckAnswered("The LEAK is in the hallway")
	assert.Equal(t, []string{"Is the leak near the ceiling?"}, answered)
	assert.Equal(t, []string{"Which room is affected?"}, tr.Pending())
	assert.Equal(t, []string{"Is the leak near the ceiling?"}, tr.Answered())

	// Already answered questions never match again.
	assert.Empty(t, tr.CheckAnswered("leak leak leak"))

	answered = tr.CheckAnswered("the back room")
	assert.Equal(t, []string{"Which room is affected?"}, answered)
	assert.False(t, tr.HasUnanswered())
	assert.Zero(t, tr.UnansweredCount())
}

func TestFollowUpTracker_KeyWordsLimitedToFirstThree(t *testing.T) {
	tr := NewFollowUpTracker()
	tr.RecordResponse("Have you checked the boiler pressure gauge recently?")

	// Key words are "have", "you", "checked"; "boiler" is the fourth.
	assert.Empty(t, tr.CheckAnswered("boiler"))
	assert.Equal(t, 1, tr.UnansweredCount())

	assert.Len(t, tr.CheckAnswered("I checked it"), 1)
}

func TestFollowUpTracker_DuplicatesKept(t *testing.T) {
	tr := NewFollowUpTracker()
	tr.RecordResponse("Is the radiator cold at the top?")
	tr.RecordResponse("Is the radiator cold at the top?")
	require.Equal(t, 2, tr.UnansweredCount())

	answered := tr.CheckAnswered("yes the radiator is cold")
	assert.Len(t, answered, 2)
	assert.Zero(t, tr.UnansweredCount())
}

func TestFollowUpTracker_Reset(t *testing.T) {
	tr := NewFollowUpTracker()
	tr.RecordResponse("Is the smoke alarm beeping?")
	tr.CheckAnswered("smoke")
	tr.RecordResponse("Where is the fuse box located?")

	tr.Reset()
	assert.Empty(t, tr.Pending())
	assert.Empty(t, tr.Answered())
}
