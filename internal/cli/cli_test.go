package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	"github.com/homefix-assistant/server/internal/agent/escalation"
	"github.com/homefix-assistant/server/internal/agent/graph"
	"github.com/homefix-assistant/server/internal/agent/graph/conversations"
	"github.com/homefix-assistant/server/internal/agent/model"
	"github.com/homefix-assistant/server/internal/agent/repo"
)

type fakeRunner struct {
	manager *conversations.MessagesManager
	results []*model.TurnResult
	err     error
	seen    []string
	verdict model.TurnResult
}

func (f *fakeRunner) HandleTurn(_ context.Context, sess *conversation.Session, message string) (*model.TurnResult, error) {
	f.seen = append(f.seen, message)
	if f.err != nil {
		return nil, f.err
	}
	sess.State.Append(schema.User, message)
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	res.SessionID = sess.ID
	return res, nil
}

func (f *fakeRunner) Escalation(_ context.Context, sess *conversation.Session) model.TurnResult {
	v := f.verdict
	v.SessionID = sess.ID
	return v
}

func (f *fakeRunner) Sessions() *conversations.MessagesManager { return f.manager }

var _ graph.Runner = (*fakeRunner)(nil)

func newTestRecords(t *testing.T) *repo.Records {
	t.Helper()
	store, err := repo.NewFileRecordStore(t.TempDir())
	require.NoError(t, err)
	return repo.NewRecords(store)
}

func newFakeRunner(results ...*model.TurnResult) *fakeRunner {
	return &fakeRunner{
		manager: conversations.NewMessagesManager(repo.NewMemoryConversationRepository(), "system"),
		results: results,
	}
}

func TestBorderColor(t *testing.T) {
	assert.Equal(t, criticalColor, borderColor(escalation.Critical))
	assert.Equal(t, highColor, borderColor(escalation.High))
	assert.Equal(t, defaultColor, borderColor(escalation.Medium))
	assert.Equal(t, defaultColor, borderColor(escalation.Low))
}

func TestRenderAlert(t *testing.T) {
	out := RenderAlert(escalation.Verdict{
		ShouldEscalate: true,
		Reasons:        []string{escalation.ReasonCriticalSafety},
		Severity:       escalation.Critical,
	}, escalation.Message(escalation.Critical))

	assert.Contains(t, out, alertTitle)
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, escalation.ReasonCriticalSafety)
	assert.Contains(t, out, "IMMEDIATE ATTENTION REQUIRED")
	assert.Contains(t, out, "╭")
}

func TestChat_Turn(t *testing.T) {
	runner := newFakeRunner(&model.TurnResult{
		Reply:      "Is the leak under the sink?",
		Answered:   []string{"Where is it?"},
		Unanswered: 1,
		Verdict: escalation.Verdict{
			ShouldEscalate: true,
			Reasons:        []string{escalation.ReasonFrustrated},
			Severity:       escalation.High,
		},
		Advisory: escalation.Message(escalation.High),
	})
	var out bytes.Buffer
	chat := NewChat(runner, newTestRecords(t), strings.NewReader("my tap is leaking\n/quit\n"), &out)

	require.NoError(t, chat.Run(context.Background(), ""))

	assert.Equal(t, []string{"my tap is leaking"}, runner.seen)
	s := out.String()
	assert.Contains(t, s, "Is the leak under the sink?")
	assert.Contains(t, s, "Answered 1 follow-up question(s)")
	assert.Contains(t, s, "1 question(s) still pending")
	assert.Contains(t, s, alertTitle)
	assert.Contains(t, s, "Goodbye.")
}

func TestChat_TurnErrorKeepsLooping(t *testing.T) {
	runner := newFakeRunner()
	runner.err = errors.New("model unavailable")
	var out bytes.Buffer
	chat := NewChat(runner, newTestRecords(t), strings.NewReader("hello\nagain\n"), &out)

	require.NoError(t, chat.Run(context.Background(), ""))
	assert.Equal(t, []string{"hello", "again"}, runner.seen)
	assert.Contains(t, out.String(), "model unavailable")
}

func TestChat_Commands(t *testing.T) {
	ctx := context.Background()
	runner := newFakeRunner(&model.TurnResult{Reply: "ok"})
	sess := runner.manager.LoadSession(ctx, "sess-1")
	sess.State.SetFact("location", "kitchen")
	sess.State.Append(schema.User, "the sink drips")
	require.NoError(t, runner.manager.SaveSession(ctx, sess))

	var out bytes.Buffer
	input := "/facts\n/stats\n/bogus\n/new\n/facts\n"
	chat := NewChat(runner, newTestRecords(t), strings.NewReader(input), &out)
	require.NoError(t, chat.Run(ctx, "sess-1"))

	s := out.String()
	assert.Contains(t, s, "Session: sess-1")
	assert.Contains(t, s, "kitchen")
	assert.Contains(t, s, "Turns: 1")
	assert.Contains(t, s, "bookings: 0")
	assert.Contains(t, s, "Unknown command /bogus")
	assert.Contains(t, s, "Started a new conversation.")
	assert.Contains(t, s, "No facts recorded yet.")

	// /new removed the stored snapshot
	fresh := runner.manager.LoadSession(ctx, "sess-1")
	assert.Zero(t, fresh.State.TurnCount())
}

func TestChat_RestoredSessionShowsEscalation(t *testing.T) {
	ctx := context.Background()
	runner := newFakeRunner(&model.TurnResult{Reply: "ok"})
	runner.verdict = model.TurnResult{
		Verdict: escalation.Verdict{
			ShouldEscalate: true,
			Reasons:        []string{escalation.ReasonCriticalSafety},
			Severity:       escalation.Critical,
		},
		Advisory: escalation.Message(escalation.Critical),
	}
	sess := runner.manager.LoadSession(ctx, "sess-2")
	sess.State.Append(schema.User, "sparks from the outlet")
	require.NoError(t, runner.manager.SaveSession(ctx, sess))

	var out bytes.Buffer
	require.NoError(t, NewChat(runner, newTestRecords(t), strings.NewReader(""), &out).Run(ctx, "sess-2"))
	assert.Contains(t, out.String(), escalation.ReasonCriticalSafety)
}

func TestRecordsCommands(t *testing.T) {
	ctx := context.Background()
	records := newTestRecords(t)
	require.NoError(t, records.AddTicket(ctx, model.Ticket{TicketID: "TKT-1", Severity: "high"}))

	app := &App{
		Records: func(context.Context) (*repo.Records, error) { return records, nil },
		Runner: func(context.Context, *repo.Records) (graph.Runner, error) {
			return nil, errors.New("not used")
		},
	}

	run := func(args ...string) (string, error) {
		cmd := NewRootCommand(app)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	out, err := run("records", "tickets")
	require.NoError(t, err)
	assert.Contains(t, out, `"ticket_id": "TKT-1"`)

	out, err = run("records")
	require.NoError(t, err)
	assert.Contains(t, out, "tickets (1)")
	assert.Contains(t, out, "bookings (0)")

	_, err = run("records", "invoices")
	assert.Error(t, err)

	out, err = run("clear-data")
	require.NoError(t, err)
	assert.Contains(t, out, "All records cleared.")
	tickets, err := records.Tickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	_, err = run("chat")
	assert.EqualError(t, err, "not used")
}
