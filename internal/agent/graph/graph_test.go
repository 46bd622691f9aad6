package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	"github.com/homefix-assistant/server/internal/agent/escalation"
	"github.com/homefix-assistant/server/internal/agent/graph/conversations"
	"github.com/homefix-assistant/server/internal/agent/graph/nodes"
	"github.com/homefix-assistant/server/internal/agent/graph/prompts"
	"github.com/homefix-assistant/server/internal/agent/graph/tools"
	"github.com/homefix-assistant/server/internal/agent/model"
	"github.com/homefix-assistant/server/internal/agent/repo"
)

// scriptedModel replays canned replies; the last reply repeats.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	err     error
	inputs  [][]*schema.Message
	bound   []*schema.ToolInfo
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, append([]*schema.Message(nil), in...))
	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.inputs) - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	reply := *m.replies[idx]
	reply.ToolCalls = append([]schema.ToolCall(nil), reply.ToolCalls...)
	return &reply, nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) BindTools(tools []*schema.ToolInfo) error {
	m.bound = tools
	return nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

type harness struct {
	runner   Runner
	fact     *scriptedModel
	response *scriptedModel
	records  *repo.Records
	sessions model.ConversationRepository
}

func newHarness(t *testing.T, fact, response *scriptedModel, maxRounds int) *harness {
	t.Helper()
	store, err := repo.NewFileRecordStore(t.TempDir())
	require.NoError(t, err)
	records := repo.NewRecords(store)
	sessions := repo.NewMemoryConversationRepository()
	fp, err := prompts.LoadFactPrompt(model.PromptConfig{})
	require.NoError(t, err)

	runner, err := NewRunner(context.Background(), &GraphConfig{
		ChatModels: &nodes.ChatModels{
			Fact:              fact,
			Response:          response,
			FactModelName:     "gemini-2.5-flash-lite",
			ResponseModelName: "gemini-2.5-flash",
		},
		MessagesManager: conversations.NewMessagesManager(sessions, "SYS"),
		FactPrompt:      fp,
		Toolbox:         tools.NewToolbox(records),
		Records:         records,
		ToolsEnabled:    true,
		ToolMaxRounds:   maxRounds,
	})
	require.NoError(t, err)
	return &harness{runner: runner, fact: fact, response: response, records: records, sessions: sessions}
}

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

func TestHandleTurn_PlainReply(t *testing.T) {
	fact := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(`{"appliance": "boiler", "customer_name": "Sam"}`, nil)}}
	resp := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("Sorry to hear that. Is the pilot light still on?", nil)}}
	h := newHarness(t, fact, resp, 2)
	ctx := context.Background()

	assert.Len(t, resp.bound, 5)

	sess := h.runner.Sessions().LoadSession(ctx, "sess-1")
	res, err := h.runner.HandleTurn(ctx, sess, "Hi, I'm Sam and my boiler stopped working")
	require.NoError(t, err)

	assert.Equal(t, "sess-1", res.SessionID)
	assert.Equal(t, "Sorry to hear that. Is the pilot light still on?", res.Reply)
	assert.False(t, res.Verdict.ShouldEscalate)
	assert.Equal(t, escalation.Low, res.Verdict.Severity)
	assert.Empty(t, res.Advisory)
	assert.Equal(t, 1, res.Unanswered)
	assert.Zero(t, res.ToolCalls)

	assert.Equal(t, []string{"appliance", "customer_name"}, sess.State.FactKeys())
	assert.Equal(t, 1, sess.State.TurnCount())
	msgs := sess.State.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)

	// the response model saw tone guidance then facts right after the system prompt
	require.Equal(t, 1, resp.calls())
	in := resp.inputs[0]
	require.Len(t, in, 4)
	assert.Equal(t, "SYS", in[0].Content)
	assert.Contains(t, in[1].Content, "TONE ADJUSTMENT: User appears calm.")
	assert.Contains(t, in[2].Content, "Confirmed Information:")

	snap, err := h.sessions.LoadSnapshot(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TurnCount)
	assert.Equal(t, []string{"Is the pilot light still on?"}, snap.PendingQuestions)

	// answering the follow-up resolves it on the next turn
	res, err = h.runner.HandleTurn(ctx, sess, "Yes the pilot light is on")
	require.NoError(t, err)
	assert.Equal(t, []string{"Is the pilot light still on?"}, res.Answered)
}

func TestHandleTurn_ToolRoundTrip(t *testing.T) {
	fact := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(`{}`, nil)}}
	resp := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("", tools.ToolCreateTicket, `{"issue_type":"gas","severity":"critical","description":"gas smell","customer_name":"Sam","location":"kitchen","requires_immediate_action":"true"}`),
		}),
		schema.AssistantMessage("Please leave the house now. Ticket created.", nil),
	}}
	h := newHarness(t, fact, resp, 2)
	ctx := context.Background()

	sess := conversation.NewSession("gas", "SYS")
	res, err := h.runner.HandleTurn(ctx, sess, "There's a gas smell, this is an emergency")
	require.NoError(t, err)

	assert.Equal(t, "Please leave the house now. Ticket created.", res.Reply)
	assert.Equal(t, 1, res.ToolCalls)
	assert.True(t, res.Verdict.ShouldEscalate)
	assert.Equal(t, escalation.Critical, res.Verdict.Severity)
	assert.Equal(t, []string{escalation.ReasonCriticalSafety}, res.Verdict.Reasons)
	assert.Equal(t, escalation.Message(escalation.Critical), res.Advisory)

	assert.Equal(t, 1, sess.State.ToolCallCount())
	msgs := sess.State.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.Tool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	result, err := model.ParseToolResult(msgs[2].Content)
	require.NoError(t, err)
	assert.Equal(t, model.ToolSuccess, result.Status)
	assert.Equal(t, "P1", result.Payload["priority"])

	// second model call sees the call message right before its result
	require.Equal(t, 2, resp.calls())
	second := resp.inputs[1]
	n := len(second)
	require.GreaterOrEqual(t, n, 3)
	assert.Equal(t, schema.Assistant, second[n-2].Role)
	require.Len(t, second[n-2].ToolCalls, 1)
	assert.Equal(t, "call_1", second[n-2].ToolCalls[0].ID)
	assert.Equal(t, schema.Tool, second[n-1].Role)
	assert.Contains(t, second[1].Content, "TONE ADJUSTMENT: User indicates urgency.")

	tickets, err := h.records.Tickets(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.True(t, tickets[0].RequiresImmediateAction)
}

func TestHandleTurn_CallIDsRepeatAcrossTurns(t *testing.T) {
	fact := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(`{}`, nil)}}
	resp := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("", tools.ToolLogIssue, `{"customer_name":"Sam","issue_type":"plumbing","description":"drip","location":"bathroom"}`),
		}),
		schema.AssistantMessage("Logged the drip.", nil),
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("", tools.ToolCreateTicket, `{"issue_type":"plumbing","severity":"low","description":"drip","customer_name":"Sam","location":"bathroom"}`),
		}),
		schema.AssistantMessage("Ticket opened.", nil),
	}}
	h := newHarness(t, fact, resp, 2)
	ctx := context.Background()

	sess := conversation.NewSession("drip", "SYS")
	_, err := h.runner.HandleTurn(ctx, sess, "The bathroom tap drips")
	require.NoError(t, err)
	_, err = h.runner.HandleTurn(ctx, sess, "Please open a ticket for it")
	require.NoError(t, err)

	// both turns synthesized call_1
	var ids []string
	for _, m := range sess.State.Messages() {
		if m.Role == schema.Tool {
			ids = append(ids, m.ToolCallID)
		}
	}
	assert.Equal(t, []string{"call_1", "call_1"}, ids)

	// every tool result in the last model input follows a call for that tool
	require.Equal(t, 4, resp.calls())
	last := resp.inputs[3]
	results := 0
	for i, m := range last {
		if m.Role != schema.Tool {
			continue
		}
		results++
		prev := last[i-1]
		require.Equal(t, schema.Assistant, prev.Role)
		require.NotEmpty(t, prev.ToolCalls)
		assert.Equal(t, m.ToolName, prev.ToolCalls[len(prev.ToolCalls)-1].Function.Name)
	}
	assert.Equal(t, 2, results)
	assert.Equal(t, tools.ToolCreateTicket, last[len(last)-1].ToolName)
}

func TestHandleTurn_ToolRoundLimit(t *testing.T) {
	fact := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(`{}`, nil)}}
	resp := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("a1", tools.ToolCheckAvailability, `{"date_str":"tomorrow"}`)}),
		schema.AssistantMessage("Tomorrow has free slots.", []schema.ToolCall{toolCall("a2", tools.ToolCheckAvailability, `{"date_str":"next week"}`)}),
	}}
	h := newHarness(t, fact, resp, 1)

	sess := conversation.NewSession("", "SYS")
	res, err := h.runner.HandleTurn(context.Background(), sess, "Can someone come tomorrow?")
	require.NoError(t, err)

	assert.Equal(t, 2, resp.calls())
	last := resp.inputs[1][len(resp.inputs[1])-1]
	assert.Equal(t, schema.System, last.Role)
	assert.Contains(t, last.Content, "SYSTEM NOTICE")

	assert.Equal(t, "Tomorrow has free slots.", res.Reply)
	assert.Equal(t, 1, res.ToolCalls)
	assert.Equal(t, 1, sess.State.ToolCallCount())
}

func TestHandleTurn_UnknownTool(t *testing.T) {
	fact := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(`{}`, nil)}}
	resp := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("x1", "order_pizza", `{}`)}),
		schema.AssistantMessage("I can't do that, but I can book a technician.", nil),
	}}
	h := newHarness(t, fact, resp, 2)

	sess := conversation.NewSession("", "SYS")
	res, err := h.runner.HandleTurn(context.Background(), sess, "order me a pizza")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ToolCalls)

	msgs := sess.State.Messages()
	result, err := model.ParseToolResult(msgs[2].Content)
	require.NoError(t, err)
	assert.Equal(t, model.ToolError, result.Status)
	assert.Contains(t, result.Message, `"order_pizza"`)
}

func TestHandleTurn_FactFailureIsIgnored(t *testing.T) {
	fact := &scriptedModel{err: errors.New("quota exceeded")}
	resp := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("Let's take a look.", nil)}}
	h := newHarness(t, fact, resp, 2)

	sess := conversation.NewSession("", "SYS")
	res, err := h.runner.HandleTurn(context.Background(), sess, "my sink is blocked")
	require.NoError(t, err)
	assert.Equal(t, "Let's take a look.", res.Reply)
	assert.Empty(t, sess.State.Facts())
}

func TestHandleTurn_RejectsBlankMessage(t *testing.T) {
	fact := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(`{}`, nil)}}
	resp := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("hi", nil)}}
	h := newHarness(t, fact, resp, 2)

	_, err := h.runner.HandleTurn(context.Background(), conversation.NewSession("", "SYS"), "   ")
	assert.Error(t, err)
	assert.Zero(t, resp.calls())
}

func TestRunner_Escalation(t *testing.T) {
	fact := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(`{}`, nil)}}
	resp := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("ok", nil)}}
	h := newHarness(t, fact, resp, 2)
	ctx := context.Background()

	sess := conversation.NewSession("", "SYS")
	assert.False(t, h.runner.Escalation(ctx, sess).Verdict.ShouldEscalate)

	require.NoError(t, h.records.AddTicket(ctx, model.Ticket{TicketID: "TKT-1", Severity: "high"}))
	res := h.runner.Escalation(ctx, sess)
	assert.True(t, res.Verdict.ShouldEscalate)
	assert.Equal(t, escalation.Critical, res.Verdict.Severity)
	assert.NotEmpty(t, res.Advisory)
}

func TestToolArgumentsHandler(t *testing.T) {
	out, err := ToolArgumentsHandler(context.Background(), tools.ToolBookAppointment, `{"contact_number": 5550100, "address": "  1 Elm St ", "urgency": null}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"contact_number":"5550100","address":"1 Elm St"}`, out)

	out, err = ToolArgumentsHandler(context.Background(), tools.ToolCreateTicket, `{"requires_immediate_action": "TRUE"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"requires_immediate_action":true}`, out)

	out, err = ToolArgumentsHandler(context.Background(), tools.ToolLogIssue, `not json`)
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
}
