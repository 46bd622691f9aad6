package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/model"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

type priorityInfo struct {
	priority     string
	responseTime string
}

var priorityBySeverity = map[string]priorityInfo{
	"critical": {"P1", "Immediate (within 1 hour)"},
	"high":     {"P2", "Same day (within 4 hours)"},
	"medium":   {"P3", "Next business day"},
	"low":      {"P4", "Within 3 business days"},
}

var waitTimeByUrgency = map[string]string{
	"critical": "Connecting you now (0-2 minutes)",
	"high":     "Agent available within 5 minutes",
	"normal":   "Agent available within 15 minutes",
}

// ===================================
// Log Customer Issue Tool
// ===================================

type LogIssueInput struct {
	CustomerName string `json:"customer_name"`
	IssueType    string `json:"issue_type"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	Severity     string `json:"severity,omitempty"`
	ContactInfo  string `json:"contact_info,omitempty"`
}

func (t *Toolbox) createLogIssueTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolLogIssue,
			Desc: "Log a customer's issue for tracking. Use this to create a record of the customer's problem.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customer_name": {Type: schema.String, Required: true},
				"issue_type":    {Type: schema.String, Desc: "damp, leak, electrical, heating, etc.", Required: true},
				"description":   {Type: schema.String, Required: true},
				"location":      {Type: schema.String, Desc: "e.g., bedroom wall, kitchen ceiling", Required: true},
				"severity":      {Type: schema.String, Enum: []string{"low", "medium", "high", "critical"}},
				"contact_info":  {Type: schema.String},
			}),
		},
		func(ctx context.Context, in *LogIssueInput) (*model.ToolResult, error) {
			return t.LogIssue(ctx, in), nil
		},
	)
}

func (t *Toolbox) LogIssue(ctx context.Context, in *LogIssueInput) *model.ToolResult {
	severity := in.Severity
	if severity == "" {
		severity = "medium"
	}
	ts := t.timestamp()
	issue := model.Issue{
		IssueID:      t.newID("ISSUE"),
		CustomerName: in.CustomerName,
		IssueType:    strings.ToLower(in.IssueType),
		Description:  in.Description,
		Location:     in.Location,
		Severity:     severity,
		ContactInfo:  optional(in.ContactInfo),
		Status:       "open",
		CreatedAt:    ts,
		LastUpdated:  ts,
		Notes:        []string{},
	}
	if err := t.records.AddIssue(ctx, issue); err != nil {
		logx.Error().Err(err).Str("tool_name", ToolLogIssue).Msg("failed to store issue")
		return model.ToolFailed("Failed to log issue: %v", err)
	}

	return model.ToolOK(
		fmt.Sprintf("Issue logged successfully with ID: %s. This will be tracked for follow-up and resolution.", issue.IssueID),
		map[string]any{
			"issue_id":   issue.IssueID,
			"severity":   severity,
			"next_steps": "Our team will review this issue and contact you for next steps.",
		},
	)
}

// ===================================
// Create Maintenance Ticket Tool
// ===================================

type CreateTicketInput struct {
	IssueType               string `json:"issue_type"`
	Severity                string `json:"severity"`
	Description             string `json:"description"`
	CustomerName            string `json:"customer_name"`
	Location                string `json:"location"`
	RequiresImmediateAction bool   `json:"requires_immediate_action,omitempty"`
}

func (t *Toolbox) createTicketTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCreateTicket,
			Desc: "Create a formal maintenance ticket for issues requiring professional attention. Use for safety concerns or complex issues.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"issue_type":                {Type: schema.String, Required: true},
				"severity":                  {Type: schema.String, Enum: []string{"low", "medium", "high", "critical"}, Required: true},
				"description":               {Type: schema.String, Required: true},
				"customer_name":             {Type: schema.String, Required: true},
				"location":                  {Type: schema.String, Required: true},
				"requires_immediate_action": {Type: schema.Boolean},
			}),
		},
		func(ctx context.Context, in *CreateTicketInput) (*model.ToolResult, error) {
			return t.CreateTicket(ctx, in), nil
		},
	)
}

// CreateTicket files a prioritized ticket. Unknown severities get the medium
// priority but keep their original label on the record.
func (t *Toolbox) CreateTicket(ctx context.Context, in *CreateTicketInput) *model.ToolResult {
	info, ok := priorityBySeverity[in.Severity]
	if !ok {
		info = priorityBySeverity["medium"]
	}
	escalated := in.Severity == "high" || in.Severity == "critical" || in.RequiresImmediateAction

	ticket := model.Ticket{
		TicketID:                t.newID("TKT"),
		IssueType:               in.IssueType,
		Severity:                in.Severity,
		Priority:                info.priority,
		Description:             in.Description,
		CustomerName:            in.CustomerName,
		Location:                in.Location,
		RequiresImmediateAction: in.RequiresImmediateAction,
		Status:                  "open",
		CreatedAt:               t.timestamp(),
		ResponseTimeTarget:      info.responseTime,
		ResolutionNotes:         []string{},
		Escalated:               escalated,
	}
	if err := t.records.AddTicket(ctx, ticket); err != nil {
		logx.Error().Err(err).Str("tool_name", ToolCreateTicket).Msg("failed to store ticket")
		return model.ToolFailed("Failed to create ticket: %v", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "Maintenance ticket %s created successfully.\n", ticket.TicketID)
	fmt.Fprintf(&msg, "Priority: %s (%s)\n", info.priority, in.Severity)
	fmt.Fprintf(&msg, "Expected Response: %s\n", info.responseTime)
	if in.Severity == "critical" || in.RequiresImmediateAction {
		msg.WriteString("\nURGENT: This ticket has been flagged for immediate attention. Emergency team has been notified.")
	}

	return model.ToolOK(msg.String(), map[string]any{
		"ticket_id":     ticket.TicketID,
		"priority":      info.priority,
		"severity":      in.Severity,
		"response_time": info.responseTime,
		"escalated":     escalated,
	})
}

// ===================================
// Escalate To Human Tool
// ===================================

type EscalateInput struct {
	Reason                     string `json:"reason"`
	CustomerName               string `json:"customer_name"`
	IssueSummary               string `json:"issue_summary"`
	Urgency                    string `json:"urgency,omitempty"`
	ConversationHistorySummary string `json:"conversation_history_summary,omitempty"`
}

func (t *Toolbox) createEscalateTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolEscalateToHuman,
			Desc: "Escalate conversation to a human agent. Use when issue is too complex, customer is frustrated, or explicitly requests human help.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"reason":                       {Type: schema.String, Desc: "frustrated_customer, complex_issue, safety_concern, customer_request, etc.", Required: true},
				"customer_name":                {Type: schema.String, Required: true},
				"issue_summary":                {Type: schema.String, Desc: "Brief summary of the issue", Required: true},
				"urgency":                      {Type: schema.String, Enum: []string{"normal", "high", "critical"}},
				"conversation_history_summary": {Type: schema.String},
			}),
		},
		func(ctx context.Context, in *EscalateInput) (*model.ToolResult, error) {
			return t.Escalate(ctx, in), nil
		},
	)
}

func (t *Toolbox) Escalate(ctx context.Context, in *EscalateInput) *model.ToolResult {
	urgency := in.Urgency
	if urgency == "" {
		urgency = "normal"
	}
	wait, ok := waitTimeByUrgency[urgency]
	if !ok {
		wait = waitTimeByUrgency["normal"]
	}

	esc := model.Escalation{
		EscalationID:        t.newID("ESC"),
		Reason:              in.Reason,
		CustomerName:        in.CustomerName,
		IssueSummary:        in.IssueSummary,
		Urgency:             urgency,
		ConversationSummary: optional(in.ConversationHistorySummary),
		Status:              "pending",
		CreatedAt:           t.timestamp(),
		EstimatedWaitTime:   wait,
	}
	if err := t.records.AddEscalation(ctx, esc); err != nil {
		logx.Error().Err(err).Str("tool_name", ToolEscalateToHuman).Msg("failed to store escalation")
		return model.ToolFailed("Failed to escalate: %v", err)
	}
	logx.Warn().Str("escalation_id", esc.EscalationID).Str("urgency", urgency).Str("reason", in.Reason).Msg("conversation escalated to human")

	var msg strings.Builder
	if urgency == "critical" {
		msg.WriteString("🚨 URGENT ESCALATION IN PROGRESS\n\n")
		msg.WriteString("Connecting you to a specialist immediately...\n")
		fmt.Fprintf(&msg, "Escalation ID: %s\n", esc.EscalationID)
		msg.WriteString("Please stay on the line.")
	} else {
		msg.WriteString("📞 Connecting You to a Human Representative\n\n")
		fmt.Fprintf(&msg, "Escalation ID: %s\n", esc.EscalationID)
		fmt.Fprintf(&msg, "Estimated wait time: %s\n\n", wait)
		msg.WriteString("Your conversation history has been shared with our team. ")
		msg.WriteString("They will have full context of your issue.\n\n")
		msg.WriteString("What happens next:\n")
		msg.WriteString("1. Your request is now in the priority queue\n")
		msg.WriteString("2. An agent will join this conversation shortly\n")
		msg.WriteString("3. They'll have all the details we've discussed\n\n")
		msg.WriteString("Thank you for your patience!")
	}

	return model.ToolOK(msg.String(), map[string]any{
		"escalation_id": esc.EscalationID,
		"urgency":       urgency,
		"wait_time":     wait,
		"action":        "HUMAN_TAKEOVER",
		"note":          "AI should stop responding. Human agent will take over.",
	})
}
