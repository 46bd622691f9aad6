package model

import (
	"encoding/json"
	"fmt"
)

type Booking struct {
	BookingID          string  `json:"booking_id"`
	CustomerName       string  `json:"customer_name"`
	ContactNumber      string  `json:"contact_number"`
	IssueDescription   string  `json:"issue_description"`
	PreferredDate      string  `json:"preferred_date"`
	OriginalDateInput  string  `json:"original_date_input"`
	Address            string  `json:"address"`
	Urgency            string  `json:"urgency"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
	AssignedTechnician *string `json:"assigned_technician"`
	EstimatedTimeSlot  string  `json:"estimated_time_slot"`
}

type Issue struct {
	IssueID      string   `json:"issue_id"`
	CustomerName string   `json:"customer_name"`
	IssueType    string   `json:"issue_type"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	Severity     string   `json:"severity"`
	ContactInfo  *string  `json:"contact_info"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"created_at"`
	LastUpdated  string   `json:"last_updated"`
	Notes        []string `json:"notes"`
	Resolved     bool     `json:"resolved"`
}

type Ticket struct {
	TicketID                string   `json:"ticket_id"`
	IssueType               string   `json:"issue_type"`
	Severity                string   `json:"severity"`
	Priority                string   `json:"priority"`
	Description             string   `json:"description"`
	CustomerName            string   `json:"customer_name"`
	Location                string   `json:"location"`
	RequiresImmediateAction bool     `json:"requires_immediate_action"`
	Status                  string   `json:"status"`
	AssignedTo              *string  `json:"assigned_to"`
	CreatedAt               string   `json:"created_at"`
	ResponseTimeTarget      string   `json:"response_time_target"`
	ResolutionNotes         []string `json:"resolution_notes"`
	Escalated               bool     `json:"escalated"`
}

type Escalation struct {
	EscalationID        string  `json:"escalation_id"`
	Reason              string  `json:"reason"`
	CustomerName        string  `json:"customer_name"`
	IssueSummary        string  `json:"issue_summary"`
	Urgency             string  `json:"urgency"`
	ConversationSummary *string `json:"conversation_summary"`
	Status              string  `json:"status"`
	CreatedAt           string  `json:"created_at"`
	AssignedAgent       *string `json:"assigned_agent"`
	EstimatedWaitTime   string  `json:"estimated_wait_time"`
	Resolved            bool    `json:"resolved"`
}

// ToolStatus is the outcome tag of a tool call.
type ToolStatus string

const (
	ToolSuccess ToolStatus = "success"
	ToolError   ToolStatus = "error"
)

// ToolResult is what every maintenance tool returns to the model. It is
// encoded as a single flat JSON object: status, message, then payload keys.
type ToolResult struct {
	Status  ToolStatus
	Message string
	Payload map[string]any
}

func ToolOK(message string, payload map[string]any) *ToolResult {
	return &ToolResult{Status: ToolSuccess, Message: message, Payload: payload}
}

func ToolFailed(format string, args ...any) *ToolResult {
	return &ToolResult{Status: ToolError, Message: fmt.Sprintf(format, args...)}
}

func (r ToolResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Payload)+2)
	for k, v := range r.Payload {
		out[k] = v
	}
	out["status"] = r.Status
	if r.Message != "" {
		out["message"] = r.Message
	}
	return json.Marshal(out)
}

func (r *ToolResult) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	status, _ := raw["status"].(string)
	message, _ := raw["message"].(string)
	delete(raw, "status")
	delete(raw, "message")
	r.Status = ToolStatus(status)
	r.Message = message
	r.Payload = raw
	if len(r.Payload) == 0 {
		r.Payload = nil
	}
	return nil
}

// ParseToolResult decodes a stored tool result string.
func ParseToolResult(s string) (*ToolResult, error) {
	var r ToolResult
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	if r.Status == "" {
		return nil, fmt.Errorf("tool result has no status")
	}
	return &r, nil
}
