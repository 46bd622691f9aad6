package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/repo"
)

const (
	ToolBookAppointment   = "book_maintenance_appointment"
	ToolLogIssue          = "log_customer_issue"
	ToolCreateTicket      = "create_maintenance_ticket"
	ToolEscalateToHuman   = "escalate_to_human_representative"
	ToolCheckAvailability = "check_booking_availability"
)

// timestampLayout matches the created_at format of existing record files.
const timestampLayout = "2006-01-02T15:04:05.000000"

// Toolbox owns the dependencies shared by the maintenance tools.
type Toolbox struct {
	records *repo.Records
	now     func() time.Time
	suffix  func() int
}

type Option func(*Toolbox)

// WithClock replaces time.Now for date resolution, ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Toolbox) { t.now = now }
}

// WithIDSuffix replaces the random 4-digit id suffix generator.
func WithIDSuffix(f func() int) Option {
	return func(t *Toolbox) { t.suffix = f }
}

func NewToolbox(records *repo.Records, opts ...Option) *Toolbox {
	t := &Toolbox{
		records: records,
		now:     time.Now,
		suffix:  func() int { return 1000 + rand.IntN(9000) },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetQueryTools returns every maintenance tool bound to this toolbox.
func (t *Toolbox) GetQueryTools() []tool.BaseTool {
	return []tool.BaseTool{
		t.createBookAppointmentTool(),
		t.createLogIssueTool(),
		t.createTicketTool(),
		t.createEscalateTool(),
		t.createCheckAvailabilityTool(),
	}
}

// GetToolInfos collects tool schemas for binding to a chat model.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// newID formats PREFIX-yyyymmddhhmmss-NNNN.
func (t *Toolbox) newID(prefix string) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, t.now().Format("20060102150405"), t.suffix())
}

func (t *Toolbox) timestamp() string {
	return t.now().Format(timestampLayout)
}

func (t *Toolbox) today() time.Time {
	now := t.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
