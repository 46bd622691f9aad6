package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/homefix-assistant/server/internal/agent/model"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

// Table names one append-only record table.
type Table string

const (
	TableBookings    Table = "bookings"
	TableIssues      Table = "customer_issues"
	TableTickets     Table = "tickets"
	TableEscalations Table = "escalations"
)

// Tables lists every record table in display order.
var Tables = []Table{TableBookings, TableIssues, TableTickets, TableEscalations}

// RecordStore persists JSON records per table. Backends are best effort and
// make no durability promises beyond a completed write.
type RecordStore interface {
	Append(ctx context.Context, table Table, record json.RawMessage) error
	Load(ctx context.Context, table Table) ([]json.RawMessage, error)
	Clear(ctx context.Context) error
}

// Records is the typed view over a RecordStore used by tools and the CLI.
type Records struct {
	store RecordStore
}

func NewRecords(store RecordStore) *Records {
	return &Records{store: store}
}

func (r *Records) AddBooking(ctx context.Context, b model.Booking) error {
	return appendRecord(ctx, r.store, TableBookings, b)
}

func (r *Records) Bookings(ctx context.Context) ([]model.Booking, error) {
	return loadRecords[model.Booking](ctx, r.store, TableBookings)
}

func (r *Records) AddIssue(ctx context.Context, i model.Issue) error {
	return appendRecord(ctx, r.store, TableIssues, i)
}

func (r *Records) Issues(ctx context.Context) ([]model.Issue, error) {
	return loadRecords[model.Issue](ctx, r.store, TableIssues)
}

func (r *Records) AddTicket(ctx context.Context, t model.Ticket) error {
	return appendRecord(ctx, r.store, TableTickets, t)
}

func (r *Records) Tickets(ctx context.Context) ([]model.Ticket, error) {
	return loadRecords[model.Ticket](ctx, r.store, TableTickets)
}

func (r *Records) AddEscalation(ctx context.Context, e model.Escalation) error {
	return appendRecord(ctx, r.store, TableEscalations, e)
}

func (r *Records) Escalations(ctx context.Context) ([]model.Escalation, error) {
	return loadRecords[model.Escalation](ctx, r.store, TableEscalations)
}

// HasCriticalTicket reports whether any ticket was logged with high or
// critical severity. This is the critical-safety signal for escalation.
func (r *Records) HasCriticalTicket(ctx context.Context) (bool, error) {
	tickets, err := r.Tickets(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tickets {
		if t.Severity == "high" || t.Severity == "critical" {
			return true, nil
		}
	}
	return false, nil
}

// Raw returns the stored records of one table undecoded.
func (r *Records) Raw(ctx context.Context, table Table) ([]json.RawMessage, error) {
	return r.store.Load(ctx, table)
}

// Counts returns the number of records per table.
func (r *Records) Counts(ctx context.Context) (map[Table]int, error) {
	out := make(map[Table]int, len(Tables))
	for _, t := range Tables {
		rows, err := r.store.Load(ctx, t)
		if err != nil {
			return nil, err
		}
		out[t] = len(rows)
	}
	return out, nil
}

func (r *Records) ClearAll(ctx context.Context) error {
	return r.store.Clear(ctx)
}

// ParseTable accepts a table name or its short alias ("issues").
func ParseTable(name string) (Table, error) {
	switch name {
	case "bookings":
		return TableBookings, nil
	case "issues", "customer_issues":
		return TableIssues, nil
	case "tickets":
		return TableTickets, nil
	case "escalations":
		return TableEscalations, nil
	}
	return "", fmt.Errorf("unknown table %q", name)
}

func appendRecord[T any](ctx context.Context, s RecordStore, table Table, rec T) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", table, err)
	}
	return s.Append(ctx, table, b)
}

// loadRecords decodes every row of table. Rows that do not decode are logged
// and skipped so one bad record cannot hide the rest.
func loadRecords[T any](ctx context.Context, s RecordStore, table Table) ([]T, error) {
	rows, err := s.Load(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		var v T
		if err := json.Unmarshal(row, &v); err != nil {
			logx.Warn().Err(err).Str("table", string(table)).Int("index", i).Msg("skipping undecodable record")
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
