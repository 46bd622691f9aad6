package tools

import (
	"context"
	"fmt"
	"slices"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/homefix-assistant/server/internal/agent/model"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

const maxBookingsPerDay = 4

var timeSlots = []string{"09:00-12:00", "12:00-15:00", "15:00-18:00", "18:00-21:00"}

const flexibleDateDesc = "Flexible date format. Can be: '21' (just day), 'March 15' (month and day), '2025-03-15' (full date), 'tomorrow', 'next week'"

// ===================================
// Book Maintenance Appointment Tool
// ===================================

type BookAppointmentInput struct {
	CustomerName     string `json:"customer_name"`
	ContactNumber    string `json:"contact_number"`
	IssueDescription string `json:"issue_description"`
	PreferredDate    string `json:"preferred_date"`
	Address          string `json:"address"`
	Urgency          string `json:"urgency,omitempty"`
}

func (t *Toolbox) createBookAppointmentTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolBookAppointment,
			Desc: "Book a maintenance appointment for a customer. Use this when customer wants to schedule a technician visit. Accepts flexible date formats.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customer_name":     {Type: schema.String, Desc: "Customer's full name", Required: true},
				"contact_number":    {Type: schema.String, Desc: "Phone number", Required: true},
				"issue_description": {Type: schema.String, Desc: "What needs to be fixed", Required: true},
				"preferred_date":    {Type: schema.String, Desc: flexibleDateDesc, Required: true},
				"address":           {Type: schema.String, Desc: "Service address", Required: true},
				"urgency":           {Type: schema.String, Desc: "Priority level", Enum: []string{"normal", "high", "critical"}},
			}),
		},
		func(ctx context.Context, in *BookAppointmentInput) (*model.ToolResult, error) {
			return t.BookAppointment(ctx, in), nil
		},
	)
}

// BookAppointment stores a pending booking for a date today or later.
func (t *Toolbox) BookAppointment(ctx context.Context, in *BookAppointmentInput) *model.ToolResult {
	urgency := in.Urgency
	if urgency == "" {
		urgency = "normal"
	}

	date, err := ParseFlexibleDate(in.PreferredDate, t.now())
	if err != nil {
		return model.ToolFailed("%s", err.Error())
	}
	if date.Before(t.today()) {
		return model.ToolFailed("Cannot book appointments in the past. Today's date is %s. Please choose today or a future date.", t.today().Format(DateLayout))
	}

	slot := timeSlots[0]
	if urgency == "critical" {
		slot = "ASAP"
	}
	parsed := date.Format(DateLayout)
	booking := model.Booking{
		BookingID:         t.newID("BOOK"),
		CustomerName:      in.CustomerName,
		ContactNumber:     in.ContactNumber,
		IssueDescription:  in.IssueDescription,
		PreferredDate:     parsed,
		OriginalDateInput: in.PreferredDate,
		Address:           in.Address,
		Urgency:           urgency,
		Status:            "pending",
		CreatedAt:         t.timestamp(),
		EstimatedTimeSlot: slot,
	}
	if err := t.records.AddBooking(ctx, booking); err != nil {
		logx.Error().Err(err).Str("tool_name", ToolBookAppointment).Msg("failed to store booking")
		return model.ToolFailed("Failed to create booking: %v", err)
	}

	return model.ToolOK(
		fmt.Sprintf("Appointment booked successfully! Booking ID: %s. Date: %s. A technician will contact you at %s to confirm the exact time.",
			booking.BookingID, parsed, in.ContactNumber),
		map[string]any{
			"booking_id":     booking.BookingID,
			"customer_name":  in.CustomerName,
			"preferred_date": parsed,
			"original_input": in.PreferredDate,
			"time_slot":      slot,
			"urgency":        urgency,
		},
	)
}

// ===================================
// Check Booking Availability Tool
// ===================================

type CheckAvailabilityInput struct {
	DateStr string `json:"date_str"`
}

func (t *Toolbox) createCheckAvailabilityTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCheckAvailability,
			Desc: "Check if technicians are available on a specific date before booking. Accepts flexible date formats.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"date_str": {Type: schema.String, Desc: flexibleDateDesc, Required: true},
			}),
		},
		func(ctx context.Context, in *CheckAvailabilityInput) (*model.ToolResult, error) {
			return t.CheckAvailability(ctx, in), nil
		},
	)
}

// CheckAvailability reports free technician slots on a date. The outcome is
// carried in the "availability" payload key: available, fully_booked or
// unavailable (past date).
func (t *Toolbox) CheckAvailability(ctx context.Context, in *CheckAvailabilityInput) *model.ToolResult {
	date, err := ParseFlexibleDate(in.DateStr, t.now())
	if err != nil {
		return model.ToolFailed("%s", err.Error())
	}
	parsed := date.Format(DateLayout)

	if date.Before(t.today()) {
		return model.ToolOK(
			fmt.Sprintf("Cannot check availability for past dates. Today is %s.", t.today().Format(DateLayout)),
			map[string]any{"availability": "unavailable", "date": parsed, "original_input": in.DateStr},
		)
	}

	bookings, err := t.records.Bookings(ctx)
	if err != nil {
		logx.Error().Err(err).Str("tool_name", ToolCheckAvailability).Msg("failed to load bookings")
		return model.ToolFailed("Failed to check availability: %v", err)
	}
	var booked []string
	for _, b := range bookings {
		if b.PreferredDate == parsed {
			booked = append(booked, b.EstimatedTimeSlot)
		}
	}

	free := maxBookingsPerDay - len(booked)
	if free <= 0 {
		return model.ToolOK(
			fmt.Sprintf("Fully booked on %s. Try %s instead.", parsed, date.AddDate(0, 0, 1).Format(DateLayout)),
			map[string]any{"availability": "fully_booked", "date": parsed, "original_input": in.DateStr},
		)
	}

	slots := make([]string, 0, len(timeSlots))
	for _, s := range timeSlots {
		if !slices.Contains(booked, s) {
			slots = append(slots, s)
		}
	}
	return model.ToolOK(
		fmt.Sprintf("%d technician(s) available on %s", free, parsed),
		map[string]any{
			"availability":    "available",
			"date":            parsed,
			"original_input":  in.DateStr,
			"available_slots": free,
			"time_slots":      slots,
		},
	)
}
