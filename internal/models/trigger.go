// internal/models/trigger.go
package models

import "time"

// TriggerType discriminates the two MessageTrigger variants.
type TriggerType string

const (
	TriggerEvent     TriggerType = "event"
	TriggerTimeBased TriggerType = "time_based"
)

// EventType is a booking lifecycle event an event trigger fires on. Each maps
// 1:1 to a BookingStatus value.
type EventType string

const (
	EventBookingCreated    EventType = "booking_created"
	EventBookingConfirmed  EventType = "booking_confirmed"
	EventBookingCheckedIn  EventType = "booking_checked_in"
	EventBookingCheckedOut EventType = "booking_checked_out"
	EventBookingCompleted  EventType = "booking_completed"
	EventBookingCancelled  EventType = "booking_cancelled"
	EventBookingNoShow     EventType = "booking_no_show"
)

// statusEvents covers all seven booking statuses; EventForStatus misses only
// on values outside the enum.
var statusEvents = map[BookingStatus]EventType{
	BookingPending:    EventBookingCreated,
	BookingConfirmed:  EventBookingConfirmed,
	BookingCheckedIn:  EventBookingCheckedIn,
	BookingCheckedOut: EventBookingCheckedOut,
	BookingCompleted:  EventBookingCompleted,
	BookingCancelled:  EventBookingCancelled,
	BookingNoShow:     EventBookingNoShow,
}

// EventForStatus maps a booking status to the event type it raises.
func EventForStatus(s BookingStatus) (EventType, bool) {
	e, ok := statusEvents[s]
	return e, ok
}

// TimeOffsetUnit is the unit of a time-based trigger's offset.
type TimeOffsetUnit string

const (
	OffsetHours TimeOffsetUnit = "hours"
	OffsetDays  TimeOffsetUnit = "days"
)

// TimeReference anchors a time-based trigger's offset to the stay window.
type TimeReference string

const (
	BeforeCheckIn  TimeReference = "before_checkin"
	AfterCheckIn   TimeReference = "after_checkin"
	BeforeCheckOut TimeReference = "before_checkout"
	AfterCheckOut  TimeReference = "after_checkout"
)

// MessageTrigger is either an event trigger (EventType set) or a time-based
// trigger (offset fields set). An empty PropertyIDs set means the trigger
// applies to every property in the organization.
type MessageTrigger struct {
	ID             string      `json:"id"`
	OrganizationID string      `json:"organizationId"`
	Name           string      `json:"name"`
	TemplateID     string      `json:"templateId"`
	Type           TriggerType `json:"triggerType"`

	EventType EventType `json:"eventType,omitempty"`

	TimeOffsetValue int            `json:"timeOffsetValue,omitempty"`
	TimeOffsetUnit  TimeOffsetUnit `json:"timeOffsetUnit,omitempty"`
	TimeReference   TimeReference  `json:"timeReference,omitempty"`
	SendTime        string         `json:"sendTime,omitempty"` // HH:MM:SS

	PropertyIDs []string  `json:"propertyIds,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AppliesToProperty reports whether the trigger covers the given property.
func (t *MessageTrigger) AppliesToProperty(propertyID string) bool {
	if len(t.PropertyIDs) == 0 {
		return true
	}
	for _, id := range t.PropertyIDs {
		if id == propertyID {
			return true
		}
	}
	return false
}
