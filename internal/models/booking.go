// internal/models/booking.go
package models

import "time"

// BookingStatus is the persisted lifecycle state of a booking. Any status may
// follow any other; transition validity is not enforced here.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingCheckedIn  BookingStatus = "checked_in"
	BookingCheckedOut BookingStatus = "checked_out"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingNoShow     BookingStatus = "no_show"
)

// IsValid reports whether s is one of the seven known booking statuses.
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut,
		BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

type Booking struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organizationId"`
	PropertyID     string        `json:"propertyId"`
	GuestName      string        `json:"guestName"`
	Phone          string        `json:"phone"`
	GuestEmail     string        `json:"guestEmail,omitempty"` // empty when the guest gave no email
	CheckIn        time.Time     `json:"checkIn"`
	CheckOut       time.Time     `json:"checkOut"` // invariant: CheckOut > CheckIn
	Guests         int           `json:"guests"`
	Price          float64       `json:"price"`
	Status         BookingStatus `json:"status"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

type Property struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
}

// BookingWithProperty is a booking joined with its property, the shape the
// dispatcher and renderer work against.
type BookingWithProperty struct {
	Booking
	Property Property `json:"property"`
}
