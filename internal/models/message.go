// internal/models/message.go
package models

import "time"

// RecipientType classifies who a template is written for.
type RecipientType string

const (
	RecipientGuest   RecipientType = "guest"
	RecipientCleaner RecipientType = "cleaner"
	RecipientTeam    RecipientType = "team"
)

// MessageTemplate is a user-authored message body with {{variable}} / {variable}
// placeholders. Identity is immutable; content may be edited.
type MessageTemplate struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organizationId"`
	Title          string        `json:"title"`
	Recipient      RecipientType `json:"recipient"`
	Body           string        `json:"body"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// MessageStatus is the delivery state of a SentMessage row.
type MessageStatus string

const (
	MessagePending MessageStatus = "pending"
	MessageSent    MessageStatus = "sent"
	MessageFailed  MessageStatus = "failed"
	MessageBounced MessageStatus = "bounced"
)

// SentMessage is the durable record of one send attempt. Created in pending
// state before the transport call and updated with the outcome; never deleted.
type SentMessage struct {
	ID                string        `json:"id"`
	OrganizationID    string        `json:"organizationId"`
	BookingID         string        `json:"bookingId"`
	TriggerID         string        `json:"triggerId,omitempty"` // empty for manual/test sends
	TemplateID        string        `json:"templateId,omitempty"`
	RecipientEmail    string        `json:"recipientEmail"`
	RecipientName     string        `json:"recipientName,omitempty"`
	Subject           string        `json:"subject"`
	Body              string        `json:"body"`
	Status            MessageStatus `json:"status"`
	ProviderMessageID string        `json:"providerMessageId,omitempty"`
	ErrorMessage      string        `json:"errorMessage,omitempty"`
	RetryCount        int           `json:"retryCount"`
	SentAt            *time.Time    `json:"sentAt,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// IdempotencyRecord guards a (booking, trigger) pair after a send has been
// accepted by the transport. Written once, never updated or deleted.
type IdempotencyRecord struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	BookingID      string    `json:"bookingId"`
	TriggerID      string    `json:"triggerId"`
	Key            string    `json:"key"` // bookingID + "-" + triggerID, unique
	SentMessageID  string    `json:"sentMessageId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IdempotencyKey builds the composite ledger key for a (booking, trigger) pair.
func IdempotencyKey(bookingID, triggerID string) string {
	return bookingID + "-" + triggerID
}
