// internal/dispatch/dispatcher.go

// Package dispatch orchestrates a single send attempt: idempotency check,
// render, persist, transport call, outcome bookkeeping.
package dispatch

import (
	"context"
	"time"

	apperrors "stayflow-messaging/internal/common/errors"
	"stayflow-messaging/internal/common/logger"
	"stayflow-messaging/internal/common/metrics"
	"stayflow-messaging/internal/mailer"
	"stayflow-messaging/internal/models"
	"stayflow-messaging/internal/template"
)

// BookingStore is the slice of the booking repository the dispatcher needs.
type BookingStore interface {
	GetWithProperty(ctx context.Context, orgID, bookingID string) (*models.BookingWithProperty, error)
}

type TemplateStore interface {
	Get(ctx context.Context, orgID, templateID string) (*models.MessageTemplate, error)
}

// MessageStore owns all SentMessage writes. No other component may touch
// sent_messages rows directly.
type MessageStore interface {
	CreatePending(ctx context.Context, m *models.SentMessage) error
	MarkSent(ctx context.Context, id, providerMessageID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
	Get(ctx context.Context, orgID, id string) (*models.SentMessage, error)
}

// Ledger is the idempotency ledger gating every send.
type Ledger interface {
	HasSent(ctx context.Context, bookingID, triggerID string) (bool, error)
	SentMessageID(ctx context.Context, bookingID, triggerID string) (string, error)
	RecordSent(ctx context.Context, orgID, bookingID, triggerID, sentMessageID string) error
}

// Request identifies one (booking, trigger, template) combination to send.
// TriggerType is only a metrics label; it does not change behavior.
type Request struct {
	OrganizationID string
	BookingID      string
	TriggerID      string
	TemplateID     string
	TriggerType    models.TriggerType
}

/// Result is the dispatcher's only way of reporting: it never raises past its
// own boundary.
type Result struct {
	Success bool
	// SentMessageID identifies the sent_messages row behind this outcome.
	// On the already-sent short circuit it comes from a ledger lookup and
	// may be empty when that lookup fails; Success still holds.
	SentMessageID string
	Err           error
}

// ErrorString returns the raw error text for user-visible surfaces.
func (r Result) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

type Dispatcher struct {
	bookings  BookingStore
	templates TemplateStore
	messages  MessageStore
	ledger    Ledger
	mailer    mailer.Mailer
	logger    logger.Logger
}

func NewDispatcher(
	bookings BookingStore,
	templates TemplateStore,
	messages MessageStore,
	ledger Ledger,
	m mailer.Mailer,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		bookings:  bookings,
		templates: templates,
		messages:  messages,
		ledger:    ledger,
		mailer:    m,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch runs one send attempt end to end. Each step short-circuits on
// failure. A crash between the pending insert and the outcome update leaves a
// pending SentMessage with no ledger record, which is safe to re-attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	log := d.logger.WithFields(map[string]interface{}{
		"bookingId": req.BookingID,
		"triggerId": req.TriggerID,
	})

	// 1. Idempotency check: a successful send is permanently terminal.
	sent, err := d.ledger.HasSent(ctx, req.BookingID, req.TriggerID)
	if err != nil {
		return d.failed(req, Result{Err: err})
	}
	if sent {
		existingID, err := d.ledger.SentMessageID(ctx, req.BookingID, req.TriggerID)
		if err != nil {
			log.Warn("ledger hit but sent message lookup failed", map[string]interface{}{"error": err.Error()})
		}
		log.Info("message already sent, skipping", nil)
		return Result{Success: true, SentMessageID: existingID}
	}

	// 2. Load booking with property.
	booking, err := d.bookings.GetWithProperty(ctx, req.OrganizationID, req.BookingID)
	if err != nil {
		return d.failed(req, Result{Err: err})
	}

	// 3. A guest without an email can never receive a message; not retryable.
	if booking.GuestEmail == "" {
		return d.failed(req, Result{Err: apperrors.NewMissingRecipientError(req.BookingID)})
	}

	// 4. Load template.
	tmpl, err := d.templates.Get(ctx, req.OrganizationID, req.TemplateID)
	if err != nil {
		return d.failed(req, Result{Err: err})
	}

	// 5. Render.
	vars := template.ExtractVariables(&booking.Booking, &booking.Property)
	body := template.Render(tmpl.Body, vars)
	subject := template.Subject(tmpl.Title, booking.Property.Name)

	// 6. Durable record of intent, before the transport call.
	msg := &models.SentMessage{
		OrganizationID: req.OrganizationID,
		BookingID:      req.BookingID,
		TriggerID:      req.TriggerID,
		TemplateID:     req.TemplateID,
		RecipientEmail: booking.GuestEmail,
		RecipientName:  booking.GuestName,
		Subject:        subject,
		Body:           body,
	}
	if err := d.messages.CreatePending(ctx, msg); err != nil {
		return d.failed(req, Result{Err: err})
	}

	// 7. Transport call.
	providerID, sendErr := d.mailer.Send(ctx, booking.GuestEmail, subject, template.HTMLBody(body))

	// 8. Transport failure: bump retry bookkeeping, no ledger write.
	if sendErr != nil {
		if err := d.messages.MarkFailed(ctx, msg.ID, sendErr.Error()); err != nil {
			log.Error("failed to record send failure", map[string]interface{}{"error": err.Error()})
		}
		log.Error("email delivery failed", map[string]interface{}{"error": sendErr.Error()})
		return d.failed(req, Result{SentMessageID: msg.ID, Err: apperrors.NewTransportFailureError(sendErr)})
	}

	// 9. Transport success: mark sent, then make the pair terminal.
	if err := d.messages.MarkSent(ctx, msg.ID, providerID, time.Now().UTC()); err != nil {
		log.Error("send accepted but status update failed", map[string]interface{}{"error": err.Error()})
	}
	if err := d.ledger.RecordSent(ctx, req.OrganizationID, req.BookingID, req.TriggerID, msg.ID); err != nil {
		if apperrors.IsAlreadySent(err) {
			// Lost the race to a concurrent dispatch; the send already counted.
			log.Info("idempotency record already present", nil)
		} else {
			log.Error("failed to write idempotency record", map[string]interface{}{"error": err.Error()})
		}
	}

	log.Info("message sent", map[string]interface{}{
		"sentMessageId":     msg.ID,
		"providerMessageId": providerID,
		"recipient":         booking.GuestEmail,
	})
	metrics.MessagesSent.WithLabelValues(string(req.TriggerType)).Inc()
	return Result{Success: true, SentMessageID: msg.ID}
}

// retryTriggerLabel distinguishes retry outcomes from first-attempt
// dispatches on the shared counters.
const retryTriggerLabel = "retry"

// Retry re-runs the transport call for an existing failed or pending record.
// It operates on the SentMessage directly: no re-render, no trigger-key
// idempotency check. Retrying an already-sent record is a no-op success.
func (d *Dispatcher) Retry(ctx context.Context, orgID, sentMessageID string) Result {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	msg, err := d.messages.Get(ctx, orgID, sentMessageID)
	if err != nil {
		return d.retryFailed(Result{Err: err})
	}

	if msg.Status == models.MessageSent {
		return Result{Success: true, SentMessageID: msg.ID}
	}

	providerID, sendErr := d.mailer.Send(ctx, msg.RecipientEmail, msg.Subject, template.HTMLBody(msg.Body))
	if sendErr != nil {
		if err := d.messages.MarkFailed(ctx, msg.ID, sendErr.Error()); err != nil {
			d.logger.Error("failed to record retry failure", map[string]interface{}{
				"sentMessageId": msg.ID,
				"error":         err.Error(),
			})
		}
		return d.retryFailed(Result{SentMessageID: msg.ID, Err: apperrors.NewTransportFailureError(sendErr)})
	}

	if err := d.messages.MarkSent(ctx, msg.ID, providerID, time.Now().UTC()); err != nil {
		d.logger.Error("retry accepted but status update failed", map[string]interface{}{
			"sentMessageId": msg.ID,
			"error":         err.Error(),
		})
	}

	d.logger.Info("message retry sent", map[string]interface{}{
		"sentMessageId":     msg.ID,
		"providerMessageId": providerID,
	})
	metrics.MessagesSent.WithLabelValues(retryTriggerLabel).Inc()
	return Result{Success: true, SentMessageID: msg.ID}
}

func (d *Dispatcher) failed(req Request, r Result) Result {
	metrics.MessagesFailed.WithLabelValues(string(req.TriggerType), string(apperrors.CodeOf(r.Err))).Inc()
	return r
}

func (d *Dispatcher) retryFailed(r Result) Result {
	metrics.MessagesFailed.WithLabelValues(retryTriggerLabel, string(apperrors.CodeOf(r.Err))).Inc()
	return r
}
