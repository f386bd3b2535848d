// internal/store/sentmessages.go
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	apperrors "stayflow-messaging/internal/common/errors"
	"stayflow-messaging/internal/models"
)

type SentMessageStore struct {
	db *sql.DB
}

func NewSentMessageStore(db *sql.DB) *SentMessageStore {
	return &SentMessageStore{db: db}
}

// CreatePending inserts the durable record of intent before the transport
// call. The row id is generated here when the caller did not set one.
func (s *SentMessageStore) CreatePending(ctx context.Context, m *models.SentMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Status = models.MessagePending

	const query = `
		INSERT INTO sent_messages
			(id, organization_id, booking_id, trigger_id, template_id,
			 recipient_email, recipient_name, subject, body, status, retry_count)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, 0)`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.OrganizationID, m.BookingID, m.TriggerID, m.TemplateID,
		m.RecipientEmail, m.RecipientName, m.Subject, m.Body, string(m.Status),
	)
	if err != nil {
		return apperrors.NewPersistenceFailureError("sent_messages.create", err)
	}
	return nil
}

// MarkSent records a transport-accepted send.
func (s *SentMessageStore) MarkSent(ctx context.Context, id, providerMessageID string, sentAt time.Time) error {
	const query = `
		UPDATE sent_messages
		SET status = 'sent', provider_message_id = $2, sent_at = $3,
		    error_message = NULL, updated_at = NOW()
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, id, providerMessageID, sentAt); err != nil {
		return apperrors.NewPersistenceFailureError("sent_messages.mark_sent", err)
	}
	return nil
}

// MarkFailed records a transport failure and bumps the retry counter.
func (s *SentMessageStore) MarkFailed(ctx context.Context, id, errorMessage string) error {
	const query = `
		UPDATE sent_messages
		SET status = 'failed', error_message = $2,
		    retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, id, errorMessage); err != nil {
		return apperrors.NewPersistenceFailureError("sent_messages.mark_failed", err)
	}
	return nil
}

// Get loads one sent message by id within the organization.
func (s *SentMessageStore) Get(ctx context.Context, orgID, id string) (*models.SentMessage, error) {
	const query = `
		SELECT id, organization_id, booking_id, COALESCE(trigger_id, ''),
		       COALESCE(template_id, ''), recipient_email, COALESCE(recipient_name, ''),
		       subject, body, status, COALESCE(provider_message_id, ''),
		       COALESCE(error_message, ''), retry_count, sent_at, created_at, updated_at
		FROM sent_messages
		WHERE id = $1 AND organization_id = $2`

	var m models.SentMessage
	err := s.db.QueryRowContext(ctx, query, id, orgID).Scan(
		&m.ID, &m.OrganizationID, &m.BookingID, &m.TriggerID,
		&m.TemplateID, &m.RecipientEmail, &m.RecipientName,
		&m.Subject, &m.Body, &m.Status, &m.ProviderMessageID,
		&m.ErrorMessage, &m.RetryCount, &m.SentAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewMessageNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("sent_messages.get", err)
	}
	return &m, nil
}
