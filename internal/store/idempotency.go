// internal/store/idempotency.go
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "stayflow-messaging/internal/common/errors"
	"stayflow-messaging/internal/models"
)

// uniqueViolation is the postgres error code raised when an insert hits the
// idempotency key's UNIQUE constraint.
const uniqueViolation = "23505"

// IdempotencyStore is the ledger gating every send. One record per
// (booking, trigger) pair, written only after the transport accepts a send.
type IdempotencyStore struct {
	db *sql.DB
}

func NewIdempotencyStore(db *sql.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// HasSent reports whether a send has already been accepted for the pair.
func (s *IdempotencyStore) HasSent(ctx context.Context, bookingID, triggerID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM message_idempotency WHERE idempotency_key = $1
		)`

	var exists bool
	err := s.db.QueryRowContext(ctx, query, models.IdempotencyKey(bookingID, triggerID)).Scan(&exists)
	if err != nil {
		return false, apperrors.NewPersistenceFailureError("idempotency.has_sent", err)
	}
	return exists, nil
}

// SentMessageID returns the id of the SentMessage a pair's ledger record
// points at, or "" when no record exists.
func (s *IdempotencyStore) SentMessageID(ctx context.Context, bookingID, triggerID string) (string, error) {
	const query = `
		SELECT COALESCE(sent_message_id, '') FROM message_idempotency
		WHERE idempotency_key = $1`

	var id string
	err := s.db.QueryRowContext(ctx, query, models.IdempotencyKey(bookingID, triggerID)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewPersistenceFailureError("idempotency.sent_message_id", err)
	}
	return id, nil
}

// RecordSent writes the ledger record making this pair permanently terminal.
// A unique-constraint violation means another dispatch won the race; that is
// returned as the ALREADY_SENT signal, not a persistence failure.
func (s *IdempotencyStore) RecordSent(ctx context.Context, orgID, bookingID, triggerID, sentMessageID string) error {
	const query = `
		INSERT INTO message_idempotency
			(id, organization_id, booking_id, trigger_id, idempotency_key, sent_message_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), orgID, bookingID, triggerID,
		models.IdempotencyKey(bookingID, triggerID), sentMessageID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return apperrors.NewAlreadySentError(bookingID, triggerID)
		}
		return apperrors.NewPersistenceFailureError("idempotency.record_sent", err)
	}
	return nil
}
