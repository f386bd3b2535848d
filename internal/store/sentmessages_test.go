// internal/store/sentmessages_test.go
package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stayflow-messaging/internal/common/errors"
	"stayflow-messaging/internal/models"
)

func pendingMessage() *models.SentMessage {
	return &models.SentMessage{
		OrganizationID: "org-001",
		BookingID:      "booking-001",
		TriggerID:      "trigger-001",
		TemplateID:     "template-001",
		RecipientEmail: "aisyah@example.com",
		RecipientName:  "Aisyah Rahman",
		Subject:        "Booking Confirmed - Seaside Villa",
		Body:           "Hi Aisyah",
	}
}

func TestSentMessageStore_CreatePending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sent_messages`).
		WithArgs(
			sqlmock.AnyArg(), // generated uuid
			"org-001", "booking-001", "trigger-001", "template-001",
			"aisyah@example.com", "Aisyah Rahman",
			"Booking Confirmed - Seaside Villa", "Hi Aisyah", "pending",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewSentMessageStore(db)
	m := pendingMessage()
	err = s.CreatePending(context.Background(), m)

	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, models.MessagePending, m.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSentMessageStore_CreatePending_KeepsCallerID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sent_messages`).
		WithArgs("msg-fixed", "org-001", "booking-001", "trigger-001", "template-001",
			"aisyah@example.com", "Aisyah Rahman",
			"Booking Confirmed - Seaside Villa", "Hi Aisyah", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewSentMessageStore(db)
	m := pendingMessage()
	m.ID = "msg-fixed"
	require.NoError(t, s.CreatePending(context.Background(), m))
	assert.Equal(t, "msg-fixed", m.ID)
}

func TestSentMessageStore_MarkSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Date(2025, 12, 14, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE sent_messages`).
		WithArgs("msg-001", "ses-msg-123", sentAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewSentMessageStore(db)
	require.NoError(t, s.MarkSent(context.Background(), "msg-001", "ses-msg-123", sentAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSentMessageStore_MarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE sent_messages`).
		WithArgs("msg-001", "ses: throttled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewSentMessageStore(db)
	require.NoError(t, s.MarkFailed(context.Background(), "msg-001", "ses: throttled"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSentMessageStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Date(2025, 12, 14, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "booking_id", "trigger_id",
		"template_id", "recipient_email", "recipient_name",
		"subject", "body", "status", "provider_message_id",
		"error_message", "retry_count", "sent_at", "created_at", "updated_at",
	}).AddRow(
		"msg-001", "org-001", "booking-001", "trigger-001",
		"template-001", "aisyah@example.com", "Aisyah Rahman",
		"Booking Confirmed - Seaside Villa", "Hi Aisyah", "sent", "ses-msg-123",
		"", 0, sentAt, testNow, testNow,
	)

	mock.ExpectQuery(`FROM sent_messages`).
		WithArgs("msg-001", "org-001").
		WillReturnRows(rows)

	s := NewSentMessageStore(db)
	m, err := s.Get(context.Background(), "org-001", "msg-001")

	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, m.Status)
	require.NotNil(t, m.SentAt)
	assert.True(t, m.SentAt.Equal(sentAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSentMessageStore_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM sent_messages`).
		WithArgs("msg-404", "org-001").
		WillReturnError(sql.ErrNoRows)

	s := NewSentMessageStore(db)
	_, err = s.Get(context.Background(), "org-001", "msg-404")

	assert.Equal(t, apperrors.ErrCodeMessageNotFound, apperrors.CodeOf(err))
}
