// internal/store/bookings_test.go
package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stayflow-messaging/internal/common/errors"
)

var (
	testCheckIn  = time.Date(2025, 12, 15, 15, 0, 0, 0, time.UTC)
	testCheckOut = time.Date(2025, 12, 18, 11, 0, 0, 0, time.UTC)
	testNow      = time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
)

func bookingWithPropertyRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "property_id", "guest_name", "phone",
		"guest_email", "check_in", "check_out", "guests",
		"price", "status", "notes", "created_at", "updated_at",
		"p_id", "p_organization_id", "p_name",
	}).AddRow(
		"booking-001", "org-001", "prop-001", "Aisyah Rahman", "+60123456789",
		"aisyah@example.com", testCheckIn, testCheckOut, 2,
		450.5, "confirmed", "", testNow, testNow,
		"prop-001", "org-001", "Seaside Villa",
	)
}

func TestBookingStore_GetWithProperty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings b`).
		WithArgs("booking-001", "org-001").
		WillReturnRows(bookingWithPropertyRow())

	s := NewBookingStore(db)
	b, err := s.GetWithProperty(context.Background(), "org-001", "booking-001")

	require.NoError(t, err)
	assert.Equal(t, "booking-001", b.ID)
	assert.Equal(t, "aisyah@example.com", b.GuestEmail)
	assert.Equal(t, "Seaside Villa", b.Property.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_GetWithProperty_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings b`).
		WithArgs("booking-404", "org-001").
		WillReturnError(sql.ErrNoRows)

	s := NewBookingStore(db)
	_, err = s.GetWithProperty(context.Background(), "org-001", "booking-404")

	assert.Equal(t, apperrors.ErrCodeBookingNotFound, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sweepBookingRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "property_id", "guest_name", "phone",
		"guest_email", "check_in", "check_out", "guests",
		"price", "status", "notes", "created_at", "updated_at",
	})
	for _, id := range ids {
		rows.AddRow(id, "org-001", "prop-001", "Aisyah Rahman", "+60123456789",
			"aisyah@example.com", testCheckIn, testCheckOut, 2,
			450.5, "confirmed", "", testNow, testNow)
	}
	return rows
}

func TestBookingStore_ListForSweep_AllProperties(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := testNow.AddDate(0, 0, -7)
	to := testNow.AddDate(0, 0, 30)

	mock.ExpectQuery(`FROM bookings`).
		WithArgs("org-001", from, to).
		WillReturnRows(sweepBookingRows("booking-001", "booking-002"))

	s := NewBookingStore(db)
	bookings, err := s.ListForSweep(context.Background(), "org-001", nil, from, to)

	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "booking-001", bookings[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_ListForSweep_PropertyFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := testNow.AddDate(0, 0, -7)
	to := testNow.AddDate(0, 0, 30)

	mock.ExpectQuery(`property_id = ANY`).
		WithArgs("org-001", from, to, pq.Array([]string{"prop-001", "prop-002"})).
		WillReturnRows(sweepBookingRows("booking-001"))

	s := NewBookingStore(db)
	bookings, err := s.ListForSweep(context.Background(), "org-001", []string{"prop-001", "prop-002"}, from, to)

	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_ListForSweep_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM bookings`).
		WillReturnError(sql.ErrConnDone)

	s := NewBookingStore(db)
	_, err = s.ListForSweep(context.Background(), "org-001", nil, testNow, testNow)

	assert.Equal(t, apperrors.ErrCodePersistenceFailure, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
}
