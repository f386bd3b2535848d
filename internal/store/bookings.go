// internal/store/bookings.go

// Package store holds the SQL data access for the messaging engine. Every
// query is scoped to one organization; nothing in here crosses tenants.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	apperrors "stayflow-messaging/internal/common/errors"
	"stayflow-messaging/internal/models"
)

type BookingStore struct {
	db *sql.DB
}

func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{db: db}
}

// GetWithProperty loads a booking joined with its property.
func (s *BookingStore) GetWithProperty(ctx context.Context, orgID, bookingID string) (*models.BookingWithProperty, error) {
	const query = `
		SELECT b.id, b.organization_id, b.property_id, b.guest_name, b.phone,
		       COALESCE(b.guest_email, ''), b.check_in, b.check_out, b.guests,
		       b.price, b.status, COALESCE(b.notes, ''), b.created_at, b.updated_at,
		       p.id, p.organization_id, p.name
		FROM bookings b
		JOIN properties p ON p.id = b.property_id
		WHERE b.id = $1 AND b.organization_id = $2`

	var b models.BookingWithProperty
	err := s.db.QueryRowContext(ctx, query, bookingID, orgID).Scan(
		&b.ID, &b.OrganizationID, &b.PropertyID, &b.GuestName, &b.Phone,
		&b.GuestEmail, &b.CheckIn, &b.CheckOut, &b.Guests,
		&b.Price, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
		&b.Property.ID, &b.Property.OrganizationID, &b.Property.Name,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBookingNotFoundError(bookingID)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("bookings.get", err)
	}
	return &b, nil
}

// ListForSweep returns bookings a time-based trigger may fire for: same
// organization, guest email present, check-in inside [from, to], optionally
// restricted to the trigger's assigned properties.
func (s *BookingStore) ListForSweep(ctx context.Context, orgID string, propertyIDs []string, from, to time.Time) ([]models.Booking, error) {
	query := `
		SELECT id, organization_id, property_id, guest_name, phone,
		       COALESCE(guest_email, ''), check_in, check_out, guests,
		       price, status, COALESCE(notes, ''), created_at, updated_at
		FROM bookings
		WHERE organization_id = $1
		  AND guest_email IS NOT NULL AND guest_email <> ''
		  AND check_in >= $2 AND check_in <= $3`
	args := []interface{}{orgID, from, to}

	if len(propertyIDs) > 0 {
		query += ` AND property_id = ANY($4)`
		args = append(args, pq.Array(propertyIDs))
	}
	query += ` ORDER BY check_in`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("bookings.list_for_sweep", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.OrganizationID, &b.PropertyID, &b.GuestName, &b.Phone,
			&b.GuestEmail, &b.CheckIn, &b.CheckOut, &b.Guests,
			&b.Price, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewPersistenceFailureError("bookings.list_for_sweep.scan", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailureError("bookings.list_for_sweep.rows", err)
	}
	return bookings, nil
}
