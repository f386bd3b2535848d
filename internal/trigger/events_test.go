// internal/trigger/events_test.go
package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stayflow-messaging/internal/common/errors"
	"stayflow-messaging/internal/common/logger"
	"stayflow-messaging/internal/dispatch"
	"stayflow-messaging/internal/models"
)

// ==========================
// Fakes shared across the package tests
// ==========================

type fakeTriggerStore struct {
	eventTriggers []models.MessageTrigger
	timeTriggers  []models.MessageTrigger
	err           error
	lastEvent     models.EventType
}

func (f *fakeTriggerStore) ActiveEventTriggers(ctx context.Context, orgID string, event models.EventType) ([]models.MessageTrigger, error) {
	f.lastEvent = event
	return f.eventTriggers, f.err
}

func (f *fakeTriggerStore) ActiveTimeTriggers(ctx context.Context) ([]models.MessageTrigger, error) {
	return f.timeTriggers, f.err
}

type fakeBookingStore struct {
	booking  *models.BookingWithProperty
	bookings []models.Booking
	err      error
}

func (f *fakeBookingStore) GetWithProperty(ctx context.Context, orgID, bookingID string) (*models.BookingWithProperty, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.booking, nil
}

func (f *fakeBookingStore) ListForSweep(ctx context.Context, orgID string, propertyIDs []string, from, to time.Time) ([]models.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bookings, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []dispatch.Request
	results  map[string]dispatch.Result // by trigger id
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if r, ok := f.results[req.TriggerID]; ok {
		return r
	}
	return dispatch.Result{Success: true, SentMessageID: "msg-" + req.TriggerID}
}

func (f *fakeDispatcher) dispatched() []dispatch.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatch.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

type fakeLedger struct {
	sent map[string]bool
	err  error
}

func (f *fakeLedger) HasSent(ctx context.Context, bookingID, triggerID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.sent[models.IdempotencyKey(bookingID, triggerID)], nil
}

// ==========================
// Helpers
// ==========================

func eventBooking() *models.BookingWithProperty {
	return &models.BookingWithProperty{
		Booking: models.Booking{
			ID:             "booking-001",
			OrganizationID: "org-001",
			PropertyID:     "prop-001",
			GuestName:      "Aisyah Rahman",
			GuestEmail:     "aisyah@example.com",
			CheckIn:        time.Date(2025, 12, 15, 15, 0, 0, 0, time.UTC),
			CheckOut:       time.Date(2025, 12, 18, 11, 0, 0, 0, time.UTC),
			Status:         models.BookingConfirmed,
		},
		Property: models.Property{ID: "prop-001", Name: "Seaside Villa"},
	}
}

func eventTrigger(id string, propertyIDs ...string) models.MessageTrigger {
	return models.MessageTrigger{
		ID:             id,
		OrganizationID: "org-001",
		Name:           "confirmation",
		TemplateID:     "template-" + id,
		Type:           models.TriggerEvent,
		EventType:      models.EventBookingConfirmed,
		PropertyIDs:    propertyIDs,
		IsActive:       true,
	}
}

// ==========================
// Evaluate
// ==========================

func TestEvaluate_DispatchesMatchingTriggers(t *testing.T) {
	triggers := &fakeTriggerStore{eventTriggers: []models.MessageTrigger{
		eventTrigger("trigger-001"),
		eventTrigger("trigger-002"),
	}}
	d := &fakeDispatcher{}
	e := NewEvaluator(triggers, &fakeBookingStore{booking: eventBooking()}, d, logger.NewTestLogger(t))

	err := e.Evaluate(context.Background(), "booking-001", "org-001", models.BookingConfirmed)
	require.NoError(t, err)

	assert.Equal(t, models.EventBookingConfirmed, triggers.lastEvent)

	reqs := d.dispatched()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Equal(t, "org-001", req.OrganizationID)
		assert.Equal(t, "booking-001", req.BookingID)
		assert.Equal(t, models.TriggerEvent, req.TriggerType)
		assert.Equal(t, "template-"+req.TriggerID, req.TemplateID)
	}
}

func TestEvaluate_StatusEventMapping(t *testing.T) {
	cases := []struct {
		status models.BookingStatus
		event  models.EventType
	}{
		{models.BookingPending, models.EventBookingCreated},
		{models.BookingConfirmed, models.EventBookingConfirmed},
		{models.BookingCheckedIn, models.EventBookingCheckedIn},
		{models.BookingCheckedOut, models.EventBookingCheckedOut},
		{models.BookingCompleted, models.EventBookingCompleted},
		{models.BookingCancelled, models.EventBookingCancelled},
		{models.BookingNoShow, models.EventBookingNoShow},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			triggers := &fakeTriggerStore{}
			e := NewEvaluator(triggers, &fakeBookingStore{booking: eventBooking()}, &fakeDispatcher{}, logger.NewNoOpLogger())

			err := e.Evaluate(context.Background(), "booking-001", "org-001", tc.status)
			require.NoError(t, err)
			assert.Equal(t, tc.event, triggers.lastEvent)
		})
	}
}

func TestEvaluate_UnknownStatus(t *testing.T) {
	e := NewEvaluator(&fakeTriggerStore{}, &fakeBookingStore{booking: eventBooking()}, &fakeDispatcher{}, logger.NewNoOpLogger())

	err := e.Evaluate(context.Background(), "booking-001", "org-001", models.BookingStatus("archived"))
	assert.Error(t, err)
}

func TestEvaluate_NoGuestEmailSkipsSilently(t *testing.T) {
	booking := eventBooking()
	booking.GuestEmail = ""
	d := &fakeDispatcher{}
	e := NewEvaluator(
		&fakeTriggerStore{eventTriggers: []models.MessageTrigger{eventTrigger("trigger-001")}},
		&fakeBookingStore{booking: booking}, d, logger.NewNoOpLogger(),
	)

	err := e.Evaluate(context.Background(), "booking-001", "org-001", models.BookingConfirmed)
	assert.NoError(t, err)
	assert.Empty(t, d.dispatched())
}

func TestEvaluate_PropertyScoping(t *testing.T) {
	triggers := &fakeTriggerStore{eventTriggers: []models.MessageTrigger{
		eventTrigger("trigger-all"),                           // no assignments: applies everywhere
		eventTrigger("trigger-here", "prop-001"),              // assigned to the booking's property
		eventTrigger("trigger-elsewhere", "prop-002"),         // different property
		eventTrigger("trigger-multi", "prop-002", "prop-001"), // includes the booking's property
	}}
	d := &fakeDispatcher{}
	e := NewEvaluator(triggers, &fakeBookingStore{booking: eventBooking()}, d, logger.NewNoOpLogger())

	err := e.Evaluate(context.Background(), "booking-001", "org-001", models.BookingConfirmed)
	require.NoError(t, err)

	fired := make(map[string]bool)
	for _, req := range d.dispatched() {
		fired[req.TriggerID] = true
	}
	assert.True(t, fired["trigger-all"])
	assert.True(t, fired["trigger-here"])
	assert.True(t, fired["trigger-multi"])
	assert.False(t, fired["trigger-elsewhere"])
}

func TestEvaluate_OneFailureDoesNotBlockOthers(t *testing.T) {
	triggers := &fakeTriggerStore{eventTriggers: []models.MessageTrigger{
		eventTrigger("trigger-ok"),
		eventTrigger("trigger-bad"),
	}}
	d := &fakeDispatcher{results: map[string]dispatch.Result{
		"trigger-bad": {Err: apperrors.NewTransportFailureError(context.DeadlineExceeded)},
	}}
	e := NewEvaluator(triggers, &fakeBookingStore{booking: eventBooking()}, d, logger.NewNoOpLogger())

	// Per-trigger failures are logged, never propagated.
	err := e.Evaluate(context.Background(), "booking-001", "org-001", models.BookingConfirmed)
	assert.NoError(t, err)
	assert.Len(t, d.dispatched(), 2)
}

func TestEvaluate_BookingLookupFailure(t *testing.T) {
	e := NewEvaluator(&fakeTriggerStore{},
		&fakeBookingStore{err: apperrors.NewBookingNotFoundError("booking-404")},
		&fakeDispatcher{}, logger.NewNoOpLogger())

	err := e.Evaluate(context.Background(), "booking-404", "org-001", models.BookingConfirmed)
	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBookingNotFound, apperrors.CodeOf(err))
}

func TestOnStatusChange_DoesNotPanicThrough(t *testing.T) {
	// The hook must absorb everything, including a panicking dispatcher.
	e := NewEvaluator(&fakeTriggerStore{err: apperrors.NewPersistenceFailureError("triggers", context.Canceled)},
		&fakeBookingStore{booking: eventBooking()}, &fakeDispatcher{}, logger.NewNoOpLogger())

	assert.NotPanics(t, func() {
		e.OnStatusChange("booking-001", "org-001", models.BookingConfirmed)
	})
	// Give the spawned goroutine a moment to run to completion.
	time.Sleep(50 * time.Millisecond)
}
