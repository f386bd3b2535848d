// internal/trigger/events.go

// Package trigger evaluates message triggers: event triggers fired on booking
// status transitions, and time-based triggers resolved by the periodic sweep.
package trigger

import (
	"context"
	"fmt"
	"sync"

	"stayflow-messaging/internal/common/logger"
	"stayflow-messaging/internal/dispatch"
	"stayflow-messaging/internal/models"
)

// Dispatcher is the outcome-reporting send pipeline from the dispatch package.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result
}

type EventTriggerStore interface {
	ActiveEventTriggers(ctx context.Context, orgID string, event models.EventType) ([]models.MessageTrigger, error)
}

type EventBookingStore interface {
	GetWithProperty(ctx context.Context, orgID, bookingID string) (*models.BookingWithProperty, error)
}

// Evaluator fires event triggers for booking status transitions.
type Evaluator struct {
	triggers   EventTriggerStore
	bookings   EventBookingStore
	dispatcher Dispatcher
	logger     logger.Logger
}

func NewEvaluator(triggers EventTriggerStore, bookings EventBookingStore, d Dispatcher, log logger.Logger) *Evaluator {
	return &Evaluator{
		triggers:   triggers,
		bookings:   bookings,
		dispatcher: d,
		logger:     log.WithFields(map[string]interface{}{"component": "event-evaluator"}),
	}
}

// OnStatusChange is the fire-and-forget hook invoked after a booking status
// write commits. Errors never reach the caller's control flow; the spawned
// task logs everything to the supervising sink.
func (e *Evaluator) OnStatusChange(bookingID, orgID string, newStatus models.BookingStatus) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("status change evaluation panicked", map[string]interface{}{
					"bookingId": bookingID,
					"panic":     fmt.Sprintf("%v", r),
				})
			}
		}()
		if err := e.Evaluate(context.Background(), bookingID, orgID, newStatus); err != nil {
			e.logger.Error("status change evaluation failed", map[string]interface{}{
				"bookingId": bookingID,
				"status":    string(newStatus),
				"error":     err.Error(),
			})
		}
	}()
}

// Evaluate runs the evaluation synchronously: map the status to its event,
// find matching triggers, and dispatch each one. Exposed for callers that
// want to await the outcome (tests, manual runs).
func (e *Evaluator) Evaluate(ctx context.Context, bookingID, orgID string, newStatus models.BookingStatus) error {
	event, ok := models.EventForStatus(newStatus)
	if !ok {
		return fmt.Errorf("unknown booking status: %s", newStatus)
	}

	log := e.logger.WithFields(map[string]interface{}{
		"bookingId": bookingID,
		"event":     string(event),
	})
	log.Info("processing event triggers", nil)

	booking, err := e.bookings.GetWithProperty(ctx, orgID, bookingID)
	if err != nil {
		return err
	}

	// Nothing to send without a recipient; not an error.
	if booking.GuestEmail == "" {
		log.Info("no guest email, skipping triggers", nil)
		return nil
	}

	triggers, err := e.triggers.ActiveEventTriggers(ctx, orgID, event)
	if err != nil {
		return err
	}

	applicable := triggers[:0]
	for _, t := range triggers {
		if t.AppliesToProperty(booking.PropertyID) {
			applicable = append(applicable, t)
		}
	}
	if len(applicable) == 0 {
		log.Info("no applicable triggers", nil)
		return nil
	}

	// Dispatches run concurrently and independently: one trigger's failure
	// must never block or fail another's.
	var wg sync.WaitGroup
	var mu sync.Mutex
	successful, failed := 0, 0

	for _, t := range applicable {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := e.dispatcher.Dispatch(ctx, dispatch.Request{
				OrganizationID: orgID,
				BookingID:      bookingID,
				TriggerID:      t.ID,
				TemplateID:     t.TemplateID,
				TriggerType:    models.TriggerEvent,
			})
			mu.Lock()
			defer mu.Unlock()
			if result.Success {
				successful++
			} else {
				failed++
				log.Error("trigger dispatch failed", map[string]interface{}{
					"triggerId": t.ID,
					"error":     result.ErrorString(),
				})
			}
		}()
	}
	wg.Wait()

	log.Info("event trigger processing complete", map[string]interface{}{
		"successful": successful,
		"failed":     failed,
	})
	return nil
}
