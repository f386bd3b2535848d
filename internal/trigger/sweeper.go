// internal/trigger/sweeper.go
package trigger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stayflow-messaging/internal/common/logger"
	"stayflow-messaging/internal/common/metrics"
	"stayflow-messaging/internal/dispatch"
	"stayflow-messaging/internal/models"
)

type TimeTriggerStore interface {
	ActiveTimeTriggers(ctx context.Context) ([]models.MessageTrigger, error)
}

type SweepBookingStore interface {
	ListForSweep(ctx context.Context, orgID string, propertyIDs []string, from, to time.Time) ([]models.Booking, error)
}

// SweepLedger is the idempotency pre-check the sweep runs before handing a
// due pair to the dispatcher.
type SweepLedger interface {
	HasSent(ctx context.Context, bookingID, triggerID string) (bool, error)
}

// Locker serializes sweeps best-effort. Correctness never depends on it; it
// only avoids re-evaluating the same window from overlapping runs.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// Stats tallies one sweep invocation.
type Stats struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// SweeperConfig bounds the booking scan and the fire window. The scan window
// determines which due triggers the sweep can discover at all, so it is
// configuration, not a literal.
type SweeperConfig struct {
	LookbackDays  int           // bookings with check-in this far back are scanned
	LookaheadDays int           // bookings with check-in this far ahead are scanned
	Tolerance     time.Duration // trailing fire window, matches the sweep cadence
}

// Sweeper evaluates time-based triggers against the rolling booking window.
type Sweeper struct {
	triggers   TimeTriggerStore
	bookings   SweepBookingStore
	ledger     SweepLedger
	dispatcher Dispatcher
	locker     Locker // nil when redis is not configured
	cfg        SweeperConfig
	logger     logger.Logger
}

func NewSweeper(
	triggers TimeTriggerStore,
	bookings SweepBookingStore,
	ledger SweepLedger,
	d Dispatcher,
	locker Locker,
	cfg SweeperConfig,
	log logger.Logger,
) *Sweeper {
	return &Sweeper{
		triggers:   triggers,
		bookings:   bookings,
		ledger:     ledger,
		dispatcher: d,
		locker:     locker,
		cfg:        cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "sweeper"}),
	}
}

// Sweep evaluates every active time-based trigger once against the booking
// window around now. Per-trigger and per-booking errors are logged and
// swallowed; a single bad row never aborts the batch.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats

	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx)
		if err != nil {
			s.logger.Warn("sweep lock unavailable, proceeding without it", map[string]interface{}{"error": err.Error()})
		} else if !acquired {
			s.logger.Info("another sweep holds the lock, skipping this run", nil)
			return stats, nil
		} else {
			defer s.locker.Release(ctx)
		}
	}

	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	s.logger.Info("sweep started", map[string]interface{}{"now": now.UTC().Format(time.RFC3339)})

	triggers, err := s.triggers.ActiveTimeTriggers(ctx)
	if err != nil {
		return stats, err
	}
	if len(triggers) == 0 {
		s.logger.Info("no active time-based triggers", nil)
		return stats, nil
	}

	from := now.Add(-time.Duration(s.cfg.LookbackDays) * 24 * time.Hour)
	to := now.Add(time.Duration(s.cfg.LookaheadDays) * 24 * time.Hour)

	for _, t := range triggers {
		if err := s.sweepTrigger(ctx, &t, now, from, to, &stats); err != nil {
			s.logger.Error("trigger sweep failed", map[string]interface{}{
				"triggerId": t.ID,
				"error":     err.Error(),
			})
		}
	}

	s.logger.Info("sweep complete", map[string]interface{}{
		"processed": stats.Processed,
		"sent":      stats.Sent,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
	})
	return stats, nil
}

func (s *Sweeper) sweepTrigger(ctx context.Context, t *models.MessageTrigger, now, from, to time.Time, stats *Stats) error {
	bookings, err := s.bookings.ListForSweep(ctx, t.OrganizationID, t.PropertyIDs, from, to)
	if err != nil {
		return err
	}

	for _, b := range bookings {
		stats.Processed++

		target, err := FireTime(t, b.CheckIn, b.CheckOut)
		if err != nil {
			stats.Failed++
			metrics.SweepPairsProcessed.WithLabelValues("failed").Inc()
			s.logger.Error("fire time computation failed", map[string]interface{}{
				"triggerId": t.ID,
				"bookingId": b.ID,
				"error":     err.Error(),
			})
			continue
		}

		if !dueNow(target, now, s.cfg.Tolerance) {
			stats.Skipped++
			metrics.SweepPairsProcessed.WithLabelValues("not_due").Inc()
			continue
		}

		// Pre-check the ledger: a due pair would otherwise be reconsidered
		// every sweep until the booking leaves the scan window.
		sent, err := s.ledger.HasSent(ctx, b.ID, t.ID)
		if err != nil {
			stats.Failed++
			metrics.SweepPairsProcessed.WithLabelValues("failed").Inc()
			s.logger.Error("ledger check failed", map[string]interface{}{
				"triggerId": t.ID,
				"bookingId": b.ID,
				"error":     err.Error(),
			})
			continue
		}
		if sent {
			stats.Skipped++
			metrics.SweepPairsProcessed.WithLabelValues("already_sent").Inc()
			continue
		}

		result := s.dispatcher.Dispatch(ctx, dispatch.Request{
			OrganizationID: t.OrganizationID,
			BookingID:      b.ID,
			TriggerID:      t.ID,
			TemplateID:     t.TemplateID,
			TriggerType:    models.TriggerTimeBased,
		})
		if result.Success {
			stats.Sent++
			metrics.SweepPairsProcessed.WithLabelValues("sent").Inc()
		} else {
			stats.Failed++
			metrics.SweepPairsProcessed.WithLabelValues("failed").Inc()
			s.logger.Error("scheduled dispatch failed", map[string]interface{}{
				"triggerId": t.ID,
				"bookingId": b.ID,
				"error":     result.ErrorString(),
			})
		}
	}
	return nil
}

// FireTime computes the instant a time-based trigger targets for a booking:
// the offset applied to the referenced stay boundary, with the time of day
// overridden to the trigger's send time.
func FireTime(t *models.MessageTrigger, checkIn, checkOut time.Time) (time.Time, error) {
	var base time.Time
	switch t.TimeReference {
	case models.BeforeCheckIn, models.AfterCheckIn:
		base = checkIn
	case models.BeforeCheckOut, models.AfterCheckOut:
		base = checkOut
	default:
		return time.Time{}, fmt.Errorf("unknown time reference: %q", t.TimeReference)
	}

	offset := time.Duration(t.TimeOffsetValue) * time.Hour
	if t.TimeOffsetUnit == models.OffsetDays {
		offset = time.Duration(t.TimeOffsetValue) * 24 * time.Hour
	}

	target := base.Add(offset)
	if strings.HasPrefix(string(t.TimeReference), "before") {
		target = base.Add(-offset)
	}

	hour, minute, sec, err := parseSendTime(t.SendTime)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(target.Year(), target.Month(), target.Day(), hour, minute, sec, 0, target.Location()), nil
}

// PreviewFireTime reports when a trigger will fire for a stay window, for
// trigger-form previews and manual testing.
func PreviewFireTime(t *models.MessageTrigger, checkIn, checkOut time.Time) (string, error) {
	target, err := FireTime(t, checkIn, checkOut)
	if err != nil {
		return "", err
	}
	return target.Format(time.RFC3339), nil
}

// dueNow applies the trailing tolerance window: fire iff the target fell
// within the last sweep interval.
func dueNow(target, now time.Time, tolerance time.Duration) bool {
	earliest := now.Add(-tolerance)
	return !target.Before(earliest) && !target.After(now)
}

// parseSendTime parses HH:MM or HH:MM:SS.
func parseSendTime(s string) (hour, minute, sec int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("invalid send time: %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err == nil {
		minute, err = strconv.Atoi(parts[1])
	}
	if err == nil && len(parts) == 3 {
		sec, err = strconv.Atoi(parts[2])
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid send time: %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || sec < 0 || sec > 59 {
		return 0, 0, 0, fmt.Errorf("send time out of range: %q", s)
	}
	return hour, minute, sec, nil
}
