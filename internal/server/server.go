// internal/server/server.go

// Package server exposes the engine's HTTP surface: the hourly cron endpoint,
// the internal booking-status hook, manual retry, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stayflow-messaging/internal/common/logger"
	"stayflow-messaging/internal/dispatch"
	"stayflow-messaging/internal/models"
	"stayflow-messaging/internal/trigger"
)

// Sweeper runs one scheduled-trigger sweep.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (trigger.Stats, error)
}

// Evaluator is the fire-and-forget status-change hook target.
type Evaluator interface {
	OnStatusChange(bookingID, orgID string, newStatus models.BookingStatus)
}

// Retrier re-attempts an existing sent message.
type Retrier interface {
	Retry(ctx context.Context, orgID, sentMessageID string) dispatch.Result
}

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	sweeper    Sweeper
	evaluator  Evaluator
	retrier    Retrier
	db         Pinger
	cronSecret string
	logger     logger.Logger
	now        func() time.Time
}

func New(sweeper Sweeper, evaluator Evaluator, retrier Retrier, db Pinger, cronSecret string, log logger.Logger) *Server {
	return &Server{
		sweeper:    sweeper,
		evaluator:  evaluator,
		retrier:    retrier,
		db:         db,
		cronSecret: cronSecret,
		logger:     log.WithFields(map[string]interface{}{"component": "http"}),
		now:        time.Now,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cron/process-scheduled-messages", s.handleCron)
	mux.HandleFunc("/api/hooks/booking-status", s.handleStatusHook)
	mux.HandleFunc("/api/messages/retry", s.handleRetry)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// handleCron is the hourly sweep entry point. Safe to invoke manually: the
// ledger makes repeated runs idempotent.
func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"error": "method not allowed"})
		return
	}

	if s.cronSecret == "" {
		s.logger.Error("cron secret is not configured", nil)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "cron job is not configured"})
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+s.cronSecret {
		s.logger.Warn("unauthorized cron request", map[string]interface{}{"remote": r.RemoteAddr})
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": "unauthorized"})
		return
	}

	now := s.now()
	stats, err := s.sweeper.Sweep(r.Context(), now)
	if err != nil {
		s.logger.Error("sweep failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"timestamp": now.UTC().Format(time.RFC3339),
		"stats":     stats,
	})
}

type statusHookRequest struct {
	BookingID      string `json:"booking_id"`
	OrganizationID string `json:"organization_id"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status"`
}

// handleStatusHook accepts a booking status transition and spawns trigger
// evaluation. It replies before evaluation finishes; dispatch errors never
// surface here.
func (s *Server) handleStatusHook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"error": "method not allowed"})
		return
	}

	var req statusHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
		return
	}
	if req.BookingID == "" || req.OrganizationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "booking_id and organization_id are required"})
		return
	}

	newStatus := models.BookingStatus(req.NewStatus)
	if !newStatus.IsValid() {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "unknown booking status: " + req.NewStatus})
		return
	}

	// A repeated status write is a no-op update; firing would re-send the
	// transition's triggers.
	if req.OldStatus == req.NewStatus {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "skipped": true})
		return
	}

	s.evaluator.OnStatusChange(req.BookingID, req.OrganizationID, newStatus)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"success": true})
}

type retryRequest struct {
	OrganizationID string `json:"organization_id"`
	SentMessageID  string `json:"sent_message_id"`
}

// handleRetry re-attempts a failed send. The raw error string is surfaced so
// manually-triggered test sends show what actually went wrong.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"error": "method not allowed"})
		return
	}

	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
		return
	}
	if req.OrganizationID == "" || req.SentMessageID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "organization_id and sent_message_id are required"})
		return
	}

	result := s.retrier.Retry(r.Context(), req.OrganizationID, req.SentMessageID)
	if !result.Success {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success":         false,
			"sent_message_id": result.SentMessageID,
			"error":           result.ErrorString(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"sent_message_id": result.SentMessageID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
