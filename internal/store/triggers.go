// internal/store/triggers.go
package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	apperrors "stayflow-messaging/internal/common/errors"
	"stayflow-messaging/internal/models"
)

type TriggerStore struct {
	db *sql.DB
}

func NewTriggerStore(db *sql.DB) *TriggerStore {
	return &TriggerStore{db: db}
}

// ActiveEventTriggers returns active event triggers in the organization for
// one event type, with property associations loaded.
func (s *TriggerStore) ActiveEventTriggers(ctx context.Context, orgID string, event models.EventType) ([]models.MessageTrigger, error) {
	const query = `
		SELECT id, organization_id, name, template_id, trigger_type,
		       COALESCE(event_type, ''), is_active, created_at, updated_at
		FROM message_triggers
		WHERE organization_id = $1
		  AND trigger_type = 'event'
		  AND event_type = $2
		  AND is_active = TRUE`

	rows, err := s.db.QueryContext(ctx, query, orgID, string(event))
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("triggers.active_event", err)
	}
	triggers, err := scanEventTriggers(rows)
	if err != nil {
		return nil, err
	}
	if err := s.loadAssignments(ctx, triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}

// ActiveTimeTriggers returns every active time-based trigger across all
// organizations, with property associations loaded. The sweep iterates the
// full set; each trigger carries its own organization id.
func (s *TriggerStore) ActiveTimeTriggers(ctx context.Context) ([]models.MessageTrigger, error) {
	const query = `
		SELECT id, organization_id, name, template_id, trigger_type,
		       COALESCE(time_offset_value, 0), COALESCE(time_offset_unit, ''),
		       COALESCE(time_reference, ''), COALESCE(send_time::text, ''),
		       is_active, created_at, updated_at
		FROM message_triggers
		WHERE trigger_type = 'time_based' AND is_active = TRUE`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("triggers.active_time", err)
	}
	defer rows.Close()

	var triggers []models.MessageTrigger
	for rows.Next() {
		var t models.MessageTrigger
		if err := rows.Scan(
			&t.ID, &t.OrganizationID, &t.Name, &t.TemplateID, &t.Type,
			&t.TimeOffsetValue, &t.TimeOffsetUnit,
			&t.TimeReference, &t.SendTime,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewPersistenceFailureError("triggers.active_time.scan", err)
		}
		triggers = append(triggers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailureError("triggers.active_time.rows", err)
	}
	if err := s.loadAssignments(ctx, triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}

func scanEventTriggers(rows *sql.Rows) ([]models.MessageTrigger, error) {
	defer rows.Close()

	var triggers []models.MessageTrigger
	for rows.Next() {
		var t models.MessageTrigger
		if err := rows.Scan(
			&t.ID, &t.OrganizationID, &t.Name, &t.TemplateID, &t.Type,
			&t.EventType, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewPersistenceFailureError("triggers.active_event.scan", err)
		}
		triggers = append(triggers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailureError("triggers.active_event.rows", err)
	}
	return triggers, nil
}

// loadAssignments fills PropertyIDs for the given triggers in one query.
func (s *TriggerStore) loadAssignments(ctx context.Context, triggers []models.MessageTrigger) error {
	if len(triggers) == 0 {
		return nil
	}

	ids := make([]string, len(triggers))
	index := make(map[string]*models.MessageTrigger, len(triggers))
	for i := range triggers {
		ids[i] = triggers[i].ID
		index[triggers[i].ID] = &triggers[i]
	}

	const query = `
		SELECT trigger_id, property_id
		FROM trigger_property_assignments
		WHERE trigger_id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return apperrors.NewPersistenceFailureError("triggers.assignments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var triggerID, propertyID string
		if err := rows.Scan(&triggerID, &propertyID); err != nil {
			return apperrors.NewPersistenceFailureError("triggers.assignments.scan", err)
		}
		if t, ok := index[triggerID]; ok {
			t.PropertyIDs = append(t.PropertyIDs, propertyID)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewPersistenceFailureError("triggers.assignments.rows", err)
	}
	return nil
}
