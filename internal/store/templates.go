// internal/store/templates.go
package store

import (
	"context"
	"database/sql"

	apperrors "stayflow-messaging/internal/common/errors"
	"stayflow-messaging/internal/models"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Get loads one message template by id within the organization.
func (s *TemplateStore) Get(ctx context.Context, orgID, templateID string) (*models.MessageTemplate, error) {
	const query = `
		SELECT id, organization_id, title, recipient, body, created_at, updated_at
		FROM message_templates
		WHERE id = $1 AND organization_id = $2`

	var t models.MessageTemplate
	err := s.db.QueryRowContext(ctx, query, templateID, orgID).Scan(
		&t.ID, &t.OrganizationID, &t.Title, &t.Recipient, &t.Body,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTemplateNotFoundError(templateID)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailureError("templates.get", err)
	}
	return &t, nil
}
