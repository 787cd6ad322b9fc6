package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kkkkikiki/leadcrm/internal/model"
)

// ActivityRepository persists the lead audit log
type ActivityRepository struct{}

// NewActivityRepository creates a new activity repository
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

// Insert appends an activity-log entry.
func (r *ActivityRepository) Insert(ctx context.Context, db DBExecutor, activity *model.LeadActivity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO lead_activities (id, lead_id, actor_id, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := db.ExecContext(ctx, query,
		activity.ID, activity.LeadID, activity.ActorID, activity.Type, activity.Description, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert lead activity: %w", err)
	}
	return nil
}

// ListByLead returns the audit trail of one lead, newest first.
func (r *ActivityRepository) ListByLead(ctx context.Context, db DBExecutor, leadID string) ([]model.LeadActivity, error) {
	query := `
		SELECT id, lead_id, actor_id, type, description, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`

	activities := []model.LeadActivity{}
	if err := db.SelectContext(ctx, &activities, query, leadID); err != nil {
		return nil, fmt.Errorf("failed to list lead activities: %w", err)
	}
	return activities, nil
}
