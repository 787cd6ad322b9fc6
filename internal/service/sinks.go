package service

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/leadcrm/internal/model"
	"github.com/kkkkikiki/leadcrm/internal/repository"
)

// Notifier delivers user notifications. Delivery is fire-and-forget:
// failures are logged by callers and never abort the triggering
// operation.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, title, message, link string) error
}

// ActivityLog records lead audit-trail entries.
type ActivityLog interface {
	Record(ctx context.Context, leadID, actorID, activityType, description string) error
}

// LogNotifier writes notifications to the process log. It stands in for
// the real delivery channel in development and in tests.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID, kind, title, message, link string) error {
	log.Printf("notify user=%s kind=%s title=%q message=%q link=%s", userID, kind, title, message, link)
	return nil
}

// DBActivityLog persists activity entries through the activity
// repository.
type DBActivityLog struct {
	db   *sqlx.DB
	repo *repository.ActivityRepository
}

// NewDBActivityLog creates a Postgres-backed activity log.
func NewDBActivityLog(db *sqlx.DB) *DBActivityLog {
	return &DBActivityLog{db: db, repo: repository.NewActivityRepository()}
}

func (l *DBActivityLog) Record(ctx context.Context, leadID, actorID, activityType, description string) error {
	return l.repo.Insert(ctx, l.db, &model.LeadActivity{
		LeadID:      leadID,
		ActorID:     actorID,
		Type:        activityType,
		Description: description,
	})
}
