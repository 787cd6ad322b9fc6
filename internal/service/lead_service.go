package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/leadcrm/internal/lifecycle"
	"github.com/kkkkikiki/leadcrm/internal/metrics"
	"github.com/kkkkikiki/leadcrm/internal/model"
	"github.com/kkkkikiki/leadcrm/internal/repository"
)

// ClaimOutcome is the arbitration result of a recovery attempt.
type ClaimOutcome int

const (
	// ClaimWon: the caller is the new owner of the lead.
	ClaimWon ClaimOutcome = iota
	// ClaimLostRace: the lead was PERSO but another claimant recovered
	// it first. Callers should refresh their view, not retry.
	ClaimLostRace
	// ClaimNotRecoverable: the lead was never PERSO; caller error, not
	// a race.
	ClaimNotRecoverable
)

// ClaimResult carries the arbitration outcome and the lead as last read.
type ClaimResult struct {
	Outcome ClaimOutcome
	Lead    *model.Lead
}

// LeadService owns the lead lifecycle: claim arbitration, call logging
// and enrollment.
type LeadService struct {
	db       *sqlx.DB
	leads    *repository.LeadRepository
	notifier Notifier
	activity ActivityLog
}

// NewLeadService creates a new LeadService instance
func NewLeadService(db *sqlx.DB, notifier Notifier, activity ActivityLog) *LeadService {
	return &LeadService{
		db:       db,
		leads:    repository.NewLeadRepository(),
		notifier: notifier,
		activity: activity,
	}
}

// Lost-pool paging bounds, shared with the HTTP layer so the response
// envelope always reflects the page size actually queried.
const (
	DefaultLostPageSize = 20
	MaxLostPageSize     = 100
)

// ListLost returns a page of the lost-lead pool.
func (s *LeadService) ListLost(ctx context.Context, f repository.LostLeadFilter) ([]model.Lead, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultLostPageSize
	}
	if f.PageSize > MaxLostPageSize {
		f.PageSize = MaxLostPageSize
	}
	return s.leads.ListLost(ctx, s.db, f)
}

// Get returns one lead.
func (s *LeadService) Get(ctx context.Context, leadID string) (*model.Lead, error) {
	lead, err := s.leads.Get(ctx, s.db, leadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lead %s: %w", leadID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// Claim lets claimantID race to recover a PERSO lead. At most one
// concurrent claimant wins; everyone else is told unambiguously that
// they lost. The arbitration is a single conditional update at the
// storage layer, so there is no in-process locking and no window between
// read and write.
func (s *LeadService) Claim(ctx context.Context, leadID, claimantID string) (*ClaimResult, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.RecordClaim(outcome, time.Since(start).Seconds())
	}()

	if claimantID == "" {
		return nil, fmt.Errorf("claimant id is required: %w", ErrValidation)
	}

	// Advisory precondition read. The conditional write below is the
	// authority; this read only distinguishes "never recoverable" from
	// "lost the race" and remembers the previous owner.
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status != model.StatusPerso {
		outcome = "not_recoverable"
		return &ClaimResult{Outcome: ClaimNotRecoverable, Lead: lead}, nil
	}
	previousOwner := lead.AssignedToID

	rows, err := s.leads.ClaimLost(ctx, s.db, leadID, claimantID, time.Now())
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		// Someone else's conditional write got there first. Re-read so
		// the caller sees who owns the lead now.
		current, err := s.Get(ctx, leadID)
		if err != nil {
			return nil, err
		}
		if current.Status != model.StatusPerso {
			outcome = "lost_race"
			return &ClaimResult{Outcome: ClaimLostRace, Lead: current}, nil
		}
		// Still PERSO after an unmatched conditional write should not
		// happen; treat it as a race loss rather than invent an error.
		outcome = "lost_race"
		return &ClaimResult{Outcome: ClaimLostRace, Lead: current}, nil
	}

	claimed, err := s.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	outcome = "won"

	s.recordActivity(ctx, leadID, claimantID, model.ActivityRecovery,
		fmt.Sprintf("Lead %q recuperato da %s", claimed.Name, claimantID))
	if previousOwner != nil && *previousOwner != claimantID {
		s.notify(ctx, *previousOwner, "lead_recovered", "Lead recuperato",
			fmt.Sprintf("Il lead %q è stato recuperato da un altro commerciale", claimed.Name),
			"/leads/"+leadID)
	}

	return &ClaimResult{Outcome: ClaimWon, Lead: claimed}, nil
}

// RecordCall applies a call outcome to a lead through the state machine.
func (s *LeadService) RecordCall(ctx context.Context, leadID, actorID string, outcome model.CallOutcome) (*model.Lead, error) {
	switch outcome {
	case model.OutcomePositivo, model.OutcomeNegativo, model.OutcomeRichiamare:
	default:
		return nil, fmt.Errorf("unknown call outcome %q: %w", outcome, ErrValidation)
	}

	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}

	updated, res := lifecycle.Transition(*lead, lifecycle.CallLogged(outcome, time.Now()))
	if res.Invalid {
		return nil, fmt.Errorf("call outcome not applicable to status %s: %w", lead.Status, ErrRuleViolation)
	}

	if err := s.leads.Update(ctx, s.db, &updated); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, leadID, actorID, model.ActivityCall,
		fmt.Sprintf("Chiamata registrata con esito %s", outcome))
	return &updated, nil
}

// Enroll converts a lead in negotiation to ISCRITTO.
func (s *LeadService) Enroll(ctx context.Context, leadID, actorID string) (*model.Lead, error) {
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}

	updated, res := lifecycle.Transition(*lead, lifecycle.Enrolled(time.Now()))
	if res.Invalid {
		return nil, fmt.Errorf("only leads in negotiation can be enrolled (status %s): %w", lead.Status, ErrRuleViolation)
	}

	if err := s.leads.Update(ctx, s.db, &updated); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, leadID, actorID, model.ActivityEnrolled, "Lead iscritto al corso")
	return &updated, nil
}

// recordActivity writes to the audit log without letting a sink failure
// abort the triggering operation.
func (s *LeadService) recordActivity(ctx context.Context, leadID, actorID, activityType, description string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, leadID, actorID, activityType, description); err != nil {
		log.Printf("failed to record activity for lead %s: %v", leadID, err)
	}
}

func (s *LeadService) notify(ctx context.Context, userID, kind, title, message, link string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, title, message, link); err != nil {
		log.Printf("failed to notify user %s: %v", userID, err)
	}
}
