package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/kkkkikiki/leadcrm/internal/lifecycle"
	"github.com/kkkkikiki/leadcrm/internal/model"
)

const leadColumns = `id, name, course_id, campaign_id, status, contacted, contacted_at,
	enrolled, enrolled_at, call_attempts, first_attempt_at, last_attempt_at,
	lost_reason, lost_at, recovered_at, assigned_to_id, created_at, updated_at`

// LeadRepository handles lead data operations
type LeadRepository struct{}

// NewLeadRepository creates a new lead repository
func NewLeadRepository() *LeadRepository {
	return &LeadRepository{}
}

// Get retrieves a lead by ID. Returns sql.ErrNoRows when absent.
func (r *LeadRepository) Get(ctx context.Context, db DBExecutor, id string) (*model.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1`, leadColumns)

	var lead model.Lead
	if err := db.GetContext(ctx, &lead, query, id); err != nil {
		return nil, err
	}
	return &lead, nil
}

// LostLeadFilter narrows the lost-lead pool listing.
type LostLeadFilter struct {
	Search   string
	CourseID string
	Page     int
	PageSize int
}

// ListLost returns a page of PERSO leads plus the total match count.
func (r *LeadRepository) ListLost(ctx context.Context, db DBExecutor, f LostLeadFilter) ([]model.Lead, int, error) {
	where := []string{`status = 'PERSO'`}
	args := []interface{}{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if f.CourseID != "" {
		args = append(args, f.CourseID)
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM leads WHERE %s`, cond)
	if err := db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count lost leads: %w", err)
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY lost_at DESC NULLS LAST LIMIT $%d OFFSET $%d`,
		leadColumns, cond, len(args)-1, len(args))

	leads := []model.Lead{}
	if err := db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list lost leads: %w", err)
	}
	return leads, total, nil
}

// ClaimLost executes the atomic conditional recovery write and returns
// the number of rows affected. One row means the caller won the claim;
// zero means the lead was no longer PERSO at write time. This single
// statement is the compare-and-swap the whole arbitration rests on — do
// not split it into a read followed by an unconditional write.
func (r *LeadRepository) ClaimLost(ctx context.Context, db DBExecutor, leadID, claimantID string, now time.Time) (int64, error) {
	query := `
		UPDATE leads
		SET status = 'CONTATTATO',
		    call_attempts = 0,
		    lost_reason = NULL,
		    lost_at = NULL,
		    recovered_at = $1,
		    assigned_to_id = $2,
		    updated_at = $1
		WHERE id = $3 AND status = 'PERSO'
	`

	result, err := db.ExecContext(ctx, query, now, claimantID, leadID)
	if err != nil {
		return 0, fmt.Errorf("failed to claim lead: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// Update persists the lifecycle fields of a lead after a transition.
func (r *LeadRepository) Update(ctx context.Context, db DBExecutor, lead *model.Lead) error {
	query := `
		UPDATE leads
		SET status = $1,
		    contacted = $2,
		    contacted_at = $3,
		    enrolled = $4,
		    enrolled_at = $5,
		    call_attempts = $6,
		    first_attempt_at = $7,
		    last_attempt_at = $8,
		    lost_reason = $9,
		    lost_at = $10,
		    assigned_to_id = $11,
		    updated_at = $12
		WHERE id = $13
	`

	_, err := db.ExecContext(ctx, query,
		lead.Status, lead.Contacted, lead.ContactedAt, lead.Enrolled, lead.EnrolledAt,
		lead.CallAttempts, lead.FirstAttemptAt, lead.LastAttemptAt,
		lead.LostReason, lead.LostAt, lead.AssignedToID, time.Now(), lead.ID)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return nil
}

// SweepInactive moves stale active leads to PERSO in a single set-based
// update. The statement is idempotent: a second pass over the same rows
// matches nothing.
func (r *LeadRepository) SweepInactive(ctx context.Context, db DBExecutor, now time.Time) (int64, error) {
	query := `
		UPDATE leads
		SET status = 'PERSO',
		    lost_reason = $1,
		    lost_at = $2,
		    assigned_to_id = NULL,
		    updated_at = $2
		WHERE status IN ('NUOVO', 'CONTATTATO', 'IN_TRATTATIVA')
		  AND enrolled = FALSE
		  AND last_attempt_at IS NOT NULL
		  AND last_attempt_at < $3
	`

	cutoff := now.Add(-lifecycle.InactivityWindow)
	result, err := db.ExecContext(ctx, query, lifecycle.ReasonInactivity, now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep inactive leads: %w", err)
	}
	return result.RowsAffected()
}

// SweepLegacyContacts moves stale legacy-import leads to PERSO. These
// leads were contacted before structured call tracking existed, so they
// are judged on contacted_at with the longer 20-day threshold.
func (r *LeadRepository) SweepLegacyContacts(ctx context.Context, db DBExecutor, now time.Time) (int64, error) {
	query := `
		UPDATE leads
		SET status = 'PERSO',
		    lost_reason = $1,
		    lost_at = $2,
		    assigned_to_id = NULL,
		    updated_at = $2
		WHERE status = 'CONTATTATO'
		  AND contacted = TRUE
		  AND enrolled = FALSE
		  AND last_attempt_at IS NULL
		  AND contacted_at IS NOT NULL
		  AND contacted_at < $3
	`

	cutoff := now.Add(-lifecycle.LegacyContactWindow)
	result, err := db.ExecContext(ctx, query, lifecycle.ReasonLegacyContact, now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep legacy contacts: %w", err)
	}
	return result.RowsAffected()
}

// CountByCampaigns returns lead counts grouped by campaign for the given
// campaign IDs.
func (r *LeadRepository) CountByCampaigns(ctx context.Context, db DBExecutor, campaignIDs []string) (map[string]int, error) {
	counts := map[string]int{}
	if len(campaignIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT campaign_id, COUNT(*) AS total
		FROM leads
		WHERE campaign_id = ANY($1)
		GROUP BY campaign_id
	`

	var rows []struct {
		CampaignID string `db:"campaign_id"`
		Total      int    `db:"total"`
	}
	if err := db.SelectContext(ctx, &rows, query, pq.Array(campaignIDs)); err != nil {
		return nil, fmt.Errorf("failed to count leads by campaign: %w", err)
	}
	for _, row := range rows {
		counts[row.CampaignID] = row.Total
	}
	return counts, nil
}
