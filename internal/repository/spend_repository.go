package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kkkkikiki/leadcrm/internal/model"
)

const spendColumns = `id, campaign_id, start_date, end_date, amount, created_at, updated_at`

// SpendRepository handles campaign spend ledger operations
type SpendRepository struct{}

// NewSpendRepository creates a new spend repository
func NewSpendRepository() *SpendRepository {
	return &SpendRepository{}
}

// Get retrieves one spend record scoped to its campaign. Returns
// sql.ErrNoRows when absent.
func (r *SpendRepository) Get(ctx context.Context, db DBExecutor, campaignID, spendID string) (*model.CampaignSpend, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaign_spends WHERE campaign_id = $1 AND id = $2`, spendColumns)

	var spend model.CampaignSpend
	if err := db.GetContext(ctx, &spend, query, campaignID, spendID); err != nil {
		return nil, err
	}
	return &spend, nil
}

// ListByCampaign returns all spend records of one campaign.
func (r *SpendRepository) ListByCampaign(ctx context.Context, db DBExecutor, campaignID string) ([]model.CampaignSpend, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaign_spends WHERE campaign_id = $1 ORDER BY start_date`, spendColumns)

	spends := []model.CampaignSpend{}
	if err := db.SelectContext(ctx, &spends, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to list campaign spends: %w", err)
	}
	return spends, nil
}

// ListByCampaigns returns the spend records of several campaigns in one
// round trip, grouped by campaign ID.
func (r *SpendRepository) ListByCampaigns(ctx context.Context, db DBExecutor, campaignIDs []string) (map[string][]model.CampaignSpend, error) {
	grouped := map[string][]model.CampaignSpend{}
	if len(campaignIDs) == 0 {
		return grouped, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM campaign_spends WHERE campaign_id = ANY($1) ORDER BY start_date`, spendColumns)

	spends := []model.CampaignSpend{}
	if err := db.SelectContext(ctx, &spends, query, pq.Array(campaignIDs)); err != nil {
		return nil, fmt.Errorf("failed to list campaign spends: %w", err)
	}
	for _, s := range spends {
		grouped[s.CampaignID] = append(grouped[s.CampaignID], s)
	}
	return grouped, nil
}

// Upsert writes a spend record keyed by (campaign_id, start_date). A
// second write to the same start date updates the existing row in place
// instead of duplicating the budget line.
func (r *SpendRepository) Upsert(ctx context.Context, db DBExecutor, spend *model.CampaignSpend) error {
	if spend.ID == "" {
		spend.ID = uuid.NewString()
	}
	now := time.Now()

	query := fmt.Sprintf(`
		INSERT INTO campaign_spends (id, campaign_id, start_date, end_date, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (campaign_id, start_date)
		DO UPDATE SET end_date = EXCLUDED.end_date,
		              amount = EXCLUDED.amount,
		              updated_at = EXCLUDED.updated_at
		RETURNING %s
	`, spendColumns)

	if err := db.GetContext(ctx, spend, query,
		spend.ID, spend.CampaignID, spend.StartDate, spend.EndDate, spend.Amount, now); err != nil {
		return fmt.Errorf("failed to upsert campaign spend: %w", err)
	}
	return nil
}

// Delete removes one spend record. Returns sql.ErrNoRows semantics via
// the affected-row count.
func (r *SpendRepository) Delete(ctx context.Context, db DBExecutor, campaignID, spendID string) (int64, error) {
	query := `DELETE FROM campaign_spends WHERE campaign_id = $1 AND id = $2`

	result, err := db.ExecContext(ctx, query, campaignID, spendID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete campaign spend: %w", err)
	}
	return result.RowsAffected()
}
