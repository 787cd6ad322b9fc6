package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kkkkikiki/leadcrm/internal/model"
)

const campaignColumns = `id, master_campaign_id, platform, name, created_at, updated_at`
const masterColumns = `id, name, course_id, created_at, updated_at`

// CampaignRepository handles campaign and master-campaign data operations
type CampaignRepository struct{}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{}
}

// Get retrieves a campaign by ID. Returns sql.ErrNoRows when absent.
func (r *CampaignRepository) Get(ctx context.Context, db DBExecutor, id string) (*model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1`, campaignColumns)

	var campaign model.Campaign
	if err := db.GetContext(ctx, &campaign, query, id); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// List returns all campaign variants.
func (r *CampaignRepository) List(ctx context.Context, db DBExecutor) ([]model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns ORDER BY name, platform`, campaignColumns)

	campaigns := []model.Campaign{}
	if err := db.SelectContext(ctx, &campaigns, query); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// ListVariants returns the campaign variants under a master campaign.
func (r *CampaignRepository) ListVariants(ctx context.Context, db DBExecutor, masterID string) ([]model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE master_campaign_id = $1 ORDER BY platform`, campaignColumns)

	campaigns := []model.Campaign{}
	if err := db.SelectContext(ctx, &campaigns, query, masterID); err != nil {
		return nil, fmt.Errorf("failed to list campaign variants: %w", err)
	}
	return campaigns, nil
}

// ListMasters returns all master campaigns.
func (r *CampaignRepository) ListMasters(ctx context.Context, db DBExecutor) ([]model.MasterCampaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM master_campaigns ORDER BY name`, masterColumns)

	masters := []model.MasterCampaign{}
	if err := db.SelectContext(ctx, &masters, query); err != nil {
		return nil, fmt.Errorf("failed to list master campaigns: %w", err)
	}
	return masters, nil
}

// FindOrCreateMaster returns the master campaign keyed by (name, courseID),
// creating it on first use. The ON CONFLICT DO NOTHING insert makes the
// lookup idempotent even under concurrent first use: whichever insert wins,
// the follow-up select returns the single surviving row.
func (r *CampaignRepository) FindOrCreateMaster(ctx context.Context, db DBExecutor, name, courseID string) (*model.MasterCampaign, error) {
	now := time.Now()
	insert := `
		INSERT INTO master_campaigns (id, name, course_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (name, course_id) DO NOTHING
	`
	if _, err := db.ExecContext(ctx, insert, uuid.NewString(), name, courseID, now); err != nil {
		return nil, fmt.Errorf("failed to insert master campaign: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM master_campaigns WHERE name = $1 AND course_id = $2`, masterColumns)
	var master model.MasterCampaign
	if err := db.GetContext(ctx, &master, query, name, courseID); err != nil {
		return nil, fmt.Errorf("failed to get master campaign: %w", err)
	}
	return &master, nil
}
