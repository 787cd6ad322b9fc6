package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/leadcrm/internal/model"
	"github.com/kkkkikiki/leadcrm/internal/proration"
	"github.com/kkkkikiki/leadcrm/internal/repository"
)

// CampaignWithSpend is a campaign variant annotated with its prorated
// spend over a query window.
type CampaignWithSpend struct {
	model.Campaign
	TotalSpent float64 `json:"totalSpent"`
}

// MasterWithMetrics is a master campaign with its aggregated rollup.
type MasterWithMetrics struct {
	model.MasterCampaign
	Metrics model.MasterMetrics `json:"metrics"`
}

// SpendInput is the write shape for a spend record.
type SpendInput struct {
	StartDate time.Time
	EndDate   *time.Time
	Amount    float64
}

// CampaignService owns the campaign hierarchy and the spend ledger.
type CampaignService struct {
	db        *sqlx.DB
	campaigns *repository.CampaignRepository
	spends    *repository.SpendRepository
	leads     *repository.LeadRepository
}

// NewCampaignService creates a new CampaignService instance
func NewCampaignService(db *sqlx.DB) *CampaignService {
	return &CampaignService{
		db:        db,
		campaigns: repository.NewCampaignRepository(),
		spends:    repository.NewSpendRepository(),
		leads:     repository.NewLeadRepository(),
	}
}

// ListWithSpend returns every campaign variant annotated with the
// prorated spend that falls inside the window.
func (s *CampaignService) ListWithSpend(ctx context.Context, w proration.Window) ([]CampaignWithSpend, error) {
	campaigns, err := s.campaigns.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
	}
	spendsByCampaign, err := s.spends.ListByCampaigns(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	today := time.Now()
	annotated := make([]CampaignWithSpend, 0, len(campaigns))
	for _, c := range campaigns {
		annotated = append(annotated, CampaignWithSpend{
			Campaign:   c,
			TotalSpent: proration.TotalProratedSpend(spendsByCampaign[c.ID], w, today),
		})
	}
	return annotated, nil
}

// getCampaign resolves a campaign or reports ErrNotFound.
func (s *CampaignService) getCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	campaign, err := s.campaigns.Get(ctx, s.db, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("campaign %s: %w", campaignID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// ListSpend returns the spend ledger of one campaign.
func (s *CampaignService) ListSpend(ctx context.Context, campaignID string) ([]model.CampaignSpend, error) {
	if _, err := s.getCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.spends.ListByCampaign(ctx, s.db, campaignID)
}

// GetSpend returns one spend record of a campaign.
func (s *CampaignService) GetSpend(ctx context.Context, campaignID, spendID string) (*model.CampaignSpend, error) {
	spend, err := s.spends.Get(ctx, s.db, campaignID, spendID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("spend %s: %w", spendID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get spend: %w", err)
	}
	return spend, nil
}

// UpsertSpend writes a spend record keyed by (campaign, start date).
// Writing to an existing start date updates the line in place.
func (s *CampaignService) UpsertSpend(ctx context.Context, campaignID string, in SpendInput) (*model.CampaignSpend, error) {
	if in.StartDate.IsZero() {
		return nil, fmt.Errorf("startDate is required: %w", ErrValidation)
	}
	if in.Amount < 0 {
		return nil, fmt.Errorf("amount must be non-negative: %w", ErrValidation)
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("endDate must not precede startDate: %w", ErrValidation)
	}
	if _, err := s.getCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	spend := &model.CampaignSpend{
		CampaignID: campaignID,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Amount:     in.Amount,
	}
	if err := s.spends.Upsert(ctx, s.db, spend); err != nil {
		return nil, err
	}
	return spend, nil
}

// DeleteSpend removes one spend record.
func (s *CampaignService) DeleteSpend(ctx context.Context, campaignID, spendID string) error {
	rows, err := s.spends.Delete(ctx, s.db, campaignID, spendID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("spend %s: %w", spendID, ErrNotFound)
	}
	return nil
}

// FindOrCreateMaster returns the master campaign keyed by (name, course),
// creating it on first use. Calling it twice with the same key returns
// the same master.
func (s *CampaignService) FindOrCreateMaster(ctx context.Context, name, courseID string) (*model.MasterCampaign, error) {
	if name == "" || courseID == "" {
		return nil, fmt.Errorf("name and courseId are required: %w", ErrValidation)
	}
	return s.campaigns.FindOrCreateMaster(ctx, s.db, name, courseID)
}

// ListMasterMetrics returns every master campaign with lead counts and
// prorated spend aggregated over its variants.
func (s *CampaignService) ListMasterMetrics(ctx context.Context, w proration.Window) ([]MasterWithMetrics, error) {
	masters, err := s.campaigns.ListMasters(ctx, s.db)
	if err != nil {
		return nil, err
	}

	variantsByMaster := make(map[string][]model.Campaign, len(masters))
	var allIDs []string
	for _, m := range masters {
		variants, err := s.campaigns.ListVariants(ctx, s.db, m.ID)
		if err != nil {
			return nil, err
		}
		variantsByMaster[m.ID] = variants
		for _, v := range variants {
			allIDs = append(allIDs, v.ID)
		}
	}

	leadCounts, err := s.leads.CountByCampaigns(ctx, s.db, allIDs)
	if err != nil {
		return nil, err
	}
	spendsByCampaign, err := s.spends.ListByCampaigns(ctx, s.db, allIDs)
	if err != nil {
		return nil, err
	}

	today := time.Now()
	out := make([]MasterWithMetrics, 0, len(masters))
	for _, m := range masters {
		out = append(out, MasterWithMetrics{
			MasterCampaign: m,
			Metrics:        BuildMasterMetrics(variantsByMaster[m.ID], leadCounts, spendsByCampaign, w, today),
		})
	}
	return out, nil
}

// BuildMasterMetrics folds variant lead counts and prorated spend into a
// group rollup. A group with zero leads reports a cost per lead of 0.
func BuildMasterMetrics(variants []model.Campaign, leadCounts map[string]int,
	spends map[string][]model.CampaignSpend, w proration.Window, today time.Time) model.MasterMetrics {

	m := model.MasterMetrics{Platforms: []model.PlatformMetrics{}}
	for _, v := range variants {
		spent := proration.TotalProratedSpend(spends[v.ID], w, today)
		leads := leadCounts[v.ID]
		m.Platforms = append(m.Platforms, model.PlatformMetrics{
			CampaignID: v.ID,
			Platform:   v.Platform,
			Leads:      leads,
			Spent:      spent,
		})
		m.TotalLeads += leads
		m.TotalSpent += spent
	}
	if m.TotalLeads > 0 {
		m.CostPerLead = m.TotalSpent / float64(m.TotalLeads)
	}
	return m
}
