package model

import (
	"time"
)

// MasterCampaign groups one Campaign variant per advertising platform,
// keyed by (name, course). It has no spend of its own.
type MasterCampaign struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CourseID  string    `db:"course_id" json:"courseId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Campaign is a per-platform variant of a MasterCampaign. It owns the
// spend records and the leads it generated.
type Campaign struct {
	ID               string    `db:"id" json:"id"`
	MasterCampaignID string    `db:"master_campaign_id" json:"masterCampaignId"`
	Platform         string    `db:"platform" json:"platform"`
	Name             string    `db:"name" json:"name"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// CampaignSpend is a time-boxed advertising spend record. A nil EndDate
// means the budget line is still running and is treated as ending today
// when prorated. Records for the same campaign may overlap in time.
type CampaignSpend struct {
	ID         string     `db:"id" json:"id"`
	CampaignID string     `db:"campaign_id" json:"campaignId"`
	StartDate  time.Time  `db:"start_date" json:"startDate"`
	EndDate    *time.Time `db:"end_date" json:"endDate"`
	Amount     float64    `db:"amount" json:"amount"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

// PlatformMetrics is the per-variant slice of a master campaign rollup.
type PlatformMetrics struct {
	CampaignID string  `json:"campaignId"`
	Platform   string  `json:"platform"`
	Leads      int     `json:"leads"`
	Spent      float64 `json:"spent"`
}

// MasterMetrics is the aggregated view of a master campaign over a
// query window.
type MasterMetrics struct {
	TotalLeads  int               `json:"totalLeads"`
	TotalSpent  float64           `json:"totalSpent"`
	CostPerLead float64           `json:"costPerLead"`
	Platforms   []PlatformMetrics `json:"platforms"`
}
