package model

import (
	"time"
)

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	StatusNuovo        LeadStatus = "NUOVO"
	StatusContattato   LeadStatus = "CONTATTATO"
	StatusInTrattativa LeadStatus = "IN_TRATTATIVA"
	StatusIscritto     LeadStatus = "ISCRITTO"
	StatusPerso        LeadStatus = "PERSO"
)

// CallOutcome is the result of a logged call attempt.
type CallOutcome string

const (
	OutcomePositivo   CallOutcome = "POSITIVO"
	OutcomeNegativo   CallOutcome = "NEGATIVO"
	OutcomeRichiamare CallOutcome = "RICHIAMARE"
)

// Lead represents a sales lead in the database.
//
// contacted and enrolled are read-only projections of status kept in sync
// by the state machine; they exist as columns only for querying.
// lost_reason/lost_at are both null or both set. call_attempts resets to 0
// exactly at recovery.
type Lead struct {
	ID             string      `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	CourseID       string      `db:"course_id" json:"course"`
	CampaignID     *string     `db:"campaign_id" json:"campaignId,omitempty"`
	Status         LeadStatus  `db:"status" json:"status"`
	Contacted      bool        `db:"contacted" json:"contacted"`
	ContactedAt    *time.Time  `db:"contacted_at" json:"contactedAt,omitempty"`
	Enrolled       bool        `db:"enrolled" json:"enrolled"`
	EnrolledAt     *time.Time  `db:"enrolled_at" json:"enrolledAt,omitempty"`
	CallAttempts   int         `db:"call_attempts" json:"callAttempts"`
	FirstAttemptAt *time.Time  `db:"first_attempt_at" json:"firstAttemptAt,omitempty"`
	LastAttemptAt  *time.Time  `db:"last_attempt_at" json:"lastAttemptAt,omitempty"`
	LostReason     *string     `db:"lost_reason" json:"lostReason"`
	LostAt         *time.Time  `db:"lost_at" json:"lostAt"`
	RecoveredAt    *time.Time  `db:"recovered_at" json:"recoveredAt,omitempty"`
	AssignedToID   *string     `db:"assigned_to_id" json:"assignedTo"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`
}

// LeadActivity is an audit-log entry attached to a lead.
type LeadActivity struct {
	ID          string    `db:"id" json:"id"`
	LeadID      string    `db:"lead_id" json:"leadId"`
	ActorID     string    `db:"actor_id" json:"actorId"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

const (
	ActivityRecovery = "RECOVERY"
	ActivityCall     = "CALL"
	ActivityEnrolled = "ENROLLED"
)
