package lifecycle

import (
	"time"

	"github.com/kkkkikiki/leadcrm/internal/model"
)

// Lost reasons written when a lead decays or is closed negatively. These
// are user-facing strings and must stay stable.
const (
	ReasonNegativeOutcome = "Esito negativo"
	ReasonTooManyAttempts = "Troppi tentativi"
	ReasonInactivity      = "Inattività"
	ReasonLegacyContact   = "Contatto legacy inattivo"
)

const (
	// MaxCallAttempts closes a lead after this many RICHIAMARE outcomes.
	MaxCallAttempts = 8

	// InactivityWindow marks a lead stale when its last call attempt is
	// older than this.
	InactivityWindow = 15 * 24 * time.Hour

	// LegacyContactWindow applies to leads imported as already contacted
	// that never entered structured call tracking. Intentionally longer
	// than InactivityWindow; do not unify without product confirmation.
	LegacyContactWindow = 20 * 24 * time.Hour
)

// EventKind discriminates lifecycle events.
type EventKind int

const (
	KindCallLogged EventKind = iota
	KindEnrolled
	KindStalenessCheck
)

// Event is a lifecycle event applied to a lead.
type Event struct {
	Kind    EventKind
	Outcome model.CallOutcome // only for KindCallLogged
	Now     time.Time
}

// CallLogged builds a call-outcome event.
func CallLogged(outcome model.CallOutcome, now time.Time) Event {
	return Event{Kind: KindCallLogged, Outcome: outcome, Now: now}
}

// Enrolled builds an enrollment event.
func Enrolled(now time.Time) Event {
	return Event{Kind: KindEnrolled, Now: now}
}

// StalenessCheck builds the sweeper's staleness event.
func StalenessCheck(now time.Time) Event {
	return Event{Kind: KindStalenessCheck, Now: now}
}

// Result reports what Transition did.
type Result struct {
	Applied bool
	// Invalid is set when the event is inapplicable to the lead's current
	// state. The transition is a no-op; callers surface this instead of
	// failing their larger operation.
	Invalid bool
	// LostReason is set when the lead moved to PERSO.
	LostReason string
}

// Transition applies ev to a copy of lead and returns the updated lead.
// It is the single source of truth for lead state: contacted/enrolled are
// recomputed from the resulting status, never set independently.
func Transition(lead model.Lead, ev Event) (model.Lead, Result) {
	switch ev.Kind {
	case KindCallLogged:
		return applyCall(lead, ev)
	case KindEnrolled:
		return applyEnrolled(lead, ev)
	case KindStalenessCheck:
		return applyStaleness(lead, ev)
	}
	return lead, Result{Invalid: true}
}

func applyCall(lead model.Lead, ev Event) (model.Lead, Result) {
	switch lead.Status {
	case model.StatusNuovo, model.StatusContattato:
		touchAttempt(&lead, ev.Now)
		switch ev.Outcome {
		case model.OutcomePositivo:
			lead.Status = model.StatusInTrattativa
			project(&lead, ev.Now)
			return lead, Result{Applied: true}
		case model.OutcomeNegativo:
			markLost(&lead, ReasonNegativeOutcome, ev.Now)
			return lead, Result{Applied: true, LostReason: ReasonNegativeOutcome}
		case model.OutcomeRichiamare:
			lead.CallAttempts++
			if lead.CallAttempts >= MaxCallAttempts {
				markLost(&lead, ReasonTooManyAttempts, ev.Now)
				return lead, Result{Applied: true, LostReason: ReasonTooManyAttempts}
			}
			project(&lead, ev.Now)
			return lead, Result{Applied: true}
		}
		return lead, Result{Invalid: true}
	case model.StatusInTrattativa:
		if ev.Outcome == model.OutcomeNegativo {
			touchAttempt(&lead, ev.Now)
			markLost(&lead, ReasonNegativeOutcome, ev.Now)
			return lead, Result{Applied: true, LostReason: ReasonNegativeOutcome}
		}
		return lead, Result{Invalid: true}
	}
	// ISCRITTO and PERSO accept no lifecycle events; PERSO is only
	// mutated through the claim arbitrator.
	return lead, Result{Invalid: true}
}

func applyEnrolled(lead model.Lead, ev Event) (model.Lead, Result) {
	if lead.Status != model.StatusInTrattativa {
		return lead, Result{Invalid: true}
	}
	lead.Status = model.StatusIscritto
	lead.Enrolled = true
	if lead.EnrolledAt == nil {
		t := ev.Now
		lead.EnrolledAt = &t
	}
	project(&lead, ev.Now)
	return lead, Result{Applied: true}
}

func applyStaleness(lead model.Lead, ev Event) (model.Lead, Result) {
	reason, stale := StaleReason(lead, ev.Now)
	if !stale {
		return lead, Result{}
	}
	markLost(&lead, reason, ev.Now)
	return lead, Result{Applied: true, LostReason: reason}
}

// StaleReason reports whether the sweeper should move lead to PERSO at
// now, and with which reason. The set-based sweep SQL mirrors exactly
// this predicate.
func StaleReason(lead model.Lead, now time.Time) (string, bool) {
	switch lead.Status {
	case model.StatusNuovo, model.StatusContattato, model.StatusInTrattativa:
	default:
		return "", false
	}
	if lead.Enrolled {
		return "", false
	}
	if lead.LastAttemptAt != nil && now.Sub(*lead.LastAttemptAt) > InactivityWindow {
		return ReasonInactivity, true
	}
	// Legacy-import leads: contacted before structured call tracking
	// existed, so they have no attempt timestamps at all.
	if lead.Status == model.StatusContattato && lead.Contacted &&
		lead.LastAttemptAt == nil && lead.ContactedAt != nil &&
		now.Sub(*lead.ContactedAt) > LegacyContactWindow {
		return ReasonLegacyContact, true
	}
	return "", false
}

func touchAttempt(lead *model.Lead, now time.Time) {
	t := now
	if lead.FirstAttemptAt == nil {
		lead.FirstAttemptAt = &t
	}
	lead.LastAttemptAt = &t
}

func markLost(lead *model.Lead, reason string, now time.Time) {
	t := now
	lead.Status = model.StatusPerso
	lead.LostReason = &reason
	lead.LostAt = &t
	lead.AssignedToID = nil
}

// project recomputes the denormalized query columns from status.
func project(lead *model.Lead, now time.Time) {
	switch lead.Status {
	case model.StatusContattato, model.StatusInTrattativa, model.StatusIscritto:
		if !lead.Contacted {
			lead.Contacted = true
			t := now
			lead.ContactedAt = &t
		}
	}
	lead.Enrolled = lead.Status == model.StatusIscritto || lead.Enrolled
}
