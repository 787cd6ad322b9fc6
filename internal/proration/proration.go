package proration

import (
	"time"

	"github.com/kkkkikiki/leadcrm/internal/model"
)

// Window is a query date filter. A nil bound means unbounded on that
// side.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Unbounded is the full-history window.
var Unbounded = Window{}

// ProratedAmount attributes the fraction of rec's amount whose date range
// overlaps w. Days are counted inclusively; an ongoing record (nil end
// date) is treated as ending today. Records with no overlap contribute 0.
func ProratedAmount(rec model.CampaignSpend, w Window, today time.Time) float64 {
	start := dateOnly(rec.StartDate)
	end := start
	if rec.EndDate != nil {
		end = dateOnly(*rec.EndDate)
	} else {
		end = dateOnly(today)
	}
	if end.Before(start) {
		end = start
	}

	overlapStart := start
	if w.Start != nil && dateOnly(*w.Start).After(overlapStart) {
		overlapStart = dateOnly(*w.Start)
	}
	overlapEnd := end
	if w.End != nil && dateOnly(*w.End).Before(overlapEnd) {
		overlapEnd = dateOnly(*w.End)
	}
	if overlapEnd.Before(overlapStart) {
		return 0
	}

	totalDays := daysBetween(start, end) + 1
	overlapDays := daysBetween(overlapStart, overlapEnd) + 1
	return rec.Amount * float64(overlapDays) / float64(totalDays)
}

// TotalProratedSpend sums ProratedAmount over every record. Overlapping
// budget lines are deliberately not deduplicated: each record is prorated
// on its own terms, which keeps the full-window total equal to the raw
// sum of all amounts.
func TotalProratedSpend(recs []model.CampaignSpend, w Window, today time.Time) float64 {
	var total float64
	for _, rec := range recs {
		total += ProratedAmount(rec, w, today)
	}
	return total
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
