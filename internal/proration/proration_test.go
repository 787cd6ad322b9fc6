package proration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kkkkikiki/leadcrm/internal/model"
	"github.com/kkkkikiki/leadcrm/internal/proration"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

var today = date(2026, 2, 15)

func spend(start time.Time, end *time.Time, amount float64) model.CampaignSpend {
	return model.CampaignSpend{StartDate: start, EndDate: end, Amount: amount}
}

func TestJanuaryExample(t *testing.T) {
	// 310 over Jan 1-31, window Jan 1-10: 310 * 10/31 = 100.
	rec := spend(date(2026, 1, 1), datePtr(2026, 1, 31), 310)
	w := proration.Window{Start: datePtr(2026, 1, 1), End: datePtr(2026, 1, 10)}

	got := proration.ProratedAmount(rec, w, today)
	assert.InDelta(t, 100.0, got, 0.001)
}

func TestNoOverlapContributesZero(t *testing.T) {
	rec := spend(date(2026, 1, 1), datePtr(2026, 1, 31), 500)

	before := proration.Window{End: datePtr(2025, 12, 31)}
	assert.Zero(t, proration.ProratedAmount(rec, before, today))

	after := proration.Window{Start: datePtr(2026, 2, 1)}
	assert.Zero(t, proration.ProratedAmount(rec, after, today))
}

func TestOngoingRecordEndsToday(t *testing.T) {
	// Started Jan 1, evaluated on Jan 21: 21 effective days.
	rec := spend(date(2026, 1, 1), nil, 210)
	evalDay := date(2026, 1, 21)

	full := proration.ProratedAmount(rec, proration.Unbounded, evalDay)
	assert.InDelta(t, 210.0, full, 0.001)

	firstWeek := proration.Window{Start: datePtr(2026, 1, 1), End: datePtr(2026, 1, 7)}
	got := proration.ProratedAmount(rec, firstWeek, evalDay)
	assert.InDelta(t, 210.0*7/21, got, 0.001)
}

func TestSingleDayRecord(t *testing.T) {
	rec := spend(date(2026, 1, 5), datePtr(2026, 1, 5), 42)

	got := proration.ProratedAmount(rec, proration.Unbounded, today)
	assert.InDelta(t, 42.0, got, 0.001)
}

func TestConservation(t *testing.T) {
	// Unbounded window must return the raw sum, overlapping lines and all.
	recs := []model.CampaignSpend{
		spend(date(2026, 1, 1), datePtr(2026, 1, 31), 310),
		spend(date(2026, 1, 15), datePtr(2026, 2, 14), 500),
		spend(date(2026, 2, 1), nil, 99.5),
		spend(date(2026, 1, 20), datePtr(2026, 1, 20), 10),
	}

	got := proration.TotalProratedSpend(recs, proration.Unbounded, today)
	assert.InDelta(t, 310+500+99.5+10, got, 0.001)
}

func TestPartition(t *testing.T) {
	recs := []model.CampaignSpend{
		spend(date(2026, 1, 1), datePtr(2026, 1, 31), 310),
		spend(date(2026, 1, 10), datePtr(2026, 2, 9), 744),
		spend(date(2026, 1, 25), nil, 120),
	}

	whole := proration.Window{Start: datePtr(2026, 1, 1), End: datePtr(2026, 2, 28)}
	left := proration.Window{Start: datePtr(2026, 1, 1), End: datePtr(2026, 1, 20)}
	right := proration.Window{Start: datePtr(2026, 1, 21), End: datePtr(2026, 2, 28)}

	total := proration.TotalProratedSpend(recs, whole, today)
	split := proration.TotalProratedSpend(recs, left, today) +
		proration.TotalProratedSpend(recs, right, today)

	assert.InDelta(t, total, split, 0.001)
}

func TestHalfOpenWindows(t *testing.T) {
	rec := spend(date(2026, 1, 1), datePtr(2026, 1, 10), 100)

	fromJan6 := proration.Window{Start: datePtr(2026, 1, 6)}
	assert.InDelta(t, 50.0, proration.ProratedAmount(rec, fromJan6, today), 0.001)

	untilJan5 := proration.Window{End: datePtr(2026, 1, 5)}
	assert.InDelta(t, 50.0, proration.ProratedAmount(rec, untilJan5, today), 0.001)
}
