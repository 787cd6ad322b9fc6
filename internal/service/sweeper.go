package service

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"github.com/kkkkikiki/leadcrm/internal/metrics"
	"github.com/kkkkikiki/leadcrm/internal/repository"
)

// SweepStats reports how many leads a sweep pass moved to PERSO.
type SweepStats struct {
	Inactive       int64
	LegacyContacts int64
}

// Sweeper applies the staleness predicates across the lead store as two
// idempotent set-based updates. An in-process rate limiter caps it at
// one pass per interval; with multiple service instances each keeps its
// own limiter, so redundant passes can happen. That is accepted: the
// sweep updates are idempotent, redundant runs are wasted work, not
// incorrect work.
type Sweeper struct {
	db      *sqlx.DB
	leads   *repository.LeadRepository
	limiter *rate.Limiter
}

// NewSweeper creates a sweeper limited to one pass per interval.
func NewSweeper(db *sqlx.DB, interval time.Duration) *Sweeper {
	return &Sweeper{
		db:      db,
		leads:   repository.NewLeadRepository(),
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Run executes one sweep pass unless the limiter says the previous pass
// was too recent. The second return value reports whether a pass ran.
func (s *Sweeper) Run(ctx context.Context) (SweepStats, bool, error) {
	if !s.limiter.Allow() {
		return SweepStats{}, false, nil
	}

	start := time.Now()
	now := start

	inactive, err := s.leads.SweepInactive(ctx, s.db, now)
	if err != nil {
		return SweepStats{}, true, err
	}
	legacy, err := s.leads.SweepLegacyContacts(ctx, s.db, now)
	if err != nil {
		return SweepStats{Inactive: inactive}, true, err
	}

	metrics.RecordSweep(time.Since(start).Seconds(), inactive, legacy)
	if inactive > 0 || legacy > 0 {
		log.Printf("staleness sweep: %d inactive, %d legacy contacts moved to PERSO", inactive, legacy)
	}
	return SweepStats{Inactive: inactive, LegacyContacts: legacy}, true, nil
}
