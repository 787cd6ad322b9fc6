package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimDuration tracks the latency of lead recovery claims
	ClaimDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "lead_claim_duration_seconds",
			Help: "Duration of lead claim attempts in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
			},
		},
		[]string{"outcome"}, // won, lost_race, not_recoverable, error
	)

	// ClaimOutcomes counts claim arbitration results
	ClaimOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_claim_total",
			Help: "Total lead claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	// SweepDuration tracks the latency of staleness sweep passes
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lead_sweep_duration_seconds",
			Help:    "Duration of staleness sweep passes in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
	)

	// SweptLeads counts leads moved to PERSO by the sweeper, per reason
	SweptLeads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_sweep_lost_total",
			Help: "Total leads marked PERSO by the staleness sweeper",
		},
		[]string{"reason"}, // inactivity, legacy_contact
	)
)

// RecordClaim records one claim attempt with its outcome and duration.
func RecordClaim(outcome string, duration float64) {
	ClaimOutcomes.WithLabelValues(outcome).Inc()
	ClaimDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordSweep records one executed sweep pass.
func RecordSweep(duration float64, inactive, legacy int64) {
	SweepDuration.Observe(duration)
	SweptLeads.WithLabelValues("inactivity").Add(float64(inactive))
	SweptLeads.WithLabelValues("legacy_contact").Add(float64(legacy))
}
