// Package metrics exposes Prometheus collectors for partner matching.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PartnerSearches counts partner searches by outcome (ok, cached, not_found, error).
	PartnerSearches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studybuddy_partner_searches_total",
		Help: "Total number of partner searches by outcome",
	}, []string{"outcome"})

	// CandidatesScored counts compatibility calculations.
	CandidatesScored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studybuddy_candidates_scored_total",
		Help: "Total number of candidate profiles scored",
	})

	// MatchesReturned observes how many partners qualify per search.
	MatchesReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "studybuddy_matches_returned",
		Help:    "Number of qualifying partners returned per search",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	// SearchLatency is the latency of a full partner search.
	SearchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "studybuddy_partner_search_latency_seconds",
		Help:    "Latency of partner searches",
		Buckets: prometheus.DefBuckets,
	})

	// CacheLookups counts partner cache lookups by result (hit, miss, error).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studybuddy_partner_cache_lookups_total",
		Help: "Partner cache lookups by result",
	}, []string{"result"})

	// ProfilesImported counts imported profiles by result (inserted, failed).
	ProfilesImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studybuddy_profiles_imported_total",
		Help: "Profiles processed by bulk import",
	}, []string{"result"})
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PartnerSearches,
			CandidatesScored,
			MatchesReturned,
			SearchLatency,
			CacheLookups,
			ProfilesImported,
		)
	})
}
