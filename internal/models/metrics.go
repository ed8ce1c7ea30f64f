package models

import "time"

// MetricsSnapshot summarises engine activity for the metrics endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	GenerationRuns           uint64    `json:"generation_runs"`
	GenerationFailures       uint64    `json:"generation_failures"`
	OccurrencesCreated       uint64    `json:"occurrences_created"`
	TriggersDropped          uint64    `json:"triggers_dropped"`
	ChecksCarried            uint64    `json:"checks_carried"`
	Cancellations            uint64    `json:"cancellations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
