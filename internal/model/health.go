package model

import "time"

// Health report statuses, keyed off the composite score.
const (
	HealthExcellent = "excellent" // score >= 80
	HealthGood      = "good"      // score >= 60
	HealthWarning   = "warning"   // score >= 40
	HealthCritical  = "critical"  // anything below
)

// HealthCheckResult is the outcome of a single integrity probe. Results
// are ephemeral: they are aggregated into a HealthReport and returned
// to the caller, never persisted.
type HealthCheckResult struct {
	Name   string   `json:"name"`
	Passed bool     `json:"passed"`
	Issues []string `json:"issues"`
	Score  int      `json:"score"`
}

// HealthReport aggregates all probe results into a weighted 0..100
// score with deterministic recommendations per failing category.
type HealthReport struct {
	Score           int                 `json:"score"`
	Status          string              `json:"status"`
	Checks          []HealthCheckResult `json:"checks"`
	Recommendations []string            `json:"recommendations"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

// HealthStatus maps a score onto its status bucket.
func HealthStatus(score int) string {
	switch {
	case score >= 80:
		return HealthExcellent
	case score >= 60:
		return HealthGood
	case score >= 40:
		return HealthWarning
	default:
		return HealthCritical
	}
}
