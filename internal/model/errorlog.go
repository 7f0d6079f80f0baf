package model

import "time"

// Error log severities, from least to most urgent.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ErrorLogEntry mirrors the `error_logs` table. Errors are stored
// durably so they survive restarts and are visible across instances.
type ErrorLogEntry struct {
	ID        uint64    // error_logs.id
	Severity  string    // error_logs.severity
	Source    string    // error_logs.source (component that reported it)
	Message   string    // error_logs.message
	Context   string    // error_logs.context, JSON blob with details
	CreatedAt time.Time // error_logs.created_at
}
