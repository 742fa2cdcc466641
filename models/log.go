package models

import "time"

// LogLevel is the pipeline's logging tier. Warn marks a dropped row,
// error marks a failed page fetch or snapshot write.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ScrapeLog is one run-scoped diagnostic row. RunID is nil for
// messages emitted outside a run.
type ScrapeLog struct {
	ID       int64     `json:"id" db:"id"`
	RunID    *int64    `json:"run_id" db:"run_id"`
	LoggedAt time.Time `json:"logged_at" db:"timestamp"`
	Level    LogLevel  `json:"level" db:"level"`
	Message  string    `json:"message" db:"message"`
	SiteID   string    `json:"site_id" db:"site_id"`
}
