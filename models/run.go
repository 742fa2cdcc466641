package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type ScrapeRun struct {
	ID            int64      `json:"id" db:"id"`
	SiteID        string     `json:"site_id" db:"site_id"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	PagesFetched  int        `json:"pages_fetched" db:"pages_fetched"`
	RecordsFound  int        `json:"records_found" db:"records_found"`
	RowsPersisted int        `json:"rows_persisted" db:"rows_persisted"`
	RowsDropped   int        `json:"rows_dropped" db:"rows_dropped"`
	GeocodeHits   int        `json:"geocode_hits" db:"geocode_hits"`
	GeocodeMisses int        `json:"geocode_misses" db:"geocode_misses"`
	ErrorsCount   int        `json:"errors_count" db:"errors_count"`
}
