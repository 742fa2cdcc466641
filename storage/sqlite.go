package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chintai_scraper/models"
)

// OpsStore keeps the pipeline's operational data in SQLite: run
// records, run-scoped log rows and the persisted geocode cache. It is
// separate from the snapshot table the UI reads.
type OpsStore struct {
	db *sql.DB
}

func NewOpsStore(dbPath string) (*OpsStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &OpsStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *OpsStore) Close() error {
	return s.db.Close()
}

func (s *OpsStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		site_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		pages_fetched INTEGER,
		records_found INTEGER,
		rows_persisted INTEGER,
		rows_dropped INTEGER,
		geocode_hits INTEGER,
		geocode_misses INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		site_id TEXT
	);

	CREATE TABLE IF NOT EXISTS geocode_cache (
		query TEXT PRIMARY KEY,
		lat REAL,
		lng REAL,
		found BOOLEAN,
		updated_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *OpsStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (site_id, started_at, status, pages_fetched, records_found,
			rows_persisted, rows_dropped, geocode_hits, geocode_misses, errors_count)
		VALUES (?, ?, ?, 0, 0, 0, 0, 0, 0, 0)`,
		run.SiteID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *OpsStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, pages_fetched = ?, records_found = ?,
			rows_persisted = ?, rows_dropped = ?, geocode_hits = ?, geocode_misses = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PagesFetched, run.RecordsFound,
		run.RowsPersisted, run.RowsDropped, run.GeocodeHits, run.GeocodeMisses, run.ErrorsCount, run.ID)
	return err
}

func (s *OpsStore) GetRun(id int64) (*models.ScrapeRun, error) {
	row := s.db.QueryRow(`
		SELECT id, site_id, started_at, finished_at, status, pages_fetched, records_found,
			rows_persisted, rows_dropped, geocode_hits, geocode_misses, errors_count
		FROM scrape_runs WHERE id = ?`, id)

	var run models.ScrapeRun
	err := row.Scan(&run.ID, &run.SiteID, &run.StartedAt, &run.FinishedAt, &run.Status,
		&run.PagesFetched, &run.RecordsFound, &run.RowsPersisted, &run.RowsDropped,
		&run.GeocodeHits, &run.GeocodeMisses, &run.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *OpsStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, site_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, siteID)
	return err
}

// GetLogs returns a run's diagnostic rows in write order, for
// inspecting drops and page failures after the run finished.
func (s *OpsStore) GetLogs(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, site_id
		FROM scrape_logs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.LoggedAt, &l.Level, &l.Message, &l.SiteID); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetGeocode and PutGeocode implement geocode.Cache.

func (s *OpsStore) GetGeocode(query string) (models.GeoPoint, bool, error) {
	row := s.db.QueryRow(`SELECT lat, lng, found FROM geocode_cache WHERE query = ?`, query)

	var pt models.GeoPoint
	err := row.Scan(&pt.Lat, &pt.Lng, &pt.Found)
	if err == sql.ErrNoRows {
		return models.GeoPoint{}, false, nil
	}
	if err != nil {
		return models.GeoPoint{}, false, err
	}
	return pt, true, nil
}

func (s *OpsStore) PutGeocode(query string, pt models.GeoPoint) error {
	_, err := s.db.Exec(`
		INSERT INTO geocode_cache (query, lat, lng, found, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			lat = excluded.lat,
			lng = excluded.lng,
			found = excluded.found,
			updated_at = excluded.updated_at`,
		query, pt.Lat, pt.Lng, pt.Found, time.Now())
	return err
}
