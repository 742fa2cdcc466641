package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"chintai_scraper/config"
	"chintai_scraper/geocode"
	"chintai_scraper/httputil"
	"chintai_scraper/models"
	"chintai_scraper/scraper"
	"chintai_scraper/storage"
)

type countSink struct {
	replaces int
}

func (c *countSink) Replace(ctx context.Context, listings []models.Listing) error {
	c.replaces++
	return nil
}

func (c *countSink) Close() error { return nil }

type noopGeocoder struct{}

func (noopGeocoder) Geocode(ctx context.Context, query string) (models.GeoPoint, error) {
	return models.GeoPoint{}, nil
}

func TestTriggerNow_RunsAllSites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	cfg := &config.Config{Sites: map[string]*config.SiteConfig{
		"suumo_chintai": {
			ID:           "suumo_chintai",
			Name:         "test site",
			URLTemplate:  srv.URL + "/?page={page}",
			MaxPages:     1,
			PageDelayMS:  1,
			AccessLegCap: 3,
			Table:        "room_ver2",
			OnFetchError: config.FetchPolicySkip,
		},
	}}

	ops, err := storage.NewOpsStore(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("ops store: %v", err)
	}
	defer ops.Close()

	sink := &countSink{}
	orchestrator := scraper.NewOrchestrator(cfg, ops, sink,
		geocode.NewResolver(noopGeocoder{}, nil), httputil.NewClients(""))

	sched := New(cfg, orchestrator)
	defer sched.Stop()

	if err := sched.TriggerNow(context.Background()); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	// The manual trigger runs the full pipeline once, outside any
	// configured schedule.
	if sink.replaces != 1 {
		t.Errorf("snapshot writes = %d, want 1", sink.replaces)
	}
	run, err := ops.GetRun(1)
	if err != nil || run == nil {
		t.Fatalf("run record: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Errorf("run status = %s", run.Status)
	}
}
