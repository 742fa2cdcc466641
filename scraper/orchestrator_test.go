package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chintai_scraper/config"
	"chintai_scraper/geocode"
	"chintai_scraper/httputil"
	"chintai_scraper/models"
	"chintai_scraper/storage"
)

type memSink struct {
	snapshots [][]models.Listing
}

func (m *memSink) Replace(ctx context.Context, listings []models.Listing) error {
	m.snapshots = append(m.snapshots, listings)
	return nil
}

func (m *memSink) Close() error { return nil }

type failSink struct{}

func (failSink) Replace(ctx context.Context, listings []models.Listing) error {
	return errors.New("disk full")
}

func (failSink) Close() error { return nil }

type stubGeocoder struct {
	calls  int
	result models.GeoPoint
}

func (s *stubGeocoder) Geocode(ctx context.Context, query string) (models.GeoPoint, error) {
	s.calls++
	return s.result, nil
}

func testConfig(t *testing.T, serverURL string, maxPages int, policy string) *config.Config {
	t.Helper()
	site := &config.SiteConfig{
		ID:            "suumo_chintai",
		Name:          "test site",
		URLTemplate:   serverURL + "/?page={page}",
		BaseURL:       "https://suumo.jp",
		MaxPages:      maxPages,
		PageDelayMS:   1,
		AccessLegCap:  3,
		Table:         "room_ver2",
		OnFetchError:  policy,
		RunTimeoutMin: 1,
	}
	return &config.Config{Sites: map[string]*config.SiteConfig{site.ID: site}}
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, sink storage.Sink, geocoder geocode.Geocoder) (*Orchestrator, *storage.OpsStore) {
	t.Helper()
	ops, err := storage.NewOpsStore(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("ops store: %v", err)
	}
	t.Cleanup(func() { ops.Close() })

	o := NewOrchestrator(cfg, ops, sink, geocode.NewResolver(geocoder, nil), httputil.NewClients(""))
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o, ops
}

func TestRunSite_EndToEnd(t *testing.T) {
	page := loadFixture(t, "listing_page.html")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Write(page)
			return
		}
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	sink := &memSink{}
	geocoder := &stubGeocoder{result: models.GeoPoint{Lat: 35.694, Lng: 139.753, Found: true}}
	o, ops := newTestOrchestrator(t, testConfig(t, srv.URL, 2, config.FetchPolicySkip), sink, geocoder)

	if err := o.RunSite(context.Background(), "suumo_chintai"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(sink.snapshots) != 1 {
		t.Fatalf("expected exactly one snapshot write, got %d", len(sink.snapshots))
	}
	listings := sink.snapshots[0]

	// One building entry with two room rows persists exactly two rows.
	if len(listings) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(listings))
	}

	for i, l := range listings {
		if l.ID == "" {
			t.Errorf("row %d has no ID", i)
		}
		if l.ScrapedAt.IsZero() {
			t.Errorf("row %d has no scrape time", i)
		}
		if l.Ward != "千代田区" {
			t.Errorf("row %d ward = %q", i, l.Ward)
		}
		if l.Lat == nil || l.Lng == nil {
			t.Errorf("row %d should have coordinates", i)
		}
		if len(l.Access) != 3 {
			t.Errorf("row %d access legs = %d, want capped at 3", i, len(l.Access))
		}
	}

	if listings[0].UnitFloor == nil || *listings[0].UnitFloor != 3 {
		t.Errorf("first row floor = %v", listings[0].UnitFloor)
	}
	if listings[1].UnitFloor == nil || *listings[1].UnitFloor != -1 {
		t.Errorf("second row floor = %v", listings[1].UnitFloor)
	}
	if listings[1].Deposit != nil {
		t.Error("second row deposit should be nil")
	}

	run, err := ops.GetRun(1)
	if err != nil || run == nil {
		t.Fatalf("run record: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Errorf("run status = %s", run.Status)
	}
	if run.PagesFetched != 2 || run.RecordsFound != 2 || run.RowsPersisted != 2 {
		t.Errorf("run stats = %+v", run)
	}
	if run.FinishedAt == nil {
		t.Error("run not finalized")
	}
}

func TestRunSite_DuplicatesAcrossPages(t *testing.T) {
	page := loadFixture(t, "listing_page.html")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(page) // identical content on every page
	}))
	defer srv.Close()

	sink := &memSink{}
	geocoder := &stubGeocoder{}
	o, _ := newTestOrchestrator(t, testConfig(t, srv.URL, 3, config.FetchPolicySkip), sink, geocoder)

	if err := o.RunSite(context.Background(), "suumo_chintai"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Three pages of the same two rows collapse to two after dedupe.
	if len(sink.snapshots) != 1 || len(sink.snapshots[0]) != 2 {
		t.Fatalf("expected 2 deduplicated rows, got %d", len(sink.snapshots[0]))
	}

	// A missed geocode leaves the pair nil together.
	for i, l := range sink.snapshots[0] {
		if l.Lat != nil || l.Lng != nil {
			t.Errorf("row %d should have nil coordinates on miss", i)
		}
	}
}

func TestRunSite_UnparseableRowDropped(t *testing.T) {
	page := loadFixture(t, "listing_page_badrow.html")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(page)
	}))
	defer srv.Close()

	sink := &memSink{}
	o, ops := newTestOrchestrator(t, testConfig(t, srv.URL, 1, config.FetchPolicySkip), sink, &stubGeocoder{})

	// One of the two rows carries an area with no parseable number;
	// that row is dropped and the run keeps going.
	if err := o.RunSite(context.Background(), "suumo_chintai"); err != nil {
		t.Fatalf("a bad row must not fail the run: %v", err)
	}

	if len(sink.snapshots) != 1 || len(sink.snapshots[0]) != 1 {
		t.Fatalf("expected 1 persisted row, got %d snapshots / %+v", len(sink.snapshots), sink.snapshots)
	}
	if got := sink.snapshots[0][0].AreaSqM; got != 40.2 {
		t.Errorf("persisted row area = %v, want the parseable one", got)
	}

	run, err := ops.GetRun(1)
	if err != nil || run == nil {
		t.Fatalf("run record: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", run.Status)
	}
	if run.RecordsFound != 2 || run.RowsPersisted != 1 || run.RowsDropped != 1 {
		t.Errorf("run stats = %+v", run)
	}

	logs, err := ops.GetLogs(run.ID)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	var warned bool
	for _, l := range logs {
		if l.Level == models.LogLevelWarn && strings.Contains(l.Message, "Dropping row") {
			warned = true
		}
	}
	if !warned {
		t.Error("dropped row was not logged at warn level")
	}
}

func TestRunSite_FetchErrorPolicies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	// skip: run completes with zero rows; the snapshot is still written
	// (an empty page set is a valid result of a full run).
	sink := &memSink{}
	o, ops := newTestOrchestrator(t, testConfig(t, srv.URL, 2, config.FetchPolicySkip), sink, &stubGeocoder{})
	if err := o.RunSite(context.Background(), "suumo_chintai"); err != nil {
		t.Fatalf("skip policy should not fail the run: %v", err)
	}
	run, _ := ops.GetRun(1)
	if run.ErrorsCount != 2 || run.PagesFetched != 0 {
		t.Errorf("run stats = %+v", run)
	}

	// abort: the run fails and nothing is persisted.
	sink2 := &memSink{}
	o2, ops2 := newTestOrchestrator(t, testConfig(t, srv.URL, 2, config.FetchPolicyAbort), sink2, &stubGeocoder{})
	err := o2.RunSite(context.Background(), "suumo_chintai")
	if err == nil {
		t.Fatal("abort policy should fail the run")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Errorf("err = %v, want FetchError", err)
	}
	if len(sink2.snapshots) != 0 {
		t.Error("failed run must not write a snapshot")
	}
	run2, _ := ops2.GetRun(1)
	if run2.Status != models.RunStatusFailed {
		t.Errorf("run status = %s", run2.Status)
	}
}

func TestRunSite_SinkFailureFailsRun(t *testing.T) {
	page := loadFixture(t, "listing_page.html")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(page)
	}))
	defer srv.Close()

	o, ops := newTestOrchestrator(t, testConfig(t, srv.URL, 1, config.FetchPolicySkip), failSink{}, &stubGeocoder{})
	if err := o.RunSite(context.Background(), "suumo_chintai"); err == nil {
		t.Fatal("sink failure should fail the run")
	}
	run, _ := ops.GetRun(1)
	if run.Status != models.RunStatusFailed {
		t.Errorf("run status = %s", run.Status)
	}
}

func TestRunSite_UnknownSite(t *testing.T) {
	o, _ := newTestOrchestrator(t, &config.Config{Sites: map[string]*config.SiteConfig{}}, &memSink{}, &stubGeocoder{})
	if err := o.RunSite(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown site")
	}
}

func TestDedupe(t *testing.T) {
	a := models.RawListing{Name: "A", Floor: "2階"}
	b := models.RawListing{Name: "A", Floor: "3階"}
	got := dedupe([]models.RawListing{a, b, a, a, b})
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0] != a || got[1] != b {
		t.Errorf("order not preserved: %+v", got)
	}
}
