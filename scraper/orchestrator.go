package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"chintai_scraper/config"
	"chintai_scraper/geocode"
	"chintai_scraper/httputil"
	"chintai_scraper/models"
	"chintai_scraper/normalize"
	"chintai_scraper/storage"
)

// Orchestrator drives one full pipeline run per site: paginate and
// fetch, extract raw records, deduplicate, normalize, geocode, then
// replace the snapshot table in a single write. Persistence is
// all-or-nothing; per-row failures only shrink the row count.
type Orchestrator struct {
	cfg      *config.Config
	ops      *storage.OpsStore
	sink     storage.Sink
	resolver *geocode.Resolver
	clients  *httputil.Clients

	// politeness pause between page fetches; swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(cfg *config.Config, ops *storage.OpsStore, sink storage.Sink, resolver *geocode.Resolver, clients *httputil.Clients) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		ops:      ops,
		sink:     sink,
		resolver: resolver,
		clients:  clients,
		sleep:    sleepFor,
	}
}

func (o *Orchestrator) RunAll(ctx context.Context) error {
	for siteID := range o.cfg.Sites {
		if err := o.RunSite(ctx, siteID); err != nil {
			log.Printf("Error running site %s: %v", siteID, err)
		}
	}
	return nil
}

func (o *Orchestrator) RunSite(ctx context.Context, siteID string) error {
	siteCfg, ok := o.cfg.Sites[siteID]
	if !ok {
		return fmt.Errorf("unknown site: %s", siteID)
	}

	if timeout := siteCfg.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	run := &models.ScrapeRun{
		SiteID:    siteID,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.ops.CreateRun(run)
	if err != nil {
		return err
	}
	run.ID = runID

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if err := o.ops.UpdateRun(run); err != nil {
			log.Printf("Warning: failed to finalize run %d: %v", run.ID, err)
		}
	}()

	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Starting scrape for %s (%d pages)", siteCfg.Name, siteCfg.MaxPages), siteID)

	raw, err := o.collectPages(ctx, run, siteCfg)
	if err != nil {
		run.Status = models.RunStatusFailed
		return err
	}
	run.RecordsFound = len(raw)

	deduped := dedupe(raw)
	if dropped := len(raw) - len(deduped); dropped > 0 {
		o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Removed %d duplicate records", dropped), siteID)
	}

	listings := make([]models.Listing, 0, len(deduped))
	for _, r := range deduped {
		l, err := normalize.Record(r, siteCfg.AccessLegCap)
		if err != nil {
			run.RowsDropped++
			o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("Dropping row (%s): %v", r.Name, err), siteID)
			continue
		}
		listings = append(listings, l)
	}

	now := time.Now()
	for i := range listings {
		if err := ctx.Err(); err != nil {
			run.Status = models.RunStatusFailed
			return err
		}

		pt := o.resolver.Resolve(ctx, listings[i].KanjiAddress)
		listings[i].SetCoordinates(pt)
		if pt.Found {
			run.GeocodeHits++
		} else {
			run.GeocodeMisses++
		}

		listings[i].ID = uuid.NewString()
		listings[i].ScrapedAt = now
	}

	if err := o.sink.Replace(ctx, listings); err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorsCount++
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Snapshot write failed, prior table kept: %v", err), siteID)
		return fmt.Errorf("persist snapshot: %w", err)
	}
	run.RowsPersisted = len(listings)

	run.Status = models.RunStatusCompleted
	o.log(run.ID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d found, %d persisted, %d dropped, geocoded %d/%d",
			run.RecordsFound, run.RowsPersisted, run.RowsDropped,
			run.GeocodeHits, run.GeocodeHits+run.GeocodeMisses), siteID)

	return nil
}

// collectPages walks pages 1..MaxPages sequentially, pausing the
// politeness delay after every fetch whether it succeeded or not.
func (o *Orchestrator) collectPages(ctx context.Context, run *models.ScrapeRun, siteCfg *config.SiteConfig) ([]models.RawListing, error) {
	fetcher := NewFetcher(siteCfg, o.clients.Scraping)
	extractor := NewExtractor(siteCfg.BaseURL)

	var raw []models.RawListing
	for page := 1; page <= siteCfg.MaxPages; page++ {
		body, err := fetcher.Fetch(ctx, page)
		if err != nil {
			run.ErrorsCount++
			o.log(run.ID, models.LogLevelError, fmt.Sprintf("Page %d: %v", page, err), run.SiteID)
			if siteCfg.OnFetchError == config.FetchPolicyAbort {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		} else {
			run.PagesFetched++
			records, err := extractor.Extract(body)
			if err != nil {
				run.ErrorsCount++
				o.log(run.ID, models.LogLevelError, fmt.Sprintf("Page %d: %v", page, err), run.SiteID)
			} else {
				raw = append(raw, records...)
				o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Page %d: %d records (total %d)", page, len(records), len(raw)), run.SiteID)
			}
		}

		if err := o.sleep(ctx, siteCfg.PageDelay()); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// dedupe removes exact-duplicate raw records, keeping first-seen
// order, so normalization and geocoding never see the same row twice.
func dedupe(records []models.RawListing) []models.RawListing {
	seen := make(map[models.RawListing]struct{}, len(records))
	out := make([]models.RawListing, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message, siteID string) {
	log.Printf("[%s] %s: %s", level, siteID, message)
	if err := o.ops.Log(&runID, level, message, siteID); err != nil {
		log.Printf("Warning: failed to record log row: %v", err)
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
