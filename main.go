package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chintai_scraper/config"
	"chintai_scraper/geocode"
	"chintai_scraper/httputil"
	"chintai_scraper/logging"
	"chintai_scraper/scheduler"
	"chintai_scraper/scraper"
	"chintai_scraper/storage"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run scrape once and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("scraper.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting chintai_scraper...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d site configs", len(cfg.Sites))
	for id, site := range cfg.Sites {
		log.Printf("  - %s (%s): %d pages, table %s", site.Name, id, site.MaxPages, site.Table)
	}

	clients := httputil.NewClients(cfg.ProxyURL)

	ctx := context.Background()

	ops, err := storage.NewOpsStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open operational store: %v", err)
	}
	defer ops.Close()
	log.Printf("Operational store: %s", cfg.DBPath)

	sink, err := openSink(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open snapshot sink: %v", err)
	}
	defer sink.Close()

	limiter := geocode.NewLimiter(cfg.Geocoder.Interval)
	nominatim := geocode.NewNominatim(cfg.Geocoder.BaseURL, clients.Geocode, cfg.Geocoder.UserAgent, limiter)
	resolver := geocode.NewResolver(nominatim, ops)

	orchestrator := scraper.NewOrchestrator(cfg, ops, sink, resolver, clients)

	if *scrapeNow {
		log.Println("Running scrape...")
		if err := orchestrator.RunAll(ctx); err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Println("Scrape complete!")
		return
	}

	sched := scheduler.New(cfg, orchestrator)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop, SIGUSR1 to scrape now.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	for sig := range sigCh {
		if sig == syscall.SIGUSR1 {
			log.Println("Manual trigger received")
			if err := sched.TriggerNow(ctx); err != nil {
				log.Printf("Manual run error: %v", err)
			}
			continue
		}
		break
	}

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// openSink picks the snapshot destination: Postgres when DATABASE_URL
// is set, otherwise the local SQLite file the UI reads. All configured
// sites share one sink; config.Load rejects disagreeing table names,
// so any site's table stands for all of them.
func openSink(ctx context.Context, cfg *config.Config) (storage.Sink, error) {
	table := "room_ver2"
	for _, site := range cfg.Sites {
		table = site.Table
		break
	}

	if cfg.DatabaseURL != "" {
		log.Println("Snapshot sink: Postgres")
		return storage.NewPostgresSink(ctx, cfg.DatabaseURL, table)
	}
	log.Printf("Snapshot sink: SQLite (%s)", cfg.DBPath)
	return storage.NewSQLiteSink(cfg.DBPath, table)
}
