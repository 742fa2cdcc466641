package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath      string // SQLite file for the snapshot sink and run records
	DatabaseURL string // when set, the snapshot goes to Postgres instead
	LogLevel    string
	ProxyURL    string
	Scheduler   SchedulerConfig
	Geocoder    GeocoderConfig
	Sites       map[string]*SiteConfig
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type GeocoderConfig struct {
	BaseURL   string
	UserAgent string
	Interval  time.Duration // minimum spacing between lookups
}

// SiteConfig describes one paginated listing source. Loaded from
// config/sites/*.yaml.
type SiteConfig struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	URLTemplate   string `yaml:"url_template"` // contains a {page} placeholder
	BaseURL       string `yaml:"base_url"`     // origin for relative detail links
	MaxPages      int    `yaml:"max_pages"`
	PageDelayMS   int    `yaml:"page_delay_ms"` // politeness pause after each fetch
	AccessLegCap  int    `yaml:"access_leg_cap"`
	Table         string `yaml:"table"`
	OnFetchError  string `yaml:"on_fetch_error"` // "skip" or "abort"
	RunTimeoutMin int    `yaml:"run_timeout_min"`
}

const (
	FetchPolicySkip  = "skip"
	FetchPolicyAbort = "abort"
)

func (s *SiteConfig) PageDelay() time.Duration {
	return time.Duration(s.PageDelayMS) * time.Millisecond
}

func (s *SiteConfig) RunTimeout() time.Duration {
	return time.Duration(s.RunTimeoutMin) * time.Minute
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:      getEnv("DB_PATH", "room.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ProxyURL:    os.Getenv("SCRAPE_PROXY"),
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:   os.Getenv("GEOCODER_URL"),
			UserAgent: getEnv("GEOCODER_USER_AGENT", "chintai_scraper/1.0"),
			Interval:  time.Duration(getEnvInt("GEOCODER_INTERVAL_MS", 1000)) * time.Millisecond,
		},
		Sites: make(map[string]*SiteConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSiteConfigs(); err != nil {
		return nil, err
	}
	if err := cfg.validateSites(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSites rejects site sets whose snapshot tables disagree.
// All sites write through one sink, so they must name one table.
func (c *Config) validateSites() error {
	var table, first string
	for id, site := range c.Sites {
		if table == "" {
			table, first = site.Table, id
			continue
		}
		if site.Table != table {
			return fmt.Errorf("site %s writes table %q but site %s writes %q; configured sites must share one snapshot table",
				id, site.Table, first, table)
		}
	}
	return nil
}

func (c *Config) loadSiteConfigs() error {
	configDir := getEnv("SITE_CONFIG_DIR", "config/sites")
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var site SiteConfig
		if err := yaml.Unmarshal(data, &site); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		site.applyDefaults()

		c.Sites[site.ID] = &site
	}

	return nil
}

func (s *SiteConfig) applyDefaults() {
	if s.MaxPages <= 0 {
		s.MaxPages = 10
	}
	if s.PageDelayMS <= 0 {
		s.PageDelayMS = 3000
	}
	if s.AccessLegCap <= 0 {
		s.AccessLegCap = 3
	}
	if s.Table == "" {
		s.Table = "room_ver2"
	}
	if s.OnFetchError == "" {
		s.OnFetchError = FetchPolicySkip
	}
	if s.RunTimeoutMin <= 0 {
		s.RunTimeoutMin = 60
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
