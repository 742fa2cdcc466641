package httputil

import (
	"net/http"
	"net/url"
	"time"
)

// Clients holds the preconfigured HTTP clients the pipeline shares.
// The scraping client can route through a proxy; the geocoding client
// always goes direct.
type Clients struct {
	Scraping *http.Client
	Geocode  *http.Client
}

func NewClients(proxyURL string) *Clients {
	scraping := &http.Client{Timeout: 15 * time.Second}

	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			scraping.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
		}
	}

	return &Clients{
		Scraping: scraping,
		Geocode:  &http.Client{Timeout: 30 * time.Second},
	}
}
