package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"chintai_scraper/config"
)

const pagePlaceholder = "{page}"

// FetchError reports a failed page retrieval: either a transport error
// (Err set) or a non-success status (StatusCode set).
type FetchError struct {
	Page       int
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("fetch page %d: status %d", e.Page, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves one paginated listing page at a time. It does not
// pace itself; the orchestrator owns the politeness delay between
// pages.
type Fetcher struct {
	cfg    *config.SiteConfig
	client *http.Client
}

func NewFetcher(cfg *config.SiteConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{cfg: cfg, client: client}
}

func (f *Fetcher) PageURL(page int) string {
	return strings.ReplaceAll(f.cfg.URLTemplate, pagePlaceholder, strconv.Itoa(page))
}

func (f *Fetcher) Fetch(ctx context.Context, page int) ([]byte, error) {
	url := f.PageURL(page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Page: page, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Page: page, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Page: page, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Page: page, URL: url, Err: err}
	}
	return body, nil
}
