package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNominatim_Geocode(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"35.6940","lon":"139.7536","display_name":"九段南"}]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, srv.Client(), "chintai_scraper test", NewLimiter(0))
	pt, err := n.Geocode(context.Background(), "東京都千代田区九段南一丁目")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if !pt.Found {
		t.Fatal("expected a match")
	}
	if pt.Lat != 35.6940 || pt.Lng != 139.7536 {
		t.Errorf("got (%v, %v)", pt.Lat, pt.Lng)
	}
	if gotQuery != "東京都千代田区九段南一丁目" {
		t.Errorf("query sent = %q", gotQuery)
	}
}

func TestNominatim_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, srv.Client(), "", NewLimiter(0))
	pt, err := n.Geocode(context.Background(), "どこでもない住所")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if pt.Found {
		t.Error("expected not found")
	}
}

func TestNominatim_EmptyQuerySkipsRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, srv.Client(), "", NewLimiter(0))
	pt, err := n.Geocode(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if pt.Found {
		t.Error("expected not found")
	}
	if calls != 0 {
		t.Errorf("empty query made %d requests", calls)
	}
}

func TestNominatim_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, srv.Client(), "", NewLimiter(0))
	if _, err := n.Geocode(context.Background(), "東京都"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
