package geocode

import (
	"context"
	"log"
	"strings"

	"chintai_scraper/models"
)

type Geocoder interface {
	Geocode(ctx context.Context, query string) (models.GeoPoint, error)
}

// Cache stores resolved queries between calls and between runs.
// Not-found results are cached too, so a bad address costs one
// upstream request per cache lifetime, not one per row.
type Cache interface {
	GetGeocode(query string) (models.GeoPoint, bool, error)
	PutGeocode(query string, pt models.GeoPoint) error
}

// Resolver wraps a Geocoder with caching and the pipeline's
// miss-not-error policy: any upstream failure degrades to a not-found
// coordinate pair so geocoding can never stop a run.
type Resolver struct {
	geocoder Geocoder
	cache    Cache
}

func NewResolver(geocoder Geocoder, cache Cache) *Resolver {
	return &Resolver{geocoder: geocoder, cache: cache}
}

func (r *Resolver) Resolve(ctx context.Context, query string) models.GeoPoint {
	key := strings.TrimSpace(query)
	if key == "" {
		return models.GeoPoint{}
	}

	if r.cache != nil {
		if pt, ok, err := r.cache.GetGeocode(key); err == nil && ok {
			return pt
		}
	}

	pt, err := r.geocoder.Geocode(ctx, key)
	if err != nil {
		log.Printf("Geocode miss for %q: %v", key, err)
		return models.GeoPoint{}
	}

	if r.cache != nil {
		if err := r.cache.PutGeocode(key, pt); err != nil {
			log.Printf("Warning: could not cache geocode for %q: %v", key, err)
		}
	}
	return pt
}
