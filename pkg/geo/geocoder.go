// Package geo resolves street addresses to coordinates through the Google Maps Geocoding API,
// caching results per normalized address.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/morezero/action-gateway/pkg/actions"
	"github.com/morezero/action-gateway/pkg/cache"
	"github.com/morezero/action-gateway/pkg/lookup"
	"github.com/morezero/action-gateway/pkg/props"
)

const logPrefix = "geo:geocoder"

const (
	// Namespace prefixes geocoding cache keys.
	Namespace = "geocode"
	// DefaultEndpoint is used when GOOGLE_MAPS_GEOCODE_URL is not configured.
	DefaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"
	// DefaultTimeout bounds one upstream call.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// Query is one geocoding request. TTL of zero means cache.DefaultTTL.
type Query struct {
	Address    string
	Region     string
	Language   string
	Components string
	TTL        time.Duration
}

// Location is the normalized geocoding result.
type Location struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	FullAddress string  `json:"fullAddress"`
}

type apiResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocoder is safe for concurrent use.
type Geocoder struct {
	store  props.Store
	client *http.Client
	lookup *lookup.Lookup[Query, Location]
}

// NewGeocoder creates a Geocoder. A nil client gets one with DefaultTimeout.
func NewGeocoder(store props.Store, c cache.Cache, client *http.Client) *Geocoder {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	g := &Geocoder{store: store, client: client}
	g.lookup = lookup.New(lookup.Config[Query, Location]{
		Namespace: Namespace,
		Cache:     c,
		Key:       cacheKeyParts,
		Fetch:     g.fetch,
		TTL:       func(q Query) time.Duration { return q.TTL },
	})
	return g
}

// Geocode returns the location for q, from cache when a live entry exists.
func (g *Geocoder) Geocode(ctx context.Context, q Query) (Location, lookup.Outcome, error) {
	return g.lookup.Get(ctx, q)
}

// CacheKey returns the cache key used for q.
func CacheKey(q Query) (string, error) {
	parts, err := cacheKeyParts(q)
	if err != nil {
		return "", err
	}
	return lookup.BuildKey(Namespace, parts...), nil
}

func cacheKeyParts(q Query) ([]string, error) {
	if _, err := lookup.RequireText(q.Address); err != nil {
		return nil, actions.Validation("Address is required and must be a non-empty string.")
	}
	return []string{q.Address, q.Region, q.Language, q.Components}, nil
}

func (g *Geocoder) fetch(ctx context.Context, q Query) (Location, error) {
	apiKey, err := props.Lookup(ctx, g.store, props.KeyGoogleMapsAPIKey, props.Options{Required: true})
	if err != nil {
		var missing *props.MissingError
		if errors.As(err, &missing) {
			return Location{}, actions.Internal(missing.Error(), err)
		}
		return Location{}, actions.Internal("Geocoding configuration unavailable", err)
	}
	endpoint, err := props.Lookup(ctx, g.store, props.KeyGeocodeURL, props.Options{Default: DefaultEndpoint})
	if err != nil {
		return Location{}, actions.Internal("Geocoding configuration unavailable", err)
	}

	params := url.Values{}
	params.Set("address", strings.TrimSpace(q.Address))
	params.Set("key", apiKey)
	if q.Region != "" {
		params.Set("region", q.Region)
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.Components != "" {
		params.Set("components", q.Components)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Location{}, actions.Internal("Geocoding request could not be built", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		reason := "request failed"
		var uerr *url.Error
		if errors.As(err, &uerr) {
			if uerr.Timeout() {
				reason = "timeout"
			}
			err = uerr.Err
		}
		slog.Warn(fmt.Sprintf("%s - upstream call failed: %v", logPrefix, err))
		return Location{}, actions.Upstream("Geocoding failed: "+reason, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err == nil && len(raw) > 0 {
		if jerr := json.Unmarshal(raw, &body); jerr != nil {
			slog.Warn(fmt.Sprintf("%s - undecodable response status=%d: %v", logPrefix, resp.StatusCode, jerr))
		}
	}

	if resp.StatusCode == http.StatusOK && body.Status == "OK" && len(body.Results) > 0 {
		first := body.Results[0]
		return Location{
			Lat:         first.Geometry.Location.Lat,
			Lng:         first.Geometry.Location.Lng,
			FullAddress: first.FormattedAddress,
		}, nil
	}

	reason := body.ErrorMessage
	if reason == "" {
		reason = body.Status
	}
	if reason == "" {
		reason = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return Location{}, actions.Upstream("Geocoding failed: "+reason, nil)
}
