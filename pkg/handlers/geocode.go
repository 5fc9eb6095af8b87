package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/morezero/action-gateway/pkg/actions"
	"github.com/morezero/action-gateway/pkg/cache"
	"github.com/morezero/action-gateway/pkg/geo"
)

// GetLatLngV1 geocodes the "address" field. Optional fields: region, language, components and
// cacheTtlSec.
func GetLatLngV1(g Geocoder) actions.Handler {
	return func(ctx context.Context, p actions.Payload, _ *actions.RequestContext) (interface{}, error) {
		address := p.String("address")
		if address == "" {
			return nil, actions.Validation("Missing 'address' parameter")
		}
		if g == nil {
			return nil, actions.Internal("Geocoding is not configured", nil)
		}
		q := geo.Query{
			Address:    address,
			Region:     p.String("region"),
			Language:   p.String("language"),
			Components: p.String("components"),
		}
		if raw := p.String("cacheTtlSec"); raw != "" {
			secs, err := strconv.Atoi(raw)
			if err != nil || secs < 0 {
				return nil, actions.Validation("'cacheTtlSec' must be a non-negative integer")
			}
			if limit := int(cache.MaxTTL / time.Second); secs > limit {
				secs = limit
			}
			q.TTL = time.Duration(secs) * time.Second
		}
		loc, _, err := g.Geocode(ctx, q)
		if err != nil {
			return nil, err
		}
		return loc, nil
	}
}
