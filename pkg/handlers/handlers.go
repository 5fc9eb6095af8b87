// Package handlers contains the action handlers and the canonical action table.
package handlers

import (
	"context"

	"github.com/morezero/action-gateway/pkg/actions"
	"github.com/morezero/action-gateway/pkg/bootstrap"
	"github.com/morezero/action-gateway/pkg/geo"
	"github.com/morezero/action-gateway/pkg/lookup"
)

// Action names.
const (
	ActionHealthcheck   = "HEALTHCHECK"
	ActionGetLatLng     = "GET_LAT_LNG"
	ActionDepositAmount = "STRIPE_GET_BOOKING_DEPOSIT_AMOUNT"
	ActionEstimate      = "CALCULATE_ESTIMATE"
)

// Geocoder is the subset of *geo.Geocoder used by GET_LAT_LNG.
type Geocoder interface {
	Geocode(ctx context.Context, q geo.Query) (geo.Location, lookup.Outcome, error)
}

// Deps are the collaborators handlers need.
type Deps struct {
	Geocoder     Geocoder
	DepositTiers []bootstrap.DepositTier
	Version      string
}

// Definitions returns the v1 action table.
func Definitions(d Deps) []actions.Definition {
	tiers := append([]bootstrap.DepositTier(nil), d.DepositTiers...)
	return []actions.Definition{
		{Name: ActionHealthcheck, Major: 1, Handler: HealthV1(d.Version)},
		{Name: ActionGetLatLng, Major: 1, Handler: GetLatLngV1(d.Geocoder)},
		{Name: ActionDepositAmount, Major: 1, Handler: DepositAmountV1(tiers)},
		{Name: ActionEstimate, Major: 1, Handler: EstimateV1()},
	}
}

// NewRouter builds the registry for every API version. Version 2 is reserved and served by v1.
func NewRouter(d Deps) (*actions.Router, error) {
	v1, err := actions.NewRegistry(Definitions(d))
	if err != nil {
		return nil, err
	}
	return actions.NewRouter(map[int]*actions.Registry{1: v1})
}
