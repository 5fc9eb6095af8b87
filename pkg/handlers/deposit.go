package handlers

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/morezero/action-gateway/pkg/actions"
	"github.com/morezero/action-gateway/pkg/bootstrap"
)

// DepositResult is the STRIPE_GET_BOOKING_DEPOSIT_AMOUNT payload.
type DepositResult struct {
	Amount          float64 `json:"amount"`
	PriceID         string  `json:"priceId"`
	RequestedAmount float64 `json:"requestedAmount"`
}

// DepositAmountV1 returns the deposit tier closest to "amount". Ties go to the earlier tier.
func DepositAmountV1(tiers []bootstrap.DepositTier) actions.Handler {
	return func(_ context.Context, p actions.Payload, _ *actions.RequestContext) (interface{}, error) {
		raw := p.String("amount")
		if raw == "" {
			return nil, actions.Validation("Missing 'amount' parameter")
		}
		amount, err := parsePositive(raw)
		if err != nil {
			return nil, actions.Validation("'amount' must be a positive number")
		}
		tier, ok := closestTier(tiers, amount)
		if !ok {
			msg := "No matching deposit price found for amount: " + strconv.FormatFloat(amount, 'f', -1, 64)
			return nil, actions.NotFound(msg, nil)
		}
		return DepositResult{Amount: tier.Value, PriceID: tier.ID, RequestedAmount: amount}, nil
	}
}

func closestTier(tiers []bootstrap.DepositTier, amount float64) (bootstrap.DepositTier, bool) {
	var best bootstrap.DepositTier
	bestDiff := math.Inf(1)
	found := false
	for _, t := range tiers {
		if t.ID == bootstrap.UnavailableTierID {
			continue
		}
		if d := math.Abs(t.Value - amount); d < bestDiff {
			best, bestDiff, found = t, d, true
		}
	}
	return best, found
}

func parsePositive(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("not a positive number: %s", raw)
	}
	return v, nil
}
