package handlers

import (
	"context"
	"math"
	"strconv"

	"github.com/morezero/action-gateway/pkg/actions"
)

// EstimateResult is the CALCULATE_ESTIMATE payload.
type EstimateResult struct {
	ServiceType string  `json:"serviceType"`
	Quantity    float64 `json:"quantity"`
	BasePrice   float64 `json:"basePrice"`
	Subtotal    float64 `json:"subtotal"`
	Total       float64 `json:"total"`
	Currency    string  `json:"currency"`
}

// EstimateV1 multiplies basePrice by quantity. Fields accept camelCase or snake_case names.
func EstimateV1() actions.Handler {
	return func(_ context.Context, p actions.Payload, _ *actions.RequestContext) (interface{}, error) {
		serviceType := p.FirstString("serviceType", "service_type")
		if serviceType == "" {
			return nil, actions.Validation("Missing 'serviceType' parameter")
		}
		quantity, ok := numberOr(p.FirstString("quantity", "qty"), 1)
		if !ok || quantity <= 0 {
			return nil, actions.Validation("'quantity' must be a positive number")
		}
		basePrice, ok := numberOr(p.FirstString("basePrice", "base_price"), 0)
		if !ok || basePrice < 0 {
			return nil, actions.Validation("'basePrice' must be a non-negative number")
		}
		subtotal := basePrice * quantity
		return EstimateResult{
			ServiceType: serviceType,
			Quantity:    quantity,
			BasePrice:   basePrice,
			Subtotal:    subtotal,
			Total:       subtotal,
			Currency:    "USD",
		}, nil
	}
}

func numberOr(raw string, fallback float64) (float64, bool) {
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
