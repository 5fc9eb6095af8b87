package handlers

import (
	"context"

	"github.com/morezero/action-gateway/pkg/actions"
)

// HealthResult is the HEALTHCHECK payload.
type HealthResult struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// HealthV1 reports liveness.
func HealthV1(version string) actions.Handler {
	return func(context.Context, actions.Payload, *actions.RequestContext) (interface{}, error) {
		return HealthResult{Status: "ok", Version: version}, nil
	}
}
