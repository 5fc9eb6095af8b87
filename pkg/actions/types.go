// Package actions implements the versioned action registry and the types shared by action handlers.
package actions

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// ActionID is the canonical internal identifier of a handler, e.g. "HEALTHCHECK_V1".
type ActionID string

// Handler executes one action. The returned value becomes the envelope's data field.
type Handler func(ctx context.Context, payload Payload, rc *RequestContext) (interface{}, error)

// Definition registers a handler under a name and major version.
// Aliases are extra public names that resolve to the same ActionID.
type Definition struct {
	Name    string
	Major   int
	Handler Handler
	Aliases []string
}

// RequestContext carries per-request metadata. It is created by the dispatcher for a single
// request and never shared.
type RequestContext struct {
	RequestID    string   `json:"requestId"`
	Initiator    string   `json:"initiator"`
	ActionID     ActionID `json:"actionId,omitempty"`
	PublicAction string   `json:"publicAction,omitempty"`
	APIVersion   int      `json:"v"`
	Method       string   `json:"method"`
}

// Payload is the handler input: GET query parameters or the decoded POST body.
type Payload map[string]interface{}

// String returns the trimmed string form of a field. Numbers and booleans are formatted;
// missing, null and composite values yield "".
func (p Payload) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// FirstString returns the first non-empty field among keys.
func (p Payload) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := p.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Has reports whether the field is present, even when its value is empty.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}
