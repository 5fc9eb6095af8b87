package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

const typesTestPrefix = "actions:types_test"

func TestPayload_String(t *testing.T) {
	var p Payload
	if err := json.Unmarshal([]byte(`{"s":"  hi  ","n":12.5,"i":3,"b":true,"z":null,"o":{"a":1}}`), &p); err != nil {
		t.Fatalf("%s - unmarshal: %v", typesTestPrefix, err)
	}
	tests := map[string]string{"s": "hi", "n": "12.5", "i": "3", "b": "true", "z": "", "o": "", "missing": ""}
	for key, want := range tests {
		if got := p.String(key); got != want {
			t.Errorf("%s - String(%q) = %q, want %q", typesTestPrefix, key, got, want)
		}
	}
	if got := p.FirstString("missing", "z", "s"); got != "hi" {
		t.Errorf("%s - FirstString = %q, want hi", typesTestPrefix, got)
	}
	if !p.Has("z") || p.Has("missing") {
		t.Errorf("%s - Has reported wrong presence", typesTestPrefix)
	}
}

func TestActionError(t *testing.T) {
	tests := []struct {
		err    *ActionError
		kind   Kind
		status int
	}{
		{Validation("bad"), KindValidation, http.StatusBadRequest},
		{Unauthorized(), KindUnauthorized, http.StatusUnauthorized},
		{NotFound("gone", map[string]string{"actionId": "X"}), KindNotFound, http.StatusNotFound},
		{Upstream("Geocoding failed: ZERO_RESULTS", nil), KindUpstream, http.StatusBadGateway},
		{Internal("boom", errors.New("cause")), KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if tt.err.Kind != tt.kind || tt.err.Status != tt.status {
			t.Errorf("%s - %v: kind=%s status=%d, want %s %d", typesTestPrefix, tt.err, tt.err.Kind, tt.err.Status, tt.kind, tt.status)
		}
	}

	cause := errors.New("dial tcp: timeout")
	wrapped := fmt.Errorf("outer: %w", Upstream("Geocoding failed: timeout", cause))
	ae, ok := AsActionError(wrapped)
	if !ok || ae.Kind != KindUpstream {
		t.Fatalf("%s - AsActionError did not unwrap", typesTestPrefix)
	}
	if !errors.Is(wrapped, cause) {
		t.Errorf("%s - cause lost through Unwrap", typesTestPrefix)
	}
	if _, ok := AsActionError(errors.New("plain")); ok {
		t.Errorf("%s - plain error reported as ActionError", typesTestPrefix)
	}
}
