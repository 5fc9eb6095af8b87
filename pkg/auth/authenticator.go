package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"

	"github.com/morezero/action-gateway/pkg/props"
)

const logPrefix = "auth:authenticator"

// DefaultSecretNames are the Config Store keys holding accepted tokens, checked in order.
var DefaultSecretNames = []string{props.KeyPrimaryToken, props.KeySecondaryToken, props.KeyIntegrationToken}

// Result is the outcome of Validate. Source is the matching secret name and Preview holds at
// most four characters of the checked token.
type Result struct {
	Valid   bool    `json:"valid"`
	Source  *string `json:"source"`
	Preview *string `json:"preview"`
}

// SourceName returns the matched secret name or "".
func (r Result) SourceName() string {
	if r.Source == nil {
		return ""
	}
	return *r.Source
}

// PreviewString returns the token preview or "N/A".
func (r Result) PreviewString() string {
	if r.Preview == nil {
		return "N/A"
	}
	return *r.Preview
}

// Authenticator validates tokens against named secrets read from a props.Store on every call.
type Authenticator struct {
	store props.Store
	names []string
}

// NewAuthenticator creates an Authenticator. With no names, DefaultSecretNames is used.
func NewAuthenticator(store props.Store, names ...string) *Authenticator {
	if len(names) == 0 {
		names = DefaultSecretNames
	}
	return &Authenticator{store: store, names: append([]string(nil), names...)}
}

// Validate compares the trimmed token against each configured secret. Empty tokens never match
// and empty secrets are skipped as misconfigured. Store read failures skip that secret.
func (a *Authenticator) Validate(ctx context.Context, token string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}
	}
	preview := Preview(token)
	for _, name := range a.names {
		secret, _, err := a.store.Get(ctx, name)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - read secret %s failed: %v", logPrefix, name, err))
			continue
		}
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(token)) == 1 {
			source := name
			return Result{Valid: true, Source: &source, Preview: &preview}
		}
	}
	return Result{Valid: false, Preview: &preview}
}
