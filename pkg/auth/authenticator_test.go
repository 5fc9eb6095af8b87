package auth

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/morezero/action-gateway/pkg/props"
)

const authTestPrefix = "auth:authenticator_test"

type erroringStore struct{ props.Store }

func (e erroringStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == props.KeyPrimaryToken {
		return "", false, errors.New("db down")
	}
	return e.Store.Get(ctx, key)
}

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator(props.NewMemoryStore(map[string]string{
		props.KeyPrimaryToken:     "primary-secret",
		props.KeySecondaryToken:   " secondary-secret ",
		props.KeyIntegrationToken: "",
	}))
}

func TestValidate(t *testing.T) {
	a := newTestAuthenticator()
	ctx := context.Background()

	tests := []struct {
		name       string
		token      string
		wantValid  bool
		wantSource string
	}{
		{"primary", "primary-secret", true, props.KeyPrimaryToken},
		{"secondary trimmed both sides", "  secondary-secret", true, props.KeySecondaryToken},
		{"wrong", "nope", false, ""},
		{"prefix only", "primary", false, ""},
		{"empty", "", false, ""},
		{"whitespace", "   ", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Validate(ctx, tt.token)
			if res.Valid != tt.wantValid || res.SourceName() != tt.wantSource {
				t.Errorf("%s - Validate(%q) = valid=%v source=%q", authTestPrefix, tt.token, res.Valid, res.SourceName())
			}
			if !res.Valid && res.Source != nil {
				t.Errorf("%s - invalid result must have nil source", authTestPrefix)
			}
		})
	}
}

func TestValidate_EmptySecretNeverMatches(t *testing.T) {
	a := NewAuthenticator(props.NewMemoryStore(map[string]string{props.KeyPrimaryToken: "  "}))
	for _, tok := range []string{"", " ", "  "} {
		if a.Validate(context.Background(), tok).Valid {
			t.Errorf("%s - token %q matched an empty secret", authTestPrefix, tok)
		}
	}
}

func TestValidate_StoreErrorSkipsSecret(t *testing.T) {
	a := NewAuthenticator(erroringStore{props.NewMemoryStore(map[string]string{
		props.KeySecondaryToken: "s2",
	})})
	if res := a.Validate(context.Background(), "s2"); !res.Valid || res.SourceName() != props.KeySecondaryToken {
		t.Errorf("%s - expected secondary match despite primary read error, got %+v", authTestPrefix, res)
	}
}

func TestValidate_Properties(t *testing.T) {
	a := newTestAuthenticator()
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("unknown tokens are rejected with no source", prop.ForAll(
		func(tok string) bool {
			if tok == "primary-secret" || tok == "secondary-secret" {
				return true
			}
			res := a.Validate(ctx, "x"+tok)
			return !res.Valid && res.Source == nil
		},
		gen.AnyString(),
	))

	properties.Property("preview never exceeds four characters", prop.ForAll(
		func(tok string) bool {
			res := a.Validate(ctx, tok)
			return res.Preview == nil || utf8.RuneCountInString(*res.Preview) <= 4
		},
		gen.AnyString(),
	))

	properties.Property("configured secrets are accepted with their name", prop.ForAll(
		func(secret string) bool {
			store := props.NewMemoryStore(map[string]string{props.KeyIntegrationToken: secret})
			res := NewAuthenticator(store).Validate(ctx, secret)
			return res.Valid && res.SourceName() == props.KeyIntegrationToken
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
