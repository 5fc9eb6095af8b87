// Package auth extracts caller tokens and validates them against the named secrets in the
// Config Store.
package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/morezero/action-gateway/pkg/actions"
)

// TokenSource identifies where a credential was found.
type TokenSource string

const (
	SourceNone   TokenSource = "none"
	SourceQuery  TokenSource = "query"
	SourceHeader TokenSource = "header"
	SourceBody   TokenSource = "body"
)

// TokenField is the query parameter and POST body field carrying the token.
const TokenField = "token"

// ExtractGET returns the token of a GET request: the "token" query parameter first, then an
// "Authorization: Bearer <token>" header.
func ExtractGET(query url.Values, header http.Header) (string, TokenSource) {
	if tok := strings.TrimSpace(query.Get(TokenField)); tok != "" {
		return tok, SourceQuery
	}
	if tok := bearer(header.Get("Authorization")); tok != "" {
		return tok, SourceHeader
	}
	return "", SourceNone
}

// ExtractBody returns the token field of a decoded POST body.
func ExtractBody(payload actions.Payload) (string, TokenSource) {
	if tok := payload.String(TokenField); tok != "" {
		return tok, SourceBody
	}
	return "", SourceNone
}

func bearer(value string) string {
	value = strings.TrimSpace(value)
	scheme, rest, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

// Preview returns at most the first four characters of token.
func Preview(token string) string {
	r := []rune(token)
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r)
}
