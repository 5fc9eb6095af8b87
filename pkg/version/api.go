// Package version provides API version parsing and versioned action identifier helpers.
package version

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "version:api"

// DefaultAPIVersion is used whenever the caller omits or mangles the version parameter.
const DefaultAPIVersion = 1

var apiVersionRegex = regexp.MustCompile(`^v?\d+$`)

// ParseAPIVersion converts a raw "v"/"version" parameter into a positive API version.
//
// Accepted forms are a bare positive integer ("2") or the same prefixed with "v" ("v3").
// Anything else (empty, "2.7", "-5", "banana", "0") silently yields DefaultAPIVersion.
func ParseAPIVersion(raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || !apiVersionRegex.MatchString(s) {
		return DefaultAPIVersion
	}

	sv, err := masterminds.NewVersion(s)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - rejected version %q: %v", logPrefix, raw, err))
		return DefaultAPIVersion
	}

	major := sv.Major()
	if major == 0 || major > math.MaxInt32 {
		return DefaultAPIVersion
	}
	return int(major)
}

// FirstNonEmpty returns the first non-blank candidate, used to read "v" before "version".
func FirstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}
