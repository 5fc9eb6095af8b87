package version

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	masterminds "github.com/Masterminds/semver/v3"
)

var actionIDRegex = regexp.MustCompile(`^([A-Z][A-Z0-9_]*?)_V(\d+)$`)

// FormatActionID builds the canonical identifier for a named action at a major version, e.g. HEALTHCHECK_V1.
func FormatActionID(name string, major int) string {
	return fmt.Sprintf("%s_V%d", name, major)
}

// ParseActionID splits a canonical identifier into its name and major version.
// Returns ok=false when the identifier carries no version suffix.
func ParseActionID(id string) (name string, major int, ok bool) {
	m := actionIDRegex.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return m[1], n, true
}

// LatestByName groups versioned identifiers by name and returns the highest version of each.
// Identifiers without a version suffix are ignored.
func LatestByName(ids []string) map[string]string {
	byName := make(map[string][]*masterminds.Version)
	for _, id := range ids {
		name, major, ok := ParseActionID(id)
		if !ok {
			continue
		}
		byName[name] = append(byName[name], masterminds.New(uint64(major), 0, 0, "", ""))
	}

	out := make(map[string]string, len(byName))
	for name, versions := range byName {
		sort.Sort(sort.Reverse(masterminds.Collection(versions)))
		out[name] = FormatActionID(name, int(versions[0].Major()))
	}
	return out
}
