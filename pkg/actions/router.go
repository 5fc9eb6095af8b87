package actions

import (
	"fmt"
	"sort"

	"github.com/morezero/action-gateway/pkg/version"
)

// Router selects the registry for an API version. Versions without a table of their own fall
// back to the highest registered version below them, and finally to the default version.
type Router struct {
	tables   map[int]*Registry
	versions []int
}

// NewRouter creates a Router. A table for version.DefaultAPIVersion is required.
func NewRouter(tables map[int]*Registry) (*Router, error) {
	if tables[version.DefaultAPIVersion] == nil {
		return nil, fmt.Errorf("%s - router requires a v%d table", logPrefix, version.DefaultAPIVersion)
	}
	r := &Router{tables: make(map[int]*Registry, len(tables))}
	for v, reg := range tables {
		if reg == nil || v <= 0 {
			continue
		}
		r.tables[v] = reg
		r.versions = append(r.versions, v)
	}
	sort.Ints(r.versions)
	return r, nil
}

// ForVersion returns the registry serving apiVersion and the version it actually belongs to.
func (r *Router) ForVersion(apiVersion int) (*Registry, int) {
	for i := len(r.versions) - 1; i >= 0; i-- {
		if r.versions[i] <= apiVersion {
			v := r.versions[i]
			return r.tables[v], v
		}
	}
	return r.tables[version.DefaultAPIVersion], version.DefaultAPIVersion
}
