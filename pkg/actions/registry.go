package actions

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/morezero/action-gateway/pkg/version"
)

const logPrefix = "actions:registry"

// Registry maps public action names to ActionIDs and ActionIDs to handlers.
// It is immutable after NewRegistry returns and safe for concurrent use.
type Registry struct {
	internal map[string]ActionID
	public   map[string]ActionID
	handlers map[ActionID]Handler
}

// NewRegistry builds the internal, public and handler tables from definitions.
//
// Every definition produces a canonical entry (NAME_V<major> -> itself). Each name also gets a
// version-less alias pointing at its highest registered major. Definition aliases are added to
// the public table only.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		internal: make(map[string]ActionID),
		public:   make(map[string]ActionID),
		handlers: make(map[ActionID]Handler),
	}

	ids := make([]string, 0, len(defs))
	for _, def := range defs {
		if def.Name == "" || def.Major <= 0 {
			return nil, fmt.Errorf("%s - invalid definition name=%q major=%d", logPrefix, def.Name, def.Major)
		}
		if def.Handler == nil {
			return nil, fmt.Errorf("%s - nil handler for %s v%d", logPrefix, def.Name, def.Major)
		}
		id := ActionID(version.FormatActionID(def.Name, def.Major))
		if _, exists := r.handlers[id]; exists {
			return nil, fmt.Errorf("%s - duplicate action %s", logPrefix, id)
		}
		r.internal[string(id)] = id
		r.handlers[id] = def.Handler
		ids = append(ids, string(id))
	}

	for name, latest := range version.LatestByName(ids) {
		if _, exists := r.internal[name]; exists {
			continue
		}
		r.internal[name] = ActionID(latest)
	}

	for name, id := range r.internal {
		r.public[name] = id
	}
	for _, def := range defs {
		id := ActionID(version.FormatActionID(def.Name, def.Major))
		for _, alias := range def.Aliases {
			if existing, ok := r.public[alias]; ok && existing != id {
				return nil, fmt.Errorf("%s - alias %s already points at %s", logPrefix, alias, existing)
			}
			r.public[alias] = id
		}
	}

	slog.Debug(fmt.Sprintf("%s - built registry handlers=%d public=%d", logPrefix, len(r.handlers), len(r.public)))
	return r, nil
}

// Resolve maps a public name to its ActionID and handler. Names absent from the public table
// are tried as ActionIDs directly. ok is false for unknown actions.
func (r *Registry) Resolve(publicName string) (ActionID, Handler, bool) {
	id, ok := r.public[publicName]
	if !ok {
		id = ActionID(publicName)
	}
	h, ok := r.handlers[id]
	if !ok {
		return id, nil, false
	}
	return id, h, true
}

// InternalActions returns a copy of the internal table (canonical IDs and version-less aliases).
func (r *Registry) InternalActions() map[string]ActionID {
	return copyTable(r.internal)
}

// PublicActions returns a copy of the public table.
func (r *Registry) PublicActions() map[string]ActionID {
	return copyTable(r.public)
}

// ActionIDs returns the registered canonical identifiers, sorted.
func (r *Registry) ActionIDs() []ActionID {
	out := make([]ActionID, 0, len(r.handlers))
	for id := range r.handlers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func copyTable(in map[string]ActionID) map[string]ActionID {
	out := make(map[string]ActionID, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
