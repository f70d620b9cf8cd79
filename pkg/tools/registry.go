package tools

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry maps tool names to definitions. Lookups are case-insensitive.
// Agent definitions reference tools by name; resolution happens once at
// startup, but the registry is still safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition under its lowercased name. Re-registering a
// name replaces the previous definition with a warning.
func (r *Registry) Register(def Definition) {
	key := strings.ToLower(def.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[key]; exists {
		slog.Warn("Tool already registered, replacing", "tool", key)
	}
	r.defs[key] = def
}

// Get looks up a definition by name, case-insensitively.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[strings.ToLower(name)]
	return def, ok
}

// Resolve maps tool names to definitions, preserving request order. Unknown
// names are returned separately and logged, matching lenient toolkit
// resolution: a definition referencing a missing tool gets the rest of its
// toolkit.
func (r *Registry) Resolve(names []string) (found []Definition, missing []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		def, ok := r.defs[strings.ToLower(name)]
		if !ok {
			slog.Warn("Unknown tool requested", "tool", name)
			missing = append(missing, name)
			continue
		}
		found = append(found, def)
	}
	return found, missing
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
