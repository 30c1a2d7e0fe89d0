package gatez

import (
	"errors"
	"sort"
	"sync"
)

// GroupFn decides whether an actor belongs to a named group. Predicates must
// be pure; they may be called concurrently from any number of checks.
type GroupFn func(actor Actor) bool

// Groups is a registry of named membership predicates consumed by the group
// gate. Groups are registered up front and read for the lifetime of the
// client; registration after checks have started is safe but unusual.
type Groups struct {
	mu  sync.RWMutex
	fns map[string]GroupFn
}

func NewGroups() *Groups {
	return &Groups{fns: make(map[string]GroupFn)}
}

// Register adds or replaces the predicate for name.
func (g *Groups) Register(name string, fn GroupFn) error {
	if name == "" {
		return errors.New("group name is required")
	}
	if fn == nil {
		return errors.New("group predicate is required")
	}
	g.mu.Lock()
	g.fns[name] = fn
	g.mu.Unlock()
	return nil
}

// Get returns the predicate registered under name.
func (g *Groups) Get(name string) (GroupFn, bool) {
	g.mu.RLock()
	fn, ok := g.fns[name]
	g.mu.RUnlock()
	return fn, ok
}

// Names returns the registered group names in sorted order.
func (g *Groups) Names() []string {
	g.mu.RLock()
	names := make([]string, 0, len(g.fns))
	for name := range g.fns {
		names = append(names, name)
	}
	g.mu.RUnlock()
	sort.Strings(names)
	return names
}
