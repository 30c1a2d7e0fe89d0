// Package gatez decides, for a feature key and an optional actor, whether a
// feature is enabled and through which mechanism. Six gates can open a
// feature: a global boolean, a stored expression over actor properties, an
// actor allowlist, named groups, a consistent-hash percentage of actors, and
// a random percentage of time.
//
// The evaluation engine is pure and synchronous; the only asynchronous
// boundary is the Adapter, the storage collaborator that holds raw per-gate
// values. Adapters for memory, PostgreSQL, and Redis live under adapter/.
package gatez

import (
	"context"
	"sort"

	"github.com/matt-riley/gatez/expr"
)

type config struct {
	groups       *Groups
	instrumenter Instrumenter
	registry     *expr.Registry
}

func newConfig(opts ...Option) config {
	cfg := config{
		groups:       NewGroups(),
		instrumenter: noopInstrumenter{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a Client or a standalone Feature.
type Option func(*config)

// WithGroups supplies a shared group registry.
func WithGroups(groups *Groups) Option {
	return func(cfg *config) {
		if groups != nil {
			cfg.groups = groups
		}
	}
}

// WithInstrumenter supplies an observer for checks and storage operations.
func WithInstrumenter(instrumenter Instrumenter) Option {
	return func(cfg *config) {
		if instrumenter != nil {
			cfg.instrumenter = instrumenter
		}
	}
}

// WithExpressions supplies a custom expression registry, typically the
// default registry extended with application-specific node kinds.
func WithExpressions(registry *expr.Registry) Option {
	return func(cfg *config) {
		cfg.registry = registry
	}
}

// Client is the entry point: it binds an adapter to a group registry, an
// instrumenter, and an expression registry, and hands out Feature handles
// that share them. A Client is safe for concurrent use.
type Client struct {
	adapter Adapter
	cfg     config
}

// New creates a client backed by adapter.
func New(adapter Adapter, opts ...Option) *Client {
	return &Client{adapter: adapter, cfg: newConfig(opts...)}
}

// Adapter returns the storage collaborator.
func (c *Client) Adapter() Adapter { return c.adapter }

// Groups returns the client's group registry.
func (c *Client) Groups() *Groups { return c.cfg.groups }

// RegisterGroup registers a named membership predicate consumed by group
// gates across all features.
func (c *Client) RegisterGroup(name string, fn GroupFn) error {
	return c.cfg.groups.Register(name, fn)
}

// Feature returns a handle for key sharing the client's configuration.
func (c *Client) Feature(key string) *Feature {
	return newFeature(c.adapter, key, c.cfg)
}

// Enabled checks a feature for an optional actor.
func (c *Client) Enabled(ctx context.Context, key string, actors ...any) (bool, error) {
	return c.Feature(key).Enabled(ctx, actors...)
}

// Enable routes an enable write for a feature; see Feature.Enable.
func (c *Client) Enable(ctx context.Context, key string, things ...any) error {
	return c.Feature(key).Enable(ctx, things...)
}

// Disable routes a disable write for a feature; see Feature.Disable.
func (c *Client) Disable(ctx context.Context, key string, things ...any) error {
	return c.Feature(key).Disable(ctx, things...)
}

// Add registers a feature without enabling anything.
func (c *Client) Add(ctx context.Context, key string) error {
	return c.Feature(key).Add(ctx)
}

// Remove deletes a feature and its gate values.
func (c *Client) Remove(ctx context.Context, key string) error {
	return c.Feature(key).Remove(ctx)
}

// Clear deletes a feature's gate values but keeps it registered.
func (c *Client) Clear(ctx context.Context, key string) error {
	return c.Feature(key).Clear(ctx)
}

// Features lists the known feature keys in sorted order.
func (c *Client) Features(ctx context.Context) ([]string, error) {
	keys, err := c.adapter.Features(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Snapshot fetches typed gate value snapshots for several features in one
// adapter round trip.
func (c *Client) Snapshot(ctx context.Context, keys ...string) (map[string]GateValues, error) {
	raw, err := c.adapter.GetMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	return snapshotValues(raw), nil
}

// SnapshotAll fetches typed gate value snapshots for every known feature.
func (c *Client) SnapshotAll(ctx context.Context) (map[string]GateValues, error) {
	raw, err := c.adapter.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return snapshotValues(raw), nil
}

func snapshotValues(raw map[string]map[string]any) map[string]GateValues {
	values := make(map[string]GateValues, len(raw))
	for key, gates := range raw {
		values[key] = NewGateValues(gates)
	}
	return values
}
