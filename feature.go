package gatez

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// State is the coarse summary of a feature's stored configuration.
type State string

const (
	// StateOn means the feature is fully enabled for everyone.
	StateOn State = "on"
	// StateConditional means at least one non-boolean gate is enabled, so
	// the answer depends on who is asking.
	StateConditional State = "conditional"
	// StateOff means nothing is enabled.
	StateOff State = "off"
)

// Feature dispatches checks and mutations for one feature key. Features are
// cheap, stateless handles: construct one per lookup and discard it. The gate
// list and group registry are shared and never mutated after construction.
type Feature struct {
	key          string
	adapter      Adapter
	groups       *Groups
	instrumenter Instrumenter
	gates        []Gate
}

// NewFeature returns a handle for key backed by adapter. Most callers go
// through Client.Feature instead so that groups and instrumentation are
// shared across features.
func NewFeature(adapter Adapter, key string, opts ...Option) *Feature {
	return newFeature(adapter, key, newConfig(opts...))
}

func newFeature(adapter Adapter, key string, cfg config) *Feature {
	return &Feature{
		key:          key,
		adapter:      adapter,
		groups:       cfg.groups,
		instrumenter: cfg.instrumenter,
		gates:        defaultGates(cfg.registry),
	}
}

// Key returns the feature key.
func (f *Feature) Key() string { return f.key }

// Gates returns the feature's gates in their fixed construction order.
func (f *Feature) Gates() []Gate { return slices.Clone(f.gates) }

// GateFor returns the first gate, in construction order, that claims the
// given unwrapped value. It routes Enable and Disable calls without the
// caller naming a gate.
func (f *Feature) GateFor(thing any) (Gate, error) {
	for _, gate := range f.gates {
		if gate.ProtectsValue(thing) {
			return gate, nil
		}
	}
	return nil, fmt.Errorf("%w: %v (%T)", ErrGateNotFound, thing, thing)
}

// Enabled reports whether the feature is enabled for the optional actor. It
// fetches the stored gate values once, then asks each gate in order, stopping
// at the first open gate. Gate order never changes the boolean result, only
// which gate name is reported to instrumentation.
func (f *Feature) Enabled(ctx context.Context, actors ...any) (bool, error) {
	actor, err := checkActor(actors)
	if err != nil {
		return false, err
	}

	raw, err := f.adapter.Get(ctx, f.key)
	if err != nil {
		return false, fmt.Errorf("get gate values for %q: %w", f.key, err)
	}

	evalCtx := &EvalContext{
		FeatureName: f.key,
		Values:      NewGateValues(raw),
		Actor:       actor,
		Groups:      f.groups,
	}

	start := time.Now()
	for _, gate := range f.gates {
		if gate.IsOpen(evalCtx) {
			f.instrumenter.Check(ctx, f.key, true, gate.Name(), time.Since(start))
			return true, nil
		}
	}
	f.instrumenter.Check(ctx, f.key, false, "", time.Since(start))
	return false, nil
}

// State summarises the stored configuration as on, conditional, or off.
func (f *Feature) State(ctx context.Context) (State, error) {
	values, err := f.Values(ctx)
	if err != nil {
		return StateOff, err
	}
	return StateFor(values), nil
}

var stateGates = defaultGates(nil)

// StateFor computes a feature's state from a gate value snapshot: on when the
// boolean gate is enabled or percentage-of-time is exactly 100, conditional
// when any other gate is enabled, off otherwise. The boolean gate is
// deliberately left out of the conditional check; a stored false is not a
// condition.
func StateFor(values GateValues) State {
	if values.Boolean || (values.PercentageOfTime != nil && *values.PercentageOfTime == 100) {
		return StateOn
	}
	for _, gate := range stateGates {
		if gate.Name() == GateBoolean {
			continue
		}
		if gate.IsEnabled(values) {
			return StateConditional
		}
	}
	return StateOff
}

// Values fetches and coerces the feature's stored gate values.
func (f *Feature) Values(ctx context.Context) (GateValues, error) {
	raw, err := f.adapter.Get(ctx, f.key)
	if err != nil {
		return GateValues{}, fmt.Errorf("get gate values for %q: %w", f.key, err)
	}
	return NewGateValues(raw), nil
}

// Enable turns the feature on for the given value: a boolean, a wrapped
// typed value, or an actor. Called with no value it fully enables the
// feature via the boolean gate. The write is routed to the first gate that
// claims the value, after ensuring the feature record exists — some backends
// key gate rows by a reference to the feature row.
func (f *Feature) Enable(ctx context.Context, things ...any) error {
	thing, err := mutationValue(things, true)
	if err != nil {
		return err
	}
	return f.write(ctx, "enable", thing, Adapter.Enable)
}

// Disable turns the feature off for the given value. Called with no value it
// disables the boolean gate, which clears every stored gate value.
func (f *Feature) Disable(ctx context.Context, things ...any) error {
	thing, err := mutationValue(things, false)
	if err != nil {
		return err
	}
	return f.write(ctx, "disable", thing, Adapter.Disable)
}

func (f *Feature) write(ctx context.Context, op string, thing any, apply func(Adapter, context.Context, string, Gate, any) error) error {
	gate, err := f.GateFor(thing)
	if err != nil {
		return err
	}
	wrapped, err := gate.Wrap(thing)
	if err != nil {
		return err
	}

	if err := f.adapter.Add(ctx, f.key); err != nil {
		f.instrumenter.Operation(ctx, op, f.key, err)
		return fmt.Errorf("add feature %q: %w", f.key, err)
	}

	err = apply(f.adapter, ctx, f.key, gate, wrapped)
	f.instrumenter.Operation(ctx, op, f.key, err)
	if err != nil {
		return fmt.Errorf("%s %s gate for %q: %w", op, gate.Name(), f.key, err)
	}
	return nil
}

// EnableActor enables the feature for one actor.
func (f *Feature) EnableActor(ctx context.Context, actor Actor) error {
	value, err := NewActorValue(actor)
	if err != nil {
		return err
	}
	return f.Enable(ctx, value)
}

// DisableActor removes one actor from the feature.
func (f *Feature) DisableActor(ctx context.Context, actor Actor) error {
	value, err := NewActorValue(actor)
	if err != nil {
		return err
	}
	return f.Disable(ctx, value)
}

// EnableGroup enables the feature for a registered group.
func (f *Feature) EnableGroup(ctx context.Context, name string) error {
	value, err := NewGroupValue(name)
	if err != nil {
		return err
	}
	return f.Enable(ctx, value)
}

// DisableGroup removes a group from the feature.
func (f *Feature) DisableGroup(ctx context.Context, name string) error {
	value, err := NewGroupValue(name)
	if err != nil {
		return err
	}
	return f.Disable(ctx, value)
}

// EnablePercentageOfActors rolls the feature out to a stable percentage of
// actors.
func (f *Feature) EnablePercentageOfActors(ctx context.Context, percentage float64) error {
	value, err := NewPercentageOfActorsValue(percentage)
	if err != nil {
		return err
	}
	return f.Enable(ctx, value)
}

// DisablePercentageOfActors resets the actor rollout to zero.
func (f *Feature) DisablePercentageOfActors(ctx context.Context) error {
	return f.Disable(ctx, &PercentageOfActorsValue{Value: 0})
}

// EnablePercentageOfTime enables the feature for a percentage of checks.
func (f *Feature) EnablePercentageOfTime(ctx context.Context, percentage float64) error {
	value, err := NewPercentageOfTimeValue(percentage)
	if err != nil {
		return err
	}
	return f.Enable(ctx, value)
}

// DisablePercentageOfTime resets the time rollout to zero.
func (f *Feature) DisablePercentageOfTime(ctx context.Context) error {
	return f.Disable(ctx, &PercentageOfTimeValue{Value: 0})
}

// EnableExpression enables the feature for actors matching an expression
// literal (or an already-built node).
func (f *Feature) EnableExpression(ctx context.Context, literal any) error {
	gate, err := f.GateFor(&ExpressionValue{})
	if err != nil {
		return err
	}
	wrapped, err := gate.Wrap(literal)
	if err != nil {
		return err
	}
	return f.Enable(ctx, wrapped)
}

// DisableExpression removes the feature's stored expression.
func (f *Feature) DisableExpression(ctx context.Context) error {
	return f.Disable(ctx, &ExpressionValue{})
}

// Add registers the feature with the adapter without enabling anything.
func (f *Feature) Add(ctx context.Context) error {
	err := f.adapter.Add(ctx, f.key)
	f.instrumenter.Operation(ctx, "add", f.key, err)
	if err != nil {
		return fmt.Errorf("add feature %q: %w", f.key, err)
	}
	return nil
}

// Remove deletes the feature and all its gate values.
func (f *Feature) Remove(ctx context.Context) error {
	err := f.adapter.Remove(ctx, f.key)
	f.instrumenter.Operation(ctx, "remove", f.key, err)
	if err != nil {
		return fmt.Errorf("remove feature %q: %w", f.key, err)
	}
	return nil
}

// Clear deletes the feature's gate values but keeps it registered.
func (f *Feature) Clear(ctx context.Context) error {
	err := f.adapter.Clear(ctx, f.key)
	f.instrumenter.Operation(ctx, "clear", f.key, err)
	if err != nil {
		return fmt.Errorf("clear feature %q: %w", f.key, err)
	}
	return nil
}

// Exists reports whether the feature is registered with the adapter.
func (f *Feature) Exists(ctx context.Context) (bool, error) {
	keys, err := f.adapter.Features(ctx)
	if err != nil {
		return false, fmt.Errorf("list features: %w", err)
	}
	return slices.Contains(keys, f.key), nil
}

func checkActor(actors []any) (*ActorValue, error) {
	switch len(actors) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("expected at most one actor, got %d", len(actors))
	}

	switch t := actors[0].(type) {
	case nil:
		return nil, nil
	case *ActorValue:
		return t, nil
	case Actor:
		return NewActorValue(t)
	}
	return nil, fmt.Errorf("cannot check %T against gates: not an actor", actors[0])
}

func mutationValue(things []any, enable bool) (any, error) {
	switch len(things) {
	case 0:
		return &BooleanValue{Value: enable}, nil
	case 1:
		if things[0] == nil {
			return &BooleanValue{Value: enable}, nil
		}
		return things[0], nil
	}
	return nil, fmt.Errorf("expected at most one value, got %d", len(things))
}
