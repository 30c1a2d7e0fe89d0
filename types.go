package gatez

import (
	"fmt"

	"github.com/matt-riley/gatez/expr"
)

// Actor is an external entity with a stable identity, checked against actor,
// group, and percentage gates. Ids should be unique per entity and stable
// across checks; a common convention is "Type;id", e.g. "User;42".
type Actor interface {
	ActorID() string
}

// PropertyProvider is optionally implemented by actors that expose a property
// bag to expression gates.
type PropertyProvider interface {
	Properties() map[string]any
}

// BasicActor is a ready-made Actor for callers without their own type.
type BasicActor struct {
	ID    string
	Props map[string]any
}

func (a BasicActor) ActorID() string            { return a.ID }
func (a BasicActor) Properties() map[string]any { return a.Props }

// The typed value wrappers below validate and normalize raw inputs into the
// form accepted by exactly one gate. Wrapping an already-wrapped value
// returns the same pointer, so wrappers can be passed around freely.

// BooleanValue is the typed value owned by the boolean gate.
type BooleanValue struct {
	Value bool
}

// ActorValue is the typed value owned by the actor gate. It retains the
// wrapped actor so group predicates and expression properties can reach it.
type ActorValue struct {
	ID    string
	actor Actor
}

// NewActorValue wraps an actor, requiring a non-empty id.
func NewActorValue(actor Actor) (*ActorValue, error) {
	if actor == nil {
		return nil, ErrMissingActorID
	}
	id := actor.ActorID()
	if id == "" {
		return nil, ErrMissingActorID
	}
	return &ActorValue{ID: id, actor: actor}, nil
}

// Actor returns the wrapped actor, which may be nil when the value was
// constructed from a bare id.
func (v *ActorValue) Actor() Actor { return v.actor }

// Properties returns the wrapped actor's property bag, or an empty map when
// the actor has none.
func (v *ActorValue) Properties() map[string]any {
	if provider, ok := v.actor.(PropertyProvider); ok {
		if props := provider.Properties(); props != nil {
			return props
		}
	}
	return map[string]any{}
}

// GroupValue is the typed value owned by the group gate.
type GroupValue struct {
	Name string
}

// NewGroupValue wraps a group name, requiring it to be non-empty.
func NewGroupValue(name string) (*GroupValue, error) {
	if name == "" {
		return nil, ErrMissingGroupName
	}
	return &GroupValue{Name: name}, nil
}

// PercentageOfActorsValue is the typed value owned by the percentage-of-actors
// gate. Values outside [0, 100] are rejected at construction.
type PercentageOfActorsValue struct {
	Value float64
}

func NewPercentageOfActorsValue(value float64) (*PercentageOfActorsValue, error) {
	if err := validatePercentage(value); err != nil {
		return nil, err
	}
	return &PercentageOfActorsValue{Value: value}, nil
}

// PercentageOfTimeValue is the typed value owned by the percentage-of-time
// gate. Values outside [0, 100] are rejected at construction.
type PercentageOfTimeValue struct {
	Value float64
}

func NewPercentageOfTimeValue(value float64) (*PercentageOfTimeValue, error) {
	if err := validatePercentage(value); err != nil {
		return nil, err
	}
	return &PercentageOfTimeValue{Value: value}, nil
}

func validatePercentage(value float64) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("%w: value must be a positive number less than or equal to 100, but was %v", ErrInvalidPercentage, value)
	}
	return nil
}

// ExpressionValue is the typed value owned by the expression gate.
type ExpressionValue struct {
	Node expr.Node
}

// NewExpressionValue builds an expression tree from a literal (or accepts an
// existing node) and wraps it.
func NewExpressionValue(literal any) (*ExpressionValue, error) {
	return newExpressionValue(nil, literal)
}

func newExpressionValue(registry *expr.Registry, literal any) (*ExpressionValue, error) {
	var (
		node expr.Node
		err  error
	)
	if registry != nil {
		node, err = registry.Build(literal)
	} else {
		node, err = expr.Build(literal)
	}
	if err != nil {
		return nil, err
	}
	return &ExpressionValue{Node: node}, nil
}

// Literal returns the object-notation form of the wrapped expression, which
// is what adapters persist. An empty wrapper, as used on the disable path,
// has no literal and returns nil.
func (v *ExpressionValue) Literal() any {
	if v.Node == nil {
		return nil
	}
	return v.Node.Value()
}
