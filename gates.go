package gatez

import (
	"fmt"
	"math/rand/v2"

	"github.com/matt-riley/gatez/expr"
)

// DataType describes how a gate's stored value is represented by adapters.
type DataType string

const (
	DataTypeBoolean DataType = "boolean"
	DataTypeSet     DataType = "set"
	DataTypeInteger DataType = "integer"
	DataTypeJSON    DataType = "json"
)

// Gate names, as reported to instrumentation.
const (
	GateBoolean            = "boolean"
	GateExpression         = "expression"
	GateActor              = "actor"
	GateGroup              = "group"
	GatePercentageOfActors = "percentage_of_actors"
	GatePercentageOfTime   = "percentage_of_time"
)

// Gate keys, as used in adapter storage. Actor and group gates store sets, so
// their keys are plural.
const (
	KeyBoolean            = "boolean"
	KeyExpression         = "expression"
	KeyActors             = "actors"
	KeyGroups             = "groups"
	KeyPercentageOfActors = "percentage_of_actors"
	KeyPercentageOfTime   = "percentage_of_time"
)

// GateOrder is the fixed construction order of the six gates. GateFor routing
// returns the first gate in this order that claims a value, and checks stop
// at the first open gate, so this order decides which gate name shows up in
// instrumentation.
var GateOrder = [6]string{
	GateBoolean,
	GateExpression,
	GateActor,
	GateGroup,
	GatePercentageOfActors,
	GatePercentageOfTime,
}

// Gate is one of the six mechanisms by which a feature can be enabled.
// Implementations are stateless; every method is safe for concurrent use.
type Gate interface {
	// Name identifies the gate variant.
	Name() string
	// Key is the gate's slot in adapter storage.
	Key() string
	// DataType describes the stored value's shape.
	DataType() DataType
	// IsEnabled reports whether the stored value for this gate is non-empty.
	IsEnabled(values GateValues) bool
	// IsOpen reports whether the gate's condition holds for this check.
	IsOpen(ctx *EvalContext) bool
	// ProtectsValue reports whether this gate owns the given unwrapped input.
	ProtectsValue(thing any) bool
	// Wrap converts a raw input into this gate's typed value, validating it.
	Wrap(thing any) (any, error)
}

func defaultGates(registry *expr.Registry) []Gate {
	return []Gate{
		booleanGate{},
		expressionGate{registry: registry},
		actorGate{},
		groupGate{},
		percentageOfActorsGate{},
		percentageOfTimeGate{},
	}
}

type booleanGate struct{}

func (booleanGate) Name() string       { return GateBoolean }
func (booleanGate) Key() string        { return KeyBoolean }
func (booleanGate) DataType() DataType { return DataTypeBoolean }

func (booleanGate) IsEnabled(values GateValues) bool { return values.Boolean }

func (booleanGate) IsOpen(ctx *EvalContext) bool { return ctx.Values.Boolean }

func (booleanGate) ProtectsValue(thing any) bool {
	switch thing.(type) {
	case bool, *BooleanValue:
		return true
	}
	return false
}

func (booleanGate) Wrap(thing any) (any, error) {
	switch t := thing.(type) {
	case *BooleanValue:
		return t, nil
	case bool:
		return &BooleanValue{Value: t}, nil
	}
	return nil, wrapError(GateBoolean, thing)
}

// expressionGate evaluates the stored expression against the actor's property
// bag. Evaluation errors resolve to a closed gate rather than failing the
// check, so a malformed stored expression can never crash callers.
type expressionGate struct {
	registry *expr.Registry
}

func (expressionGate) Name() string       { return GateExpression }
func (expressionGate) Key() string        { return KeyExpression }
func (expressionGate) DataType() DataType { return DataTypeJSON }

func (expressionGate) IsEnabled(values GateValues) bool { return values.Expression != nil }

func (g expressionGate) IsOpen(ctx *EvalContext) bool {
	if ctx.Values.Expression == nil {
		return false
	}
	node, err := g.build(ctx.Values.Expression)
	if err != nil {
		return false
	}
	result, err := node.Evaluate(expr.Context{
		FeatureName: ctx.FeatureName,
		Properties:  ctx.actorProperties(),
	})
	if err != nil {
		return false
	}
	return expr.Truthy(result)
}

func (g expressionGate) build(literal any) (expr.Node, error) {
	if g.registry != nil {
		return g.registry.Build(literal)
	}
	return expr.Build(literal)
}

func (expressionGate) ProtectsValue(thing any) bool {
	switch thing.(type) {
	case *ExpressionValue, expr.Node, map[string]any:
		return true
	}
	return false
}

func (g expressionGate) Wrap(thing any) (any, error) {
	if v, ok := thing.(*ExpressionValue); ok {
		return v, nil
	}
	return newExpressionValue(g.registry, thing)
}

type actorGate struct{}

func (actorGate) Name() string       { return GateActor }
func (actorGate) Key() string        { return KeyActors }
func (actorGate) DataType() DataType { return DataTypeSet }

func (actorGate) IsEnabled(values GateValues) bool { return !values.Actors.Empty() }

func (actorGate) IsOpen(ctx *EvalContext) bool {
	if ctx.Actor == nil {
		return false
	}
	return ctx.Values.Actors.Contains(ctx.Actor.ID)
}

func (actorGate) ProtectsValue(thing any) bool {
	switch thing.(type) {
	case *ActorValue, Actor:
		return true
	}
	return false
}

func (actorGate) Wrap(thing any) (any, error) {
	switch t := thing.(type) {
	case *ActorValue:
		return t, nil
	case Actor:
		return NewActorValue(t)
	}
	return nil, wrapError(GateActor, thing)
}

type groupGate struct{}

func (groupGate) Name() string       { return GateGroup }
func (groupGate) Key() string        { return KeyGroups }
func (groupGate) DataType() DataType { return DataTypeSet }

func (groupGate) IsEnabled(values GateValues) bool { return !values.Groups.Empty() }

func (groupGate) IsOpen(ctx *EvalContext) bool {
	if ctx.Actor == nil || ctx.Actor.Actor() == nil || ctx.Groups == nil {
		return false
	}
	for name := range ctx.Values.Groups {
		fn, ok := ctx.Groups.Get(name)
		if !ok {
			continue
		}
		if fn(ctx.Actor.Actor()) {
			return true
		}
	}
	return false
}

func (groupGate) ProtectsValue(thing any) bool {
	_, ok := thing.(*GroupValue)
	return ok
}

func (groupGate) Wrap(thing any) (any, error) {
	if v, ok := thing.(*GroupValue); ok {
		return v, nil
	}
	return nil, wrapError(GateGroup, thing)
}

type percentageOfActorsGate struct{}

func (percentageOfActorsGate) Name() string       { return GatePercentageOfActors }
func (percentageOfActorsGate) Key() string        { return KeyPercentageOfActors }
func (percentageOfActorsGate) DataType() DataType { return DataTypeInteger }

func (percentageOfActorsGate) IsEnabled(values GateValues) bool {
	return values.PercentageOfActors != nil && *values.PercentageOfActors > 0
}

func (percentageOfActorsGate) IsOpen(ctx *EvalContext) bool {
	if ctx.Actor == nil || ctx.Values.PercentageOfActors == nil {
		return false
	}
	return expr.InRolloutBucket(ctx.FeatureName, ctx.Actor.ID, *ctx.Values.PercentageOfActors)
}

func (percentageOfActorsGate) ProtectsValue(thing any) bool {
	_, ok := thing.(*PercentageOfActorsValue)
	return ok
}

func (percentageOfActorsGate) Wrap(thing any) (any, error) {
	if v, ok := thing.(*PercentageOfActorsValue); ok {
		return v, nil
	}
	return nil, wrapError(GatePercentageOfActors, thing)
}

type percentageOfTimeGate struct{}

func (percentageOfTimeGate) Name() string       { return GatePercentageOfTime }
func (percentageOfTimeGate) Key() string        { return KeyPercentageOfTime }
func (percentageOfTimeGate) DataType() DataType { return DataTypeInteger }

func (percentageOfTimeGate) IsEnabled(values GateValues) bool {
	return values.PercentageOfTime != nil && *values.PercentageOfTime > 0
}

func (percentageOfTimeGate) IsOpen(ctx *EvalContext) bool {
	if ctx.Values.PercentageOfTime == nil {
		return false
	}
	return rand.Float64()*100 < *ctx.Values.PercentageOfTime
}

func (percentageOfTimeGate) ProtectsValue(thing any) bool {
	_, ok := thing.(*PercentageOfTimeValue)
	return ok
}

func (percentageOfTimeGate) Wrap(thing any) (any, error) {
	if v, ok := thing.(*PercentageOfTimeValue); ok {
		return v, nil
	}
	return nil, wrapError(GatePercentageOfTime, thing)
}

func wrapError(gate string, thing any) error {
	return fmt.Errorf("%s gate cannot wrap %T", gate, thing)
}
