package expr

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

var defaultBuilders = map[string]BuildFunc{
	"All":                  buildAll,
	"Any":                  buildAny,
	"Boolean":              buildBoolean,
	"Constant":             buildConstant,
	"Duration":             buildDuration,
	"Equal":                comparisonBuilder("Equal", cmpEqual),
	"GreaterThan":          comparisonBuilder("GreaterThan", cmpGreaterThan),
	"GreaterThanOrEqualTo": comparisonBuilder("GreaterThanOrEqualTo", cmpGreaterThanOrEqualTo),
	"LessThan":             comparisonBuilder("LessThan", cmpLessThan),
	"LessThanOrEqualTo":    comparisonBuilder("LessThanOrEqualTo", cmpLessThanOrEqualTo),
	"NotEqual":             comparisonBuilder("NotEqual", cmpNotEqual),
	"Now":                  buildNow,
	"Number":               buildNumber,
	"Percentage":           buildPercentage,
	"PercentageOfActors":   buildPercentageOfActors,
	"Property":             buildProperty,
	"Random":               buildRandom,
	"String":               buildString,
	"Time":                 buildTime,
}

// Constant is a leaf node that evaluates to its literal value.
type Constant struct {
	value any
}

// NewConstant wraps a primitive literal in a Constant leaf.
func NewConstant(v any) Constant {
	return Constant{value: v}
}

func (c Constant) Evaluate(Context) (any, error) { return c.value, nil }
func (c Constant) Value() any                    { return c.value }
func (c Constant) Equal(other Node) bool         { return nodesEqual(c, other) }

func buildConstant(args []Node) (Node, error) {
	if err := exactArgs("Constant", args, 1); err != nil {
		return nil, err
	}
	c, ok := args[0].(Constant)
	if !ok {
		return nil, fmt.Errorf("Constant expects a literal argument")
	}
	return c, nil
}

// propertyNode looks up a key in the evaluation context's property bag.
// A missing key resolves to nil, never an error.
type propertyNode struct {
	name Node
}

func (n propertyNode) Evaluate(ctx Context) (any, error) {
	key, err := n.name.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	value, ok := ctx.Properties[ToString(key)]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (n propertyNode) Value() any            { return wrapValue("Property", n.name) }
func (n propertyNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildProperty(args []Node) (Node, error) {
	if err := exactArgs("Property", args, 1); err != nil {
		return nil, err
	}
	return propertyNode{name: args[0]}, nil
}

// allNode is a short-circuiting conjunction over truthy-coerced arguments.
// With no arguments it evaluates to true.
type allNode struct {
	args []Node
}

func (n allNode) Evaluate(ctx Context) (any, error) {
	for _, arg := range n.args {
		v, err := arg.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		if !Truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func (n allNode) Value() any            { return wrapValue("All", n.args...) }
func (n allNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildAll(args []Node) (Node, error) { return allNode{args: args}, nil }

// anyNode is a short-circuiting disjunction over truthy-coerced arguments.
// With no arguments it evaluates to false.
type anyNode struct {
	args []Node
}

func (n anyNode) Evaluate(ctx Context) (any, error) {
	for _, arg := range n.args {
		v, err := arg.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		if Truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

func (n anyNode) Value() any            { return wrapValue("Any", n.args...) }
func (n anyNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildAny(args []Node) (Node, error) { return anyNode{args: args}, nil }

type booleanNode struct {
	arg Node
}

func (n booleanNode) Evaluate(ctx Context) (any, error) {
	v, err := n.arg.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return Truthy(v), nil
}

func (n booleanNode) Value() any            { return wrapValue("Boolean", n.arg) }
func (n booleanNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildBoolean(args []Node) (Node, error) {
	if err := exactArgs("Boolean", args, 1); err != nil {
		return nil, err
	}
	return booleanNode{arg: args[0]}, nil
}

type numberNode struct {
	arg Node
}

func (n numberNode) Evaluate(ctx Context) (any, error) {
	v, err := n.arg.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return ToNumber(v), nil
}

func (n numberNode) Value() any            { return wrapValue("Number", n.arg) }
func (n numberNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildNumber(args []Node) (Node, error) {
	if err := exactArgs("Number", args, 1); err != nil {
		return nil, err
	}
	return numberNode{arg: args[0]}, nil
}

type stringNode struct {
	arg Node
}

func (n stringNode) Evaluate(ctx Context) (any, error) {
	v, err := n.arg.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return ToString(v), nil
}

func (n stringNode) Value() any            { return wrapValue("String", n.arg) }
func (n stringNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildString(args []Node) (Node, error) {
	if err := exactArgs("String", args, 1); err != nil {
		return nil, err
	}
	return stringNode{arg: args[0]}, nil
}

// nowNode returns the current Unix time in seconds. It is never memoized:
// repeated evaluation within one check may observe the clock advancing.
type nowNode struct{}

func (nowNode) Evaluate(Context) (any, error) { return float64(time.Now().Unix()), nil }
func (nowNode) Value() any                    { return map[string]any{"Now": []any{}} }
func (n nowNode) Equal(other Node) bool       { return nodesEqual(n, other) }

func buildNow(args []Node) (Node, error) {
	if err := exactArgs("Now", args, 0); err != nil {
		return nil, err
	}
	return nowNode{}, nil
}

// randomNode returns a uniform integer in [0, max). A max of 1 or less
// always yields 0.
type randomNode struct {
	max Node
}

func (n randomNode) Evaluate(ctx Context) (any, error) {
	v, err := n.max.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	max := math.Floor(ToNumber(v))
	if max <= 1 || math.IsNaN(max) {
		return float64(0), nil
	}
	if max > float64(math.MaxInt64) {
		max = float64(math.MaxInt64)
	}
	return float64(rand.Int64N(int64(max))), nil
}

func (n randomNode) Value() any            { return wrapValue("Random", n.max) }
func (n randomNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildRandom(args []Node) (Node, error) {
	if err := exactArgs("Random", args, 1); err != nil {
		return nil, err
	}
	return randomNode{max: args[0]}, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timeNode parses its argument into Unix seconds (floored). Numeric input,
// including purely numeric strings, is treated as Unix milliseconds.
// Unparseable input resolves to NaN, never an error.
type timeNode struct {
	arg Node
}

func (n timeNode) Evaluate(ctx Context) (any, error) {
	v, err := n.arg.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return math.Floor(ms / 1000), nil
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return float64(parsed.Unix()), nil
			}
		}
		return math.NaN(), nil
	}
	if ms, ok := numeric(v); ok {
		return math.Floor(ms / 1000), nil
	}
	return math.NaN(), nil
}

func (n timeNode) Value() any            { return wrapValue("Time", n.arg) }
func (n timeNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildTime(args []Node) (Node, error) {
	if err := exactArgs("Time", args, 1); err != nil {
		return nil, err
	}
	return timeNode{arg: args[0]}, nil
}

var durationUnits = map[string]float64{
	"second": 1,
	"minute": 60,
	"hour":   3600,
	"day":    86400,
	"week":   604800,
	"month":  2629746,
	"year":   31556952,
}

var durationUnitNames = []string{"second", "minute", "hour", "day", "week", "month", "year"}

// durationNode converts a numeric scalar and a unit into seconds. Units match
// case-insensitively with one trailing "s" stripped. A non-numeric scalar or
// an unrecognised unit is an evaluation error, unlike the benign defaults
// elsewhere in the language.
type durationNode struct {
	scalar Node
	unit   Node
}

func (n durationNode) Evaluate(ctx Context) (any, error) {
	sv, err := n.scalar.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	scalar, ok := numeric(sv)
	if !ok {
		return nil, fmt.Errorf("duration scalar must be a number, got %v (%T)", sv, sv)
	}

	uv, err := n.unit.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	unit := ToString(uv)
	seconds, ok := durationUnits[strings.TrimSuffix(strings.ToLower(unit), "s")]
	if !ok {
		return nil, fmt.Errorf("unknown duration unit %q, valid units are %s", unit, strings.Join(durationUnitNames, ", "))
	}

	return scalar * seconds, nil
}

func (n durationNode) Value() any            { return wrapValue("Duration", n.scalar, n.unit) }
func (n durationNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildDuration(args []Node) (Node, error) {
	switch len(args) {
	case 1:
		return durationNode{scalar: args[0], unit: Constant{value: "seconds"}}, nil
	case 2:
		return durationNode{scalar: args[0], unit: args[1]}, nil
	}
	return nil, fmt.Errorf("Duration expects 1 or 2 arguments, got %d", len(args))
}

// percentageNode is true when value < percent after numeric coercion. A value
// exactly equal to the percentage is outside it.
type percentageNode struct {
	value   Node
	percent Node
}

func (n percentageNode) Evaluate(ctx Context) (any, error) {
	v, err := n.value.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	p, err := n.percent.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return ToNumber(v) < ToNumber(p), nil
}

func (n percentageNode) Value() any            { return wrapValue("Percentage", n.value, n.percent) }
func (n percentageNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildPercentage(args []Node) (Node, error) {
	if err := exactArgs("Percentage", args, 2); err != nil {
		return nil, err
	}
	return percentageNode{value: args[0], percent: args[1]}, nil
}

// percentageOfActorsNode assigns the evaluated actor id to a stable rollout
// bucket for the current feature. See InRolloutBucket.
type percentageOfActorsNode struct {
	id      Node
	percent Node
}

func (n percentageOfActorsNode) Evaluate(ctx Context) (any, error) {
	iv, err := n.id.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	pv, err := n.percent.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return InRolloutBucket(ctx.FeatureName, ToString(iv), ToNumber(pv)), nil
}

func (n percentageOfActorsNode) Value() any {
	return wrapValue("PercentageOfActors", n.id, n.percent)
}

func (n percentageOfActorsNode) Equal(other Node) bool { return nodesEqual(n, other) }

func buildPercentageOfActors(args []Node) (Node, error) {
	if err := exactArgs("PercentageOfActors", args, 2); err != nil {
		return nil, err
	}
	return percentageOfActorsNode{id: args[0], percent: args[1]}, nil
}
