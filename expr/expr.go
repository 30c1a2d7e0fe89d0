// Package expr implements the expression language evaluated by expression
// gates. An expression is a small acyclic tree of typed nodes built from
// JSON-style object notation ({"Name": arg} or {"Name": [args...]}), with
// bare primitives promoted to constants. The wire format is stable: new node
// kinds are added to the registry, existing names are never renamed.
//
// Evaluation favours benign defaults over failure. Missing properties resolve
// to nil, absent operands make comparisons false, and unparseable times become
// NaN. Only Duration misuse and malformed literals surface as errors.
package expr

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// Context carries the ambient inputs available to a single evaluation: the
// feature being checked and the property bag of the actor it is checked
// against. Contexts are value types; nothing retains them between calls.
type Context struct {
	FeatureName string
	Properties  map[string]any
}

// Node is one expression tree node. Implementations are immutable after
// construction, so a tree may be evaluated concurrently without locking.
type Node interface {
	// Evaluate resolves the node against ctx.
	Evaluate(ctx Context) (any, error)

	// Value returns the object-notation literal that rebuilds an equal node
	// via Build. Constants return their bare literal; every other node wraps
	// its children's values under its own name key.
	Value() any

	// Equal reports structural equality with other.
	Equal(other Node) bool
}

// ErrUnknownExpression is returned by Build for a name with no registered
// constructor.
var ErrUnknownExpression = errors.New("unknown expression")

// BuildFunc constructs a node from its already-built child nodes. It should
// reject bad arity so that malformed literals fail at build time, not during
// a flag check.
type BuildFunc func(args []Node) (Node, error)

// Registry maps expression names to node constructors. A Registry is
// immutable once constructed; With returns an extended copy, so a shared
// registry is safe to use from any goroutine.
type Registry struct {
	builders map[string]BuildFunc
}

// NewRegistry returns a registry holding the built-in node kinds.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]BuildFunc, len(defaultBuilders))}
	for name, fn := range defaultBuilders {
		r.builders[name] = fn
	}
	return r
}

// With returns a copy of r with fn registered under name, replacing any
// existing constructor for that name. The receiver is unchanged.
func (r *Registry) With(name string, fn BuildFunc) *Registry {
	next := &Registry{builders: make(map[string]BuildFunc, len(r.builders)+1)}
	for existing, builder := range r.builders {
		next.builders[existing] = builder
	}
	next.builders[name] = fn
	return next
}

// Names returns the registered expression names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs an expression tree from a literal. Accepted shapes:
// an existing Node (returned unchanged), a single-key object naming a
// registered constructor, or a bare primitive (promoted to a Constant).
// Anything else is a build error.
func (r *Registry) Build(literal any) (Node, error) {
	switch v := literal.(type) {
	case Node:
		return v, nil
	case map[string]any:
		if len(v) != 1 {
			return nil, fmt.Errorf("expression object must have exactly one key, got %d", len(v))
		}
		for name, rawArgs := range v {
			return r.buildNamed(name, rawArgs)
		}
	}
	if isPrimitive(literal) {
		return Constant{value: literal}, nil
	}
	return nil, fmt.Errorf("cannot build expression from %T", literal)
}

func (r *Registry) buildNamed(name string, rawArgs any) (Node, error) {
	fn, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExpression, name)
	}

	raw, ok := rawArgs.([]any)
	if !ok {
		raw = []any{rawArgs}
	}

	args := make([]Node, 0, len(raw))
	for _, elem := range raw {
		child, err := r.Build(elem)
		if err != nil {
			return nil, err
		}
		args = append(args, child)
	}

	node, err := fn(args)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return node, nil
}

var defaultRegistry = NewRegistry()

// Build constructs an expression tree from a literal using the default
// registry.
func Build(literal any) (Node, error) {
	return defaultRegistry.Build(literal)
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, bool, string:
		return true
	}
	_, ok := numeric(v)
	return ok
}

// nodesEqual implements structural equality through the round-trip literal:
// two nodes are equal when they rebuild from the same object notation.
func nodesEqual(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a.Value(), b.Value())
}

func wrapValue(name string, args ...Node) map[string]any {
	values := make([]any, 0, len(args))
	for _, arg := range args {
		values = append(values, arg.Value())
	}
	return map[string]any{name: values}
}

func exactArgs(name string, args []Node, want int) error {
	if len(args) != want {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, want, len(args))
	}
	return nil
}
