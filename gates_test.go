package gatez

import (
	"testing"

	"github.com/matt-riley/gatez/expr"
)

func TestGateMetadata(t *testing.T) {
	gates := defaultGates(nil)
	if len(gates) != len(GateOrder) {
		t.Fatalf("defaultGates returned %d gates, want %d", len(gates), len(GateOrder))
	}

	wantKeys := []string{KeyBoolean, KeyExpression, KeyActors, KeyGroups, KeyPercentageOfActors, KeyPercentageOfTime}
	wantTypes := []DataType{DataTypeBoolean, DataTypeJSON, DataTypeSet, DataTypeSet, DataTypeInteger, DataTypeInteger}

	for i, gate := range gates {
		if gate.Name() != GateOrder[i] {
			t.Fatalf("gate %d name = %q, want %q", i, gate.Name(), GateOrder[i])
		}
		if gate.Key() != wantKeys[i] {
			t.Fatalf("gate %d key = %q, want %q", i, gate.Key(), wantKeys[i])
		}
		if gate.DataType() != wantTypes[i] {
			t.Fatalf("gate %d data type = %q, want %q", i, gate.DataType(), wantTypes[i])
		}
	}
}

func TestBooleanGate(t *testing.T) {
	gate := booleanGate{}

	if !gate.IsOpen(&EvalContext{Values: GateValues{Boolean: true}}) {
		t.Fatal("expected open with stored true")
	}
	if gate.IsOpen(&EvalContext{}) {
		t.Fatal("expected closed with no stored value")
	}
	if !gate.ProtectsValue(true) || !gate.ProtectsValue(&BooleanValue{}) {
		t.Fatal("boolean gate must claim bool and *BooleanValue")
	}
	if gate.ProtectsValue("true") {
		t.Fatal("boolean gate must not claim strings")
	}
}

func TestExpressionGate(t *testing.T) {
	gate := expressionGate{}
	values := GateValues{Expression: map[string]any{
		"Equal": []any{map[string]any{"Property": []any{"plan"}}, "basic"},
	}}

	actor, err := NewActorValue(BasicActor{ID: "User;1", Props: map[string]any{"plan": "basic"}})
	if err != nil {
		t.Fatalf("NewActorValue: %v", err)
	}
	if !gate.IsOpen(&EvalContext{FeatureName: "search", Values: values, Actor: actor}) {
		t.Fatal("expected open for matching actor")
	}

	other, err := NewActorValue(BasicActor{ID: "User;2", Props: map[string]any{"plan": "premium"}})
	if err != nil {
		t.Fatalf("NewActorValue: %v", err)
	}
	if gate.IsOpen(&EvalContext{FeatureName: "search", Values: values, Actor: other}) {
		t.Fatal("expected closed for non-matching actor")
	}

	// Without an actor the property bag is empty, so the comparison sees nil.
	if gate.IsOpen(&EvalContext{FeatureName: "search", Values: values}) {
		t.Fatal("expected closed without an actor")
	}
}

func TestExpressionGateSwallowsErrors(t *testing.T) {
	gate := expressionGate{}

	malformed := GateValues{Expression: map[string]any{"Bogus": []any{}}}
	if gate.IsOpen(&EvalContext{Values: malformed}) {
		t.Fatal("expected closed for unbuildable expression")
	}

	failing := GateValues{Expression: map[string]any{"Duration": []any{float64(5), "fortnights"}}}
	if gate.IsOpen(&EvalContext{Values: failing}) {
		t.Fatal("expected closed when evaluation errors")
	}
}

func TestExpressionGateCustomRegistry(t *testing.T) {
	registry := expr.NewRegistry().With("AlwaysTrue", func(args []expr.Node) (expr.Node, error) {
		return expr.NewConstant(true), nil
	})
	gate := expressionGate{registry: registry}

	values := GateValues{Expression: map[string]any{"AlwaysTrue": []any{}}}
	if !gate.IsOpen(&EvalContext{Values: values}) {
		t.Fatal("expected custom node kind to open the gate")
	}
	if (expressionGate{}).IsOpen(&EvalContext{Values: values}) {
		t.Fatal("expected default registry to reject the custom name")
	}
}

func TestActorGate(t *testing.T) {
	gate := actorGate{}
	values := GateValues{Actors: NewSet("User;1")}

	actor, err := NewActorValue(BasicActor{ID: "User;1"})
	if err != nil {
		t.Fatalf("NewActorValue: %v", err)
	}
	if !gate.IsOpen(&EvalContext{Values: values, Actor: actor}) {
		t.Fatal("expected open for allowlisted actor")
	}

	other, err := NewActorValue(BasicActor{ID: "User;2"})
	if err != nil {
		t.Fatalf("NewActorValue: %v", err)
	}
	if gate.IsOpen(&EvalContext{Values: values, Actor: other}) {
		t.Fatal("expected closed for other actor")
	}
	if gate.IsOpen(&EvalContext{Values: values}) {
		t.Fatal("expected closed without an actor")
	}
}

func TestGroupGate(t *testing.T) {
	gate := groupGate{}
	groups := NewGroups()
	if err := groups.Register("admins", func(actor Actor) bool {
		basic, ok := actor.(BasicActor)
		return ok && basic.Props["admin"] == true
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	values := GateValues{Groups: NewSet("admins", "unregistered")}

	admin, err := NewActorValue(BasicActor{ID: "User;1", Props: map[string]any{"admin": true}})
	if err != nil {
		t.Fatalf("NewActorValue: %v", err)
	}
	if !gate.IsOpen(&EvalContext{Values: values, Actor: admin, Groups: groups}) {
		t.Fatal("expected open for group member")
	}

	outsider, err := NewActorValue(BasicActor{ID: "User;2"})
	if err != nil {
		t.Fatalf("NewActorValue: %v", err)
	}
	if gate.IsOpen(&EvalContext{Values: values, Actor: outsider, Groups: groups}) {
		t.Fatal("expected closed for non-member")
	}
	if gate.IsOpen(&EvalContext{Values: values, Groups: groups}) {
		t.Fatal("expected closed without an actor")
	}

	// An actor value with no underlying actor cannot satisfy predicates.
	bare := &ActorValue{ID: "User;3"}
	if gate.IsOpen(&EvalContext{Values: values, Actor: bare, Groups: groups}) {
		t.Fatal("expected closed for bare actor value")
	}
}

func TestPercentageOfActorsGate(t *testing.T) {
	gate := percentageOfActorsGate{}
	pct := func(v float64) *float64 { return &v }

	actor, err := NewActorValue(BasicActor{ID: "User;1"})
	if err != nil {
		t.Fatalf("NewActorValue: %v", err)
	}

	if !gate.IsOpen(&EvalContext{FeatureName: "search", Values: GateValues{PercentageOfActors: pct(100)}, Actor: actor}) {
		t.Fatal("expected open at 100 percent")
	}
	if gate.IsOpen(&EvalContext{FeatureName: "search", Values: GateValues{PercentageOfActors: pct(100)}}) {
		t.Fatal("expected closed without an actor")
	}
	if gate.IsOpen(&EvalContext{FeatureName: "search", Values: GateValues{}, Actor: actor}) {
		t.Fatal("expected closed with no stored percentage")
	}

	if gate.IsEnabled(GateValues{PercentageOfActors: pct(0)}) {
		t.Fatal("zero percentage must not count as enabled")
	}
	if !gate.IsEnabled(GateValues{PercentageOfActors: pct(1)}) {
		t.Fatal("positive percentage must count as enabled")
	}
}

func TestPercentageOfTimeGate(t *testing.T) {
	gate := percentageOfTimeGate{}
	pct := func(v float64) *float64 { return &v }

	if gate.IsOpen(&EvalContext{Values: GateValues{}}) {
		t.Fatal("expected closed with no stored percentage")
	}
	if gate.IsOpen(&EvalContext{Values: GateValues{PercentageOfTime: pct(0)}}) {
		t.Fatal("expected closed at zero percent")
	}
	if !gate.IsOpen(&EvalContext{Values: GateValues{PercentageOfTime: pct(100)}}) {
		t.Fatal("expected open at 100 percent")
	}

	// At 50% both outcomes must occur over repeated checks.
	values := GateValues{PercentageOfTime: pct(50)}
	var open, closed bool
	for range 1000 {
		if gate.IsOpen(&EvalContext{Values: values}) {
			open = true
		} else {
			closed = true
		}
		if open && closed {
			break
		}
	}
	if !open || !closed {
		t.Fatal("expected both outcomes at 50 percent")
	}
}

func TestGateWrapRejectsForeignValues(t *testing.T) {
	for _, gate := range defaultGates(nil) {
		if _, err := gate.Wrap(struct{}{}); err == nil {
			t.Fatalf("%s.Wrap accepted a foreign value", gate.Name())
		}
	}
}
