package gatez

import (
	"errors"
	"strings"
	"testing"
)

func TestNewActorValue(t *testing.T) {
	value, err := NewActorValue(BasicActor{ID: "User;1", Props: map[string]any{"plan": "basic"}})
	if err != nil {
		t.Fatalf("NewActorValue: %v", err)
	}
	if value.ID != "User;1" {
		t.Fatalf("ID = %q, want %q", value.ID, "User;1")
	}
	if value.Properties()["plan"] != "basic" {
		t.Fatalf("Properties() = %v, want plan:basic", value.Properties())
	}

	if _, err := NewActorValue(nil); !errors.Is(err, ErrMissingActorID) {
		t.Fatalf("NewActorValue(nil) error = %v, want ErrMissingActorID", err)
	}
	if _, err := NewActorValue(BasicActor{}); !errors.Is(err, ErrMissingActorID) {
		t.Fatalf("NewActorValue(empty id) error = %v, want ErrMissingActorID", err)
	}
}

func TestActorValuePropertiesWithoutProvider(t *testing.T) {
	value := &ActorValue{ID: "User;1"}
	props := value.Properties()
	if props == nil || len(props) != 0 {
		t.Fatalf("Properties() = %v, want empty map", props)
	}
}

func TestNewGroupValue(t *testing.T) {
	value, err := NewGroupValue("admins")
	if err != nil {
		t.Fatalf("NewGroupValue: %v", err)
	}
	if value.Name != "admins" {
		t.Fatalf("Name = %q, want %q", value.Name, "admins")
	}
	if _, err := NewGroupValue(""); !errors.Is(err, ErrMissingGroupName) {
		t.Fatalf("NewGroupValue(\"\") error = %v, want ErrMissingGroupName", err)
	}
}

func TestPercentageValidation(t *testing.T) {
	for _, valid := range []float64{0, 0.1, 50, 100} {
		if _, err := NewPercentageOfActorsValue(valid); err != nil {
			t.Fatalf("NewPercentageOfActorsValue(%v): %v", valid, err)
		}
		if _, err := NewPercentageOfTimeValue(valid); err != nil {
			t.Fatalf("NewPercentageOfTimeValue(%v): %v", valid, err)
		}
	}

	for _, invalid := range []float64{-1, 100.1, 500} {
		if _, err := NewPercentageOfActorsValue(invalid); !errors.Is(err, ErrInvalidPercentage) {
			t.Fatalf("NewPercentageOfActorsValue(%v) error = %v, want ErrInvalidPercentage", invalid, err)
		}
		if _, err := NewPercentageOfTimeValue(invalid); !errors.Is(err, ErrInvalidPercentage) {
			t.Fatalf("NewPercentageOfTimeValue(%v) error = %v, want ErrInvalidPercentage", invalid, err)
		}
	}

	_, err := NewPercentageOfTimeValue(120)
	want := "value must be a positive number less than or equal to 100, but was 120"
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Fatalf("error = %v, want message containing %q", err, want)
	}
}

func TestNewExpressionValue(t *testing.T) {
	value, err := NewExpressionValue(map[string]any{"Boolean": []any{true}})
	if err != nil {
		t.Fatalf("NewExpressionValue: %v", err)
	}
	literal, ok := value.Literal().(map[string]any)
	if !ok {
		t.Fatalf("Literal() = %T, want map", value.Literal())
	}
	if _, ok := literal["Boolean"]; !ok {
		t.Fatalf("Literal() = %v, want Boolean node", literal)
	}

	if _, err := NewExpressionValue(map[string]any{"Bogus": []any{}}); err == nil {
		t.Fatal("expected build error for unknown expression")
	}
}

func TestExpressionValueLiteralWithoutNode(t *testing.T) {
	value := &ExpressionValue{}
	if got := value.Literal(); got != nil {
		t.Fatalf("Literal() = %v, want nil for empty wrapper", got)
	}
}

func TestWrapIdempotent(t *testing.T) {
	gates := defaultGates(nil)

	boolean := &BooleanValue{Value: true}
	actor := &ActorValue{ID: "User;1"}
	group := &GroupValue{Name: "admins"}
	pctActors := &PercentageOfActorsValue{Value: 25}
	pctTime := &PercentageOfTimeValue{Value: 25}
	expression, err := NewExpressionValue(true)
	if err != nil {
		t.Fatalf("NewExpressionValue: %v", err)
	}

	wrapped := []any{boolean, expression, actor, group, pctActors, pctTime}
	for i, gate := range gates {
		got, err := gate.Wrap(wrapped[i])
		if err != nil {
			t.Fatalf("%s.Wrap: %v", gate.Name(), err)
		}
		if got != wrapped[i] {
			t.Fatalf("%s.Wrap returned a new value for an already-wrapped input", gate.Name())
		}
	}
}
