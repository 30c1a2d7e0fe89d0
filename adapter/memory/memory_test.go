package memory

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/matt-riley/gatez"
)

func gateByName(t *testing.T, name string) gatez.Gate {
	t.Helper()
	for _, gate := range gatez.NewFeature(nil, "test").Gates() {
		if gate.Name() == name {
			return gate
		}
	}
	t.Fatalf("no gate named %q", name)
	return nil
}

func TestEnableStoresRawShapes(t *testing.T) {
	ctx := context.Background()
	adapter := New()

	boolean := gateByName(t, gatez.GateBoolean)
	actor := gateByName(t, gatez.GateActor)
	pctActors := gateByName(t, gatez.GatePercentageOfActors)
	expression := gateByName(t, gatez.GateExpression)

	if err := adapter.Enable(ctx, "search", boolean, &gatez.BooleanValue{Value: true}); err != nil {
		t.Fatalf("Enable boolean: %v", err)
	}
	if err := adapter.Enable(ctx, "search", actor, &gatez.ActorValue{ID: "User;1"}); err != nil {
		t.Fatalf("Enable actor: %v", err)
	}
	if err := adapter.Enable(ctx, "search", actor, &gatez.ActorValue{ID: "User;2"}); err != nil {
		t.Fatalf("Enable second actor: %v", err)
	}
	if err := adapter.Enable(ctx, "search", pctActors, &gatez.PercentageOfActorsValue{Value: 25}); err != nil {
		t.Fatalf("Enable percentage: %v", err)
	}
	expressionValue, err := gatez.NewExpressionValue(map[string]any{"Boolean": []any{true}})
	if err != nil {
		t.Fatalf("NewExpressionValue: %v", err)
	}
	if err := adapter.Enable(ctx, "search", expression, expressionValue); err != nil {
		t.Fatalf("Enable expression: %v", err)
	}

	raw, err := adapter.Get(ctx, "search")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if raw[gatez.KeyBoolean] != "true" {
		t.Fatalf("boolean = %v, want %q", raw[gatez.KeyBoolean], "true")
	}
	if got := raw[gatez.KeyActors].(gatez.Set); !got.Contains("User;1") || !got.Contains("User;2") {
		t.Fatalf("actors = %v, want both members", got)
	}
	if raw[gatez.KeyPercentageOfActors] != "25" {
		t.Fatalf("percentage_of_actors = %v, want %q", raw[gatez.KeyPercentageOfActors], "25")
	}
	if _, ok := raw[gatez.KeyExpression].(map[string]any); !ok {
		t.Fatalf("expression = %T, want map literal", raw[gatez.KeyExpression])
	}
}

func TestScalarGateReplacedNotAccumulated(t *testing.T) {
	ctx := context.Background()
	adapter := New()
	pct := gateByName(t, gatez.GatePercentageOfActors)

	if err := adapter.Enable(ctx, "search", pct, &gatez.PercentageOfActorsValue{Value: 25}); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := adapter.Enable(ctx, "search", pct, &gatez.PercentageOfActorsValue{Value: 50}); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	raw, err := adapter.Get(ctx, "search")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if raw[gatez.KeyPercentageOfActors] != "50" {
		t.Fatalf("percentage_of_actors = %v, want %q", raw[gatez.KeyPercentageOfActors], "50")
	}
}

func TestBooleanDisableClearsFeature(t *testing.T) {
	ctx := context.Background()
	adapter := New()
	boolean := gateByName(t, gatez.GateBoolean)
	actor := gateByName(t, gatez.GateActor)

	if err := adapter.Enable(ctx, "search", actor, &gatez.ActorValue{ID: "User;1"}); err != nil {
		t.Fatalf("Enable actor: %v", err)
	}
	if err := adapter.Enable(ctx, "search", boolean, &gatez.BooleanValue{Value: true}); err != nil {
		t.Fatalf("Enable boolean: %v", err)
	}

	if err := adapter.Disable(ctx, "search", boolean, &gatez.BooleanValue{Value: false}); err != nil {
		t.Fatalf("Disable boolean: %v", err)
	}

	raw, err := adapter.Get(ctx, "search")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("gate values = %v, want empty after boolean disable", raw)
	}
}

func TestSetMemberDisable(t *testing.T) {
	ctx := context.Background()
	adapter := New()
	actor := gateByName(t, gatez.GateActor)

	for _, id := range []string{"User;1", "User;2"} {
		if err := adapter.Enable(ctx, "search", actor, &gatez.ActorValue{ID: id}); err != nil {
			t.Fatalf("Enable(%s): %v", id, err)
		}
	}
	if err := adapter.Disable(ctx, "search", actor, &gatez.ActorValue{ID: "User;1"}); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	raw, err := adapter.Get(ctx, "search")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got := raw[gatez.KeyActors].(gatez.Set)
	if got.Contains("User;1") || !got.Contains("User;2") {
		t.Fatalf("actors = %v, want only User;2", got)
	}
}

func TestGetReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	adapter := New()
	actor := gateByName(t, gatez.GateActor)

	if err := adapter.Enable(ctx, "search", actor, &gatez.ActorValue{ID: "User;1"}); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	raw, err := adapter.Get(ctx, "search")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	raw[gatez.KeyActors].(gatez.Set)["User;99"] = struct{}{}
	raw[gatez.KeyBoolean] = "true"

	again, err := adapter.Get(ctx, "search")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again[gatez.KeyActors].(gatez.Set).Contains("User;99") {
		t.Fatal("mutating a returned set leaked into the adapter")
	}
	if _, ok := again[gatez.KeyBoolean]; ok {
		t.Fatal("mutating a returned map leaked into the adapter")
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	adapter := New()

	if err := adapter.Add(ctx, "search"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Add is idempotent and must not wipe existing gate values.
	boolean := gateByName(t, gatez.GateBoolean)
	if err := adapter.Enable(ctx, "search", boolean, &gatez.BooleanValue{Value: true}); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := adapter.Add(ctx, "search"); err != nil {
		t.Fatalf("Add again: %v", err)
	}
	raw, err := adapter.Get(ctx, "search")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if raw[gatez.KeyBoolean] != "true" {
		t.Fatal("re-adding a feature dropped its gate values")
	}

	if err := adapter.Add(ctx, "billing"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	features, err := adapter.Features(ctx)
	if err != nil {
		t.Fatalf("Features: %v", err)
	}
	sort.Strings(features)
	if want := []string{"billing", "search"}; !reflect.DeepEqual(features, want) {
		t.Fatalf("Features = %v, want %v", features, want)
	}

	if err := adapter.Clear(ctx, "search"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	raw, err = adapter.Get(ctx, "search")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("gate values = %v, want empty after Clear", raw)
	}
	features, err = adapter.Features(ctx)
	if err != nil {
		t.Fatalf("Features: %v", err)
	}
	if len(features) != 2 {
		t.Fatal("Clear must keep the feature registered")
	}

	if err := adapter.Remove(ctx, "search"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	features, err = adapter.Features(ctx)
	if err != nil {
		t.Fatalf("Features: %v", err)
	}
	if len(features) != 1 || features[0] != "billing" {
		t.Fatalf("Features = %v, want [billing]", features)
	}
}

func TestGetMultiAndGetAll(t *testing.T) {
	ctx := context.Background()
	adapter := New()
	boolean := gateByName(t, gatez.GateBoolean)

	if err := adapter.Enable(ctx, "search", boolean, &gatez.BooleanValue{Value: true}); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := adapter.Add(ctx, "billing"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	multi, err := adapter.GetMulti(ctx, []string{"search", "missing"})
	if err != nil {
		t.Fatalf("GetMulti: %v", err)
	}
	if multi["search"][gatez.KeyBoolean] != "true" {
		t.Fatalf("search = %v, want boolean true", multi["search"])
	}
	if values, ok := multi["missing"]; !ok || len(values) != 0 {
		t.Fatalf("missing = %v (present %v), want empty entry", values, ok)
	}

	all, err := adapter.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetAll has %d entries, want 2", len(all))
	}
	if values, ok := all["billing"]; !ok || len(values) != 0 {
		t.Fatalf("billing = %v (present %v), want empty entry", values, ok)
	}
}
