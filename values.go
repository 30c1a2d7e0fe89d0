package gatez

import "strconv"

// Set is the stored representation of actor and group gate values.
type Set map[string]struct{}

// NewSet builds a Set from its members.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func (s Set) Contains(member string) bool {
	_, ok := s[member]
	return ok
}

func (s Set) Empty() bool { return len(s) == 0 }

// GateValues is a typed read-only snapshot of one feature's stored per-gate
// configuration, coerced from the flat raw map an adapter returns. A fresh
// snapshot is built on every read and never cached across checks.
type GateValues struct {
	Boolean            bool
	Actors             Set
	Groups             Set
	PercentageOfActors *float64
	PercentageOfTime   *float64
	Expression         map[string]any
}

// NewGateValues coerces an adapter's raw per-gate map into typed values.
// Unrecognized or absent entries coerce to their zero forms rather than
// failing, so a sparse or stale store never breaks a check.
func NewGateValues(raw map[string]any) GateValues {
	return GateValues{
		Boolean:            rawBool(raw[KeyBoolean]),
		Actors:             rawSet(raw[KeyActors]),
		Groups:             rawSet(raw[KeyGroups]),
		PercentageOfActors: rawPercentage(raw[KeyPercentageOfActors]),
		PercentageOfTime:   rawPercentage(raw[KeyPercentageOfTime]),
		Expression:         rawExpression(raw[KeyExpression]),
	}
}

func rawBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

func rawSet(v any) Set {
	switch t := v.(type) {
	case Set:
		return t
	case map[string]struct{}:
		return Set(t)
	case []string:
		return NewSet(t...)
	case []any:
		s := make(Set, len(t))
		for _, member := range t {
			if str, ok := member.(string); ok {
				s[str] = struct{}{}
			}
		}
		return s
	}
	return Set{}
}

func rawPercentage(v any) *float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		return &f
	case float64:
		f := t
		return &f
	case int:
		f := float64(t)
		return &f
	}
	return nil
}

func rawExpression(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// EvalContext carries the ambient inputs passed to every gate during a check:
// the feature name, the typed value snapshot, the optional wrapped actor, and
// the group registry. It is built fresh per check and discarded afterwards.
type EvalContext struct {
	FeatureName string
	Values      GateValues
	Actor       *ActorValue
	Groups      *Groups
}

func (c *EvalContext) actorProperties() map[string]any {
	if c.Actor == nil {
		return map[string]any{}
	}
	return c.Actor.Properties()
}
