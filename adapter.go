package gatez

import (
	"context"
	"fmt"
	"strconv"
)

// Adapter is the storage collaborator contract. The engine reduces every
// backend to one shape: a flat map from gate key to raw value per feature,
// plus the write operations that mutate it. Raw value shapes by data type:
// boolean gates store the string "true" or nothing, set gates store string
// members, integer gates store a string-encoded number, and json gates store
// an object literal or nothing.
//
// Adapter calls are the engine's only asynchronous boundary; everything else
// is pure. The engine makes no read-after-write consistency assumptions
// beyond what the adapter itself provides.
type Adapter interface {
	// Get returns the raw per-gate values for one feature. Unknown features
	// return an empty map, not an error.
	Get(ctx context.Context, feature string) (map[string]any, error)
	// GetMulti returns raw values for several features in one round trip.
	GetMulti(ctx context.Context, features []string) (map[string]map[string]any, error)
	// GetAll returns raw values for every known feature.
	GetAll(ctx context.Context) (map[string]map[string]any, error)
	// Features lists the known feature keys.
	Features(ctx context.Context) ([]string, error)

	// Add registers a feature. It must be idempotent; gate writes follow it
	// because some backends key gate rows by a reference to the feature row.
	Add(ctx context.Context, feature string) error
	// Remove deletes the feature and all its gate values.
	Remove(ctx context.Context, feature string) error
	// Clear deletes the feature's gate values but keeps it registered.
	Clear(ctx context.Context, feature string) error

	// Enable writes a wrapped typed value for one gate.
	Enable(ctx context.Context, feature string, gate Gate, value any) error
	// Disable removes or resets a wrapped typed value for one gate. For the
	// boolean gate this clears every stored value of the feature.
	Disable(ctx context.Context, feature string, gate Gate, value any) error
}

// RawGateValue converts a wrapped typed value into the flat representation an
// adapter stores for the gate's data type: "true" for booleans, the member
// string for set gates, a string-encoded number for percentage gates, and the
// expression literal for json gates.
func RawGateValue(gate Gate, value any) (any, error) {
	switch gate.DataType() {
	case DataTypeBoolean:
		if v, ok := value.(*BooleanValue); ok {
			return strconv.FormatBool(v.Value), nil
		}
	case DataTypeSet:
		switch v := value.(type) {
		case *ActorValue:
			return v.ID, nil
		case *GroupValue:
			return v.Name, nil
		case string:
			return v, nil
		}
	case DataTypeInteger:
		switch v := value.(type) {
		case *PercentageOfActorsValue:
			return formatPercentage(v.Value), nil
		case *PercentageOfTimeValue:
			return formatPercentage(v.Value), nil
		}
	case DataTypeJSON:
		if v, ok := value.(*ExpressionValue); ok {
			if literal := v.Literal(); literal != nil {
				return literal, nil
			}
			return nil, fmt.Errorf("cannot store empty expression for %s gate", gate.Name())
		}
	}
	return nil, fmt.Errorf("cannot store %T for %s gate", value, gate.Name())
}

func formatPercentage(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
