// Package memory provides an in-process gatez adapter. It is the reference
// implementation of the adapter contract, useful for tests and for
// applications that configure flags at boot.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/matt-riley/gatez"
)

// Adapter stores raw gate values in a mutex-guarded map of maps. All
// operations are safe for concurrent use.
type Adapter struct {
	mu       sync.RWMutex
	features map[string]map[string]any
}

// New creates an empty in-memory adapter.
func New() *Adapter {
	return &Adapter{features: make(map[string]map[string]any)}
}

func (a *Adapter) Get(_ context.Context, feature string) (map[string]any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyGates(a.features[feature]), nil
}

func (a *Adapter) GetMulti(_ context.Context, features []string) (map[string]map[string]any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]map[string]any, len(features))
	for _, feature := range features {
		result[feature] = copyGates(a.features[feature])
	}
	return result, nil
}

func (a *Adapter) GetAll(_ context.Context) (map[string]map[string]any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]map[string]any, len(a.features))
	for feature, gates := range a.features {
		result[feature] = copyGates(gates)
	}
	return result, nil
}

func (a *Adapter) Features(_ context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]string, 0, len(a.features))
	for feature := range a.features {
		keys = append(keys, feature)
	}
	return keys, nil
}

func (a *Adapter) Add(_ context.Context, feature string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.features[feature]; !ok {
		a.features[feature] = make(map[string]any)
	}
	return nil
}

func (a *Adapter) Remove(_ context.Context, feature string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.features, feature)
	return nil
}

func (a *Adapter) Clear(_ context.Context, feature string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.features[feature] = make(map[string]any)
	return nil
}

func (a *Adapter) Enable(_ context.Context, feature string, gate gatez.Gate, value any) error {
	raw, err := gatez.RawGateValue(gate, value)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	gates := a.features[feature]
	if gates == nil {
		gates = make(map[string]any)
		a.features[feature] = gates
	}

	switch gate.DataType() {
	case gatez.DataTypeBoolean, gatez.DataTypeInteger, gatez.DataTypeJSON:
		gates[gate.Key()] = raw
	case gatez.DataTypeSet:
		members := toSet(gates[gate.Key()])
		members[raw.(string)] = struct{}{}
		gates[gate.Key()] = members
	default:
		return fmt.Errorf("unsupported data type %q", gate.DataType())
	}
	return nil
}

func (a *Adapter) Disable(_ context.Context, feature string, gate gatez.Gate, value any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	gates := a.features[feature]
	if gates == nil {
		gates = make(map[string]any)
		a.features[feature] = gates
	}

	switch gate.DataType() {
	case gatez.DataTypeBoolean:
		// Disabling the boolean gate turns the whole feature off.
		a.features[feature] = make(map[string]any)
	case gatez.DataTypeInteger:
		raw, err := gatez.RawGateValue(gate, value)
		if err != nil {
			return err
		}
		gates[gate.Key()] = raw
	case gatez.DataTypeSet:
		raw, err := gatez.RawGateValue(gate, value)
		if err != nil {
			return err
		}
		members := toSet(gates[gate.Key()])
		delete(members, raw.(string))
		gates[gate.Key()] = members
	case gatez.DataTypeJSON:
		delete(gates, gate.Key())
	default:
		return fmt.Errorf("unsupported data type %q", gate.DataType())
	}
	return nil
}

func toSet(v any) gatez.Set {
	if s, ok := v.(gatez.Set); ok {
		return s
	}
	return gatez.Set{}
}

func copyGates(gates map[string]any) map[string]any {
	result := make(map[string]any, len(gates))
	for key, value := range gates {
		if members, ok := value.(gatez.Set); ok {
			copied := make(gatez.Set, len(members))
			for member := range members {
				copied[member] = struct{}{}
			}
			result[key] = copied
			continue
		}
		result[key] = value
	}
	return result
}
