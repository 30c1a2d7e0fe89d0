// Package postgres provides a PostgreSQL-backed gatez adapter built on a
// pgxpool connection pool. Features live in gatez_features and gate values in
// gatez_gates, one row per value, so set gates map naturally to rows and
// scalar gates are replaced transactionally.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matt-riley/gatez"
)

// Adapter implements the gatez adapter contract on PostgreSQL.
type Adapter struct {
	pool *pgxpool.Pool
}

// New creates an adapter backed by pool. The pool stays owned by the caller.
func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{pool: pool}
}

func (a *Adapter) Get(ctx context.Context, feature string) (map[string]any, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT key, value
		FROM gatez_gates
		WHERE feature_key = $1
	`, feature)
	if err != nil {
		return nil, fmt.Errorf("get gates: %w", err)
	}
	defer rows.Close()

	gates := make(map[string]any)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan gate: %w", err)
		}
		if err := collectGate(gates, key, value); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get gates rows: %w", err)
	}

	return gates, nil
}

func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(features))
	for _, feature := range features {
		result[feature] = make(map[string]any)
	}

	rows, err := a.pool.Query(ctx, `
		SELECT feature_key, key, value
		FROM gatez_gates
		WHERE feature_key = ANY($1)
	`, features)
	if err != nil {
		return nil, fmt.Errorf("get gates multi: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var feature, key, value string
		if err := rows.Scan(&feature, &key, &value); err != nil {
			return nil, fmt.Errorf("scan gate: %w", err)
		}
		if err := collectGate(result[feature], key, value); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get gates multi rows: %w", err)
	}

	return result, nil
}

func (a *Adapter) GetAll(ctx context.Context) (map[string]map[string]any, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT f.key, g.key, g.value
		FROM gatez_features f
		LEFT JOIN gatez_gates g ON g.feature_key = f.key
	`)
	if err != nil {
		return nil, fmt.Errorf("get all gates: %w", err)
	}
	defer rows.Close()

	result := make(map[string]map[string]any)
	for rows.Next() {
		var feature string
		var key, value *string
		if err := rows.Scan(&feature, &key, &value); err != nil {
			return nil, fmt.Errorf("scan gate: %w", err)
		}

		gates := result[feature]
		if gates == nil {
			gates = make(map[string]any)
			result[feature] = gates
		}
		if key == nil {
			continue
		}
		if err := collectGate(gates, *key, *value); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get all gates rows: %w", err)
	}

	return result, nil
}

func (a *Adapter) Features(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx, `SELECT key FROM gatez_features ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list features rows: %w", err)
	}

	return keys, nil
}

func (a *Adapter) Add(ctx context.Context, feature string) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO gatez_features (key)
		VALUES ($1)
		ON CONFLICT (key) DO NOTHING
	`, feature)
	if err != nil {
		return fmt.Errorf("add feature: %w", err)
	}
	return nil
}

func (a *Adapter) Remove(ctx context.Context, feature string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM gatez_features WHERE key = $1`, feature)
	if err != nil {
		return fmt.Errorf("remove feature: %w", err)
	}
	return nil
}

func (a *Adapter) Clear(ctx context.Context, feature string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM gatez_gates WHERE feature_key = $1`, feature)
	if err != nil {
		return fmt.Errorf("clear gates: %w", err)
	}
	return nil
}

func (a *Adapter) Enable(ctx context.Context, feature string, gate gatez.Gate, value any) error {
	encoded, err := encodeGateValue(gate, value)
	if err != nil {
		return err
	}

	if gate.DataType() == gatez.DataTypeSet {
		_, err := a.pool.Exec(ctx, `
			INSERT INTO gatez_gates (feature_key, key, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (feature_key, key, value) DO NOTHING
		`, feature, gate.Key(), encoded)
		if err != nil {
			return fmt.Errorf("enable %s gate: %w", gate.Name(), err)
		}
		return nil
	}

	return a.replaceGate(ctx, feature, gate.Key(), encoded)
}

func (a *Adapter) Disable(ctx context.Context, feature string, gate gatez.Gate, value any) error {
	switch gate.DataType() {
	case gatez.DataTypeBoolean:
		return a.Clear(ctx, feature)
	case gatez.DataTypeSet:
		encoded, err := encodeGateValue(gate, value)
		if err != nil {
			return err
		}
		_, err = a.pool.Exec(ctx, `
			DELETE FROM gatez_gates
			WHERE feature_key = $1 AND key = $2 AND value = $3
		`, feature, gate.Key(), encoded)
		if err != nil {
			return fmt.Errorf("disable %s gate: %w", gate.Name(), err)
		}
		return nil
	case gatez.DataTypeInteger:
		encoded, err := encodeGateValue(gate, value)
		if err != nil {
			return err
		}
		return a.replaceGate(ctx, feature, gate.Key(), encoded)
	case gatez.DataTypeJSON:
		_, err := a.pool.Exec(ctx, `
			DELETE FROM gatez_gates
			WHERE feature_key = $1 AND key = $2
		`, feature, gate.Key())
		if err != nil {
			return fmt.Errorf("disable %s gate: %w", gate.Name(), err)
		}
		return nil
	}
	return fmt.Errorf("unsupported data type %q", gate.DataType())
}

// replaceGate swaps a scalar gate's value in one transaction so readers never
// observe the gate with two rows.
func (a *Adapter) replaceGate(ctx context.Context, feature, key, value string) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace gate tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM gatez_gates
		WHERE feature_key = $1 AND key = $2
	`, feature, key); err != nil {
		return fmt.Errorf("delete gate: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO gatez_gates (feature_key, key, value)
		VALUES ($1, $2, $3)
	`, feature, key, value); err != nil {
		return fmt.Errorf("insert gate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace gate tx: %w", err)
	}
	return nil
}

// collectGate folds one stored row into the flat gate value map: set gate
// rows accumulate into a member set, expression rows decode from JSON, and
// scalar rows pass through as strings.
func collectGate(gates map[string]any, key, value string) error {
	switch key {
	case gatez.KeyActors, gatez.KeyGroups:
		members, _ := gates[key].(gatez.Set)
		if members == nil {
			members = gatez.Set{}
		}
		members[value] = struct{}{}
		gates[key] = members
	case gatez.KeyExpression:
		var literal map[string]any
		if err := json.Unmarshal([]byte(value), &literal); err != nil {
			return fmt.Errorf("decode expression gate: %w", err)
		}
		gates[key] = literal
	default:
		gates[key] = value
	}
	return nil
}

// encodeGateValue renders a wrapped typed value as the single TEXT column the
// schema stores. Expression literals marshal to JSON; everything else is
// already a string.
func encodeGateValue(gate gatez.Gate, value any) (string, error) {
	raw, err := gatez.RawGateValue(gate, value)
	if err != nil {
		return "", err
	}

	switch v := raw.(type) {
	case string:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode %s gate: %w", gate.Name(), err)
		}
		return string(encoded), nil
	}
}
