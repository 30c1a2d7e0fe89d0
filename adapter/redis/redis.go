// Package redis provides a Redis-backed gatez adapter. Each feature is one
// hash keyed gatez:feature:<key>, with scalar gates stored under their gate
// key and set gate members stored under <gate key>/<member>. Known feature
// keys live in the gatez:features set.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/matt-riley/gatez"
)

const (
	featuresKey      = "gatez:features"
	featurePrefix    = "gatez:feature:"
	setMemberPresent = "1"
)

// Adapter implements the gatez adapter contract on Redis.
type Adapter struct {
	client redis.UniversalClient
}

// New creates an adapter backed by client. The client stays owned by the
// caller.
func New(client redis.UniversalClient) *Adapter {
	return &Adapter{client: client}
}

func featureKey(feature string) string {
	return featurePrefix + feature
}

func (a *Adapter) Get(ctx context.Context, feature string) (map[string]any, error) {
	fields, err := a.client.HGetAll(ctx, featureKey(feature)).Result()
	if err != nil {
		return nil, fmt.Errorf("get gates: %w", err)
	}
	return decodeFields(fields)
}

func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]map[string]any, error) {
	pipe := a.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(features))
	for _, feature := range features {
		cmds[feature] = pipe.HGetAll(ctx, featureKey(feature))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("get gates multi: %w", err)
	}

	result := make(map[string]map[string]any, len(features))
	for feature, cmd := range cmds {
		gates, err := decodeFields(cmd.Val())
		if err != nil {
			return nil, err
		}
		result[feature] = gates
	}
	return result, nil
}

func (a *Adapter) GetAll(ctx context.Context) (map[string]map[string]any, error) {
	features, err := a.Features(ctx)
	if err != nil {
		return nil, err
	}
	return a.GetMulti(ctx, features)
}

func (a *Adapter) Features(ctx context.Context) ([]string, error) {
	keys, err := a.client.SMembers(ctx, featuresKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	return keys, nil
}

func (a *Adapter) Add(ctx context.Context, feature string) error {
	if err := a.client.SAdd(ctx, featuresKey, feature).Err(); err != nil {
		return fmt.Errorf("add feature: %w", err)
	}
	return nil
}

func (a *Adapter) Remove(ctx context.Context, feature string) error {
	pipe := a.client.TxPipeline()
	pipe.SRem(ctx, featuresKey, feature)
	pipe.Del(ctx, featureKey(feature))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove feature: %w", err)
	}
	return nil
}

func (a *Adapter) Clear(ctx context.Context, feature string) error {
	if err := a.client.Del(ctx, featureKey(feature)).Err(); err != nil {
		return fmt.Errorf("clear gates: %w", err)
	}
	return nil
}

func (a *Adapter) Enable(ctx context.Context, feature string, gate gatez.Gate, value any) error {
	field, stored, err := encodeField(gate, value)
	if err != nil {
		return err
	}
	if err := a.client.HSet(ctx, featureKey(feature), field, stored).Err(); err != nil {
		return fmt.Errorf("enable %s gate: %w", gate.Name(), err)
	}
	return nil
}

func (a *Adapter) Disable(ctx context.Context, feature string, gate gatez.Gate, value any) error {
	switch gate.DataType() {
	case gatez.DataTypeBoolean:
		return a.Clear(ctx, feature)
	case gatez.DataTypeInteger:
		return a.Enable(ctx, feature, gate, value)
	case gatez.DataTypeSet:
		field, _, err := encodeField(gate, value)
		if err != nil {
			return err
		}
		if err := a.client.HDel(ctx, featureKey(feature), field).Err(); err != nil {
			return fmt.Errorf("disable %s gate: %w", gate.Name(), err)
		}
		return nil
	case gatez.DataTypeJSON:
		// The stored expression is removed whole; the disable value carries
		// nothing to encode.
		if err := a.client.HDel(ctx, featureKey(feature), gate.Key()).Err(); err != nil {
			return fmt.Errorf("disable %s gate: %w", gate.Name(), err)
		}
		return nil
	}
	return fmt.Errorf("unsupported data type %q", gate.DataType())
}

// encodeField maps a wrapped typed value to its hash field and stored string.
// Set gate members become part of the field name so each member is its own
// hash entry.
func encodeField(gate gatez.Gate, value any) (field, stored string, err error) {
	raw, err := gatez.RawGateValue(gate, value)
	if err != nil {
		return "", "", err
	}

	switch gate.DataType() {
	case gatez.DataTypeSet:
		return gate.Key() + "/" + raw.(string), setMemberPresent, nil
	case gatez.DataTypeJSON:
		encoded, err := json.Marshal(raw)
		if err != nil {
			return "", "", fmt.Errorf("encode %s gate: %w", gate.Name(), err)
		}
		return gate.Key(), string(encoded), nil
	default:
		return gate.Key(), raw.(string), nil
	}
}

// decodeFields rebuilds the flat gate value map from hash fields.
func decodeFields(fields map[string]string) (map[string]any, error) {
	gates := make(map[string]any, len(fields))
	for field, value := range fields {
		if gateKey, member, ok := strings.Cut(field, "/"); ok {
			members, _ := gates[gateKey].(gatez.Set)
			if members == nil {
				members = gatez.Set{}
			}
			members[member] = struct{}{}
			gates[gateKey] = members
			continue
		}

		if field == gatez.KeyExpression {
			var literal map[string]any
			if err := json.Unmarshal([]byte(value), &literal); err != nil {
				return nil, fmt.Errorf("decode expression gate: %w", err)
			}
			gates[field] = literal
			continue
		}

		gates[field] = value
	}
	return gates, nil
}
