package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The coercion rules below are a compatibility surface shared with other
// clients of the same stored expressions, not a style choice. They reproduce
// loose dynamic-language semantics explicitly: zero, NaN, the empty string,
// and nil are falsy while empty composites are truthy, and numbers compare
// numerically regardless of their Go width.

// Truthy reports whether v coerces to boolean true.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := numeric(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// ToNumber coerces v to a float64. Non-numeric input, including unparseable
// strings, coerces to 0 rather than NaN so that sparse actor data never
// poisons arithmetic.
func ToNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	}
	if f, ok := numeric(v); ok {
		return f
	}
	return 0
}

// ToString coerces v to its string form. nil becomes the empty string so
// that an absent actor id short-circuits percentage rollouts.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := numeric(v); ok {
		return formatNumber(f)
	}
	return fmt.Sprintf("%v", v)
}

// StrictEqual compares type and value: numbers compare numerically across
// widths, strings and booleans compare directly, and values of different
// kinds are never equal.
func StrictEqual(a, b any) bool {
	if fa, ok := numeric(a); ok {
		fb, ok := numeric(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// formatNumber renders whole values without a decimal point so numeric actor
// ids hash identically to their string form.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
