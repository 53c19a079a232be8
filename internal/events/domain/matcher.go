package domain

import (
	"encoding/json"
	"math/big"
	"reflect"
)

// Matches reports whether payload satisfies filter. A nil or empty filter matches every
// payload. Otherwise each filter key must be present in payload with an equal value.
// Numbers compare exactly by value whatever their Go type, so json.Number("1.0") equals
// 1 but two integers above 2^53 stay distinct. No other coercion happens: 1 and "1"
// differ.
func Matches(payload, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := payload[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if x, ok := toRat(a); ok {
		y, ok := toRat(b)
		return ok && x.Cmp(y) == 0
	}
	if _, ok := toRat(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// toRat returns the exact value of a numeric v. NaN and infinities are not numbers here.
func toRat(v any) (*big.Rat, bool) {
	r := new(big.Rat)
	switch n := v.(type) {
	case json.Number:
		if _, ok := r.SetString(string(n)); !ok {
			return nil, false
		}
		return r, true
	case float64:
		return ratFromFloat(r, n)
	case float32:
		return ratFromFloat(r, float64(n))
	case int:
		return r.SetInt64(int64(n)), true
	case int8:
		return r.SetInt64(int64(n)), true
	case int16:
		return r.SetInt64(int64(n)), true
	case int32:
		return r.SetInt64(int64(n)), true
	case int64:
		return r.SetInt64(n), true
	case uint:
		return r.SetUint64(uint64(n)), true
	case uint8:
		return r.SetUint64(uint64(n)), true
	case uint16:
		return r.SetUint64(uint64(n)), true
	case uint32:
		return r.SetUint64(uint64(n)), true
	case uint64:
		return r.SetUint64(n), true
	}
	return nil, false
}

func ratFromFloat(r *big.Rat, f float64) (*big.Rat, bool) {
	if r.SetFloat64(f) == nil {
		return nil, false
	}
	return r, true
}
