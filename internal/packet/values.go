package packet

import (
	"encoding/json"
	"math"
	"strconv"
)

// State reports whether a field slot holds a value.
//
// Unspecified and Omitted are also accepted by Set and returned by Get in
// place of a value, so absence never has to be encoded as a zero value.
type State uint8

const (
	// Unspecified means no value was supplied; defaults apply.
	Unspecified State = iota
	// Omitted means an optional field was deliberately left out.
	Omitted
	// Present means the slot holds a value or a Deferred function.
	Present
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Unspecified:
		return "Unspecified"
	case Omitted:
		return "Omitted"
	case Present:
		return "Present"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

type slot struct {
	state State
	val   any
	fn    Deferred
}

func (s slot) raw() any {
	switch {
	case s.state != Present:
		return s.state
	case s.fn != nil:
		return s.fn
	}
	return s.val
}

func slotOf(v any) slot {
	switch val := v.(type) {
	case State:
		if val == Present {
			return slot{state: Unspecified}
		}
		return slot{state: val}
	case Deferred:
		return slot{state: Present, fn: val}
	case func(*Packet, string) (any, error):
		return slot{state: Present, fn: val}
	}
	return slot{state: Present, val: v}
}

func isState(v any) bool {
	_, ok := v.(State)
	return ok
}

func isDeferred(v any) bool {
	switch v.(type) {
	case Deferred, func(*Packet, string) (any, error):
		return true
	}
	return false
}

func asDeferred(v any) (Deferred, bool) {
	switch fn := v.(type) {
	case Deferred:
		return fn, true
	case func(*Packet, string) (any, error):
		return fn, true
	}
	return nil, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint64:
		return n, true
	case json.Number:
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return u, true
		}
	}
	i, ok := toInt64(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		return 0, false
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if u, ok := toUint64(v); ok {
		return float64(u), true
	}
	return 0, false
}

func isFloat(v any) bool {
	switch n := v.(type) {
	case float32, float64:
		return true
	case json.Number:
		_, err := n.Int64()
		return err != nil
	}
	return false
}

// AsFloat converts a numeric value to float64.
func AsFloat(v any) (float64, bool) { return toFloat64(v) }

// AsUint converts a non-negative integer value to uint64.
func AsUint(v any) (uint64, bool) { return toUint64(v) }
