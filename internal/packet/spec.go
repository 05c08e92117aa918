package packet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/muurk/lumen/internal/bits"
)

// Spec converts a field value into its canonical form for one direction.
type Spec interface {
	Normalise(v any) (any, error)
}

type specFunc func(v any) (any, error)

func (f specFunc) Normalise(v any) (any, error) { return f(v) }

// Spec returns the normaliser of the field in packet p.
//
// When unpacking is false values are normalised towards the wire: enums become
// integers and bytes, strings and sub-structures become bit buffers. When
// unpacking is true values are normalised for use. With transform set the
// write direction applies the transform to supplied values, and the read
// direction applies the untransform to the result.
func (t Type) Spec(p *Packet, unpacking, transform bool) Spec {
	var inner Spec = t.baseSpec(p, unpacking)
	if t.callable {
		inner = passDeferred(inner)
	} else {
		inner = rejectDeferred(inner)
	}

	var spec Spec = inner
	if !unpacking && transform && t.transform != nil {
		spec = transformSpec(p, t.transform, inner)
	}
	if t.optional {
		inner = optionalSpec(inner)
		spec = optionalSpec(spec)
	}
	if t.def != nil {
		spec = defaultedSpec(p, t.def, spec, inner)
	}
	if t.override != nil {
		spec = overriddenSpec(p, t.override, inner)
	}
	if unpacking && transform && t.untransform != nil {
		spec = transformSpec(p, t.untransform, spec)
	}
	return spec
}

func overriddenSpec(p *Packet, fn ValueFunc, inner Spec) Spec {
	return specFunc(func(any) (any, error) {
		v, err := fn(p)
		if err != nil {
			return nil, err
		}
		return inner.Normalise(v)
	})
}

func defaultedSpec(p *Packet, fn ValueFunc, spec, inner Spec) Spec {
	return specFunc(func(v any) (any, error) {
		if v != Unspecified {
			return spec.Normalise(v)
		}
		d, err := fn(p)
		if err != nil {
			return nil, err
		}
		return inner.Normalise(d)
	})
}

func optionalSpec(inner Spec) Spec {
	return specFunc(func(v any) (any, error) {
		if v == Unspecified || v == Omitted {
			return Omitted, nil
		}
		return inner.Normalise(v)
	})
}

func transformSpec(p *Packet, fn TransformFunc, inner Spec) Spec {
	return specFunc(func(v any) (any, error) {
		if isState(v) || isDeferred(v) {
			return inner.Normalise(v)
		}
		out, err := fn(p, v)
		if err != nil {
			return nil, err
		}
		return inner.Normalise(out)
	})
}

func passDeferred(inner Spec) Spec {
	return specFunc(func(v any) (any, error) {
		if fn, ok := asDeferred(v); ok {
			return fn, nil
		}
		return inner.Normalise(v)
	})
}

func rejectDeferred(inner Spec) Spec {
	return specFunc(func(v any) (any, error) {
		if isDeferred(v) {
			return nil, conversionError("field does not accept deferred values", nil)
		}
		return inner.Normalise(v)
	})
}

func (t Type) baseSpec(p *Packet, unpacking bool) Spec {
	var fn func(v any) (any, error)
	switch {
	case t.dynamic != nil:
		fn = func(v any) (any, error) { return t.normaliseDynamic(p, v, unpacking) }
	case t.multiple != nil:
		fn = func(v any) (any, error) { return t.normaliseMultiple(p, v, unpacking) }
	case t.conversion == ConvertInt && t.enum != nil:
		fn = func(v any) (any, error) { return t.normaliseEnum(v, unpacking) }
	case t.conversion == ConvertInt && t.bitmask != nil:
		fn = func(v any) (any, error) { return t.normaliseBitmask(v, unpacking) }
	case t.conversion == ConvertInt:
		fn = func(v any) (any, error) { return t.normaliseInt(v, unpacking) }
	case t.conversion == ConvertFloat:
		fn = normaliseFloat
	case t.conversion == ConvertBool:
		fn = normaliseBool
	case t.conversion == ConvertBytes:
		fn = func(v any) (any, error) { return t.normaliseBytes(p, v) }
	case t.conversion == ConvertString:
		fn = func(v any) (any, error) { return t.normaliseString(p, v, unpacking) }
	case t.conversion == ConvertCSV:
		fn = func(v any) (any, error) { return t.normaliseCSV(p, v, unpacking) }
	case t.conversion == ConvertJSON:
		fn = func(v any) (any, error) { return t.normaliseJSON(p, v, unpacking) }
	default:
		fn = func(v any) (any, error) { return nil, conversionError("unsupported conversion", v) }
	}
	return specFunc(func(v any) (any, error) {
		if isState(v) {
			return v, nil
		}
		return fn(v)
	})
}

// canonicalInt returns n as int64 for signed formats and uint64 otherwise.
func (t Type) canonicalInt(n int64) any {
	if t.format.signed() {
		return n
	}
	return uint64(n)
}

func (t Type) normaliseInt(v any, unpacking bool) (any, error) {
	if isFloat(v) {
		if !t.allowFloat {
			return nil, conversionError("expected an integer", v)
		}
		f, _ := toFloat64(v)
		if unpacking {
			return f, nil
		}
		return t.canonicalInt(int64(f)), nil
	}
	if t.format.signed() {
		if n, ok := toInt64(v); ok {
			return n, nil
		}
		return nil, conversionError("expected an integer", v)
	}
	if u, ok := toUint64(v); ok {
		return u, nil
	}
	return nil, conversionError("expected a non-negative integer", v)
}

func (t Type) normaliseEnum(v any, unpacking bool) (any, error) {
	e := t.enum
	if u, ok := v.(UnknownEnum); ok {
		if !t.unknownEnum {
			return nil, e.badValue("unknown enum values are not allowed", v)
		}
		if unpacking {
			return u, nil
		}
		return t.canonicalInt(u.Value), nil
	}
	if s, ok := v.(string); ok && t.unknownEnum {
		if u, found := e.parseUnknown(s); found {
			return t.normaliseEnum(u, unpacking)
		}
	}
	m, err := e.resolve(v)
	if err != nil {
		n, isInt := toInt64(v)
		if !isInt || !t.unknownEnum {
			return nil, err
		}
		if unpacking {
			return UnknownEnum{Enum: e, Value: n}, nil
		}
		return t.canonicalInt(n), nil
	}
	if unpacking {
		return m, nil
	}
	return t.canonicalInt(m.Value), nil
}

func bitmaskItems(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []Member:
		out := make([]any, len(val))
		for i, m := range val {
			out[i] = m
		}
		return out, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out, true
	case Member, string:
		return []any{val}, true
	}
	return nil, false
}

func (t Type) normaliseBitmask(v any, unpacking bool) (any, error) {
	e := t.bitmask
	if n, ok := toInt64(v); ok {
		if !unpacking {
			return t.canonicalInt(n), nil
		}
		var out []Member
		for _, m := range e.members {
			if n&m.Value == m.Value {
				out = append(out, m)
			}
		}
		return out, nil
	}
	if u, ok := v.(uint64); ok {
		return t.normaliseBitmask(int64(u), unpacking)
	}

	items, ok := bitmaskItems(v)
	if !ok {
		return nil, conversionError("expected a list of bitmask members", v)
	}
	selected := make(map[int64]bool)
	for _, item := range items {
		m, err := e.resolve(item)
		if err != nil {
			return nil, err
		}
		selected[m.Value] = true
	}

	var out []Member
	var total int64
	for _, m := range e.members {
		if selected[m.Value] {
			delete(selected, m.Value)
			out = append(out, m)
			total += m.Value
		}
	}
	if unpacking {
		return out, nil
	}
	return t.canonicalInt(total), nil
}

func normaliseFloat(v any) (any, error) {
	if f, ok := toFloat64(v); ok {
		return f, nil
	}
	return nil, conversionError("expected a number", v)
}

func normaliseBool(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if n, ok := toInt64(v); ok && (n == 0 || n == 1) {
		return n == 1, nil
	}
	return nil, conversionError("expected a boolean", v)
}

// toBits accepts nil, raw bytes, hex text or a bit buffer.
func toBits(v any) (bits.Bits, error) {
	switch val := v.(type) {
	case nil:
		return bits.Bits{}, nil
	case bits.Bits:
		return val, nil
	case []byte:
		return bits.FromBytes(val), nil
	case string:
		b, err := bits.FromHex(val)
		if err != nil {
			return bits.Bits{}, conversionError("invalid hex text", v)
		}
		return b, nil
	}
	return bits.Bits{}, conversionError("expected bytes, hex text or bits", v)
}

func (t Type) fit(p *Packet, b bits.Bits) (bits.Bits, error) {
	n, err := t.SizeBits(p)
	if err != nil {
		return bits.Bits{}, err
	}
	if n <= 0 {
		return b, nil
	}
	return b.Fit(n, t.leftCut), nil
}

func (t Type) normaliseBytes(p *Packet, v any) (any, error) {
	b, err := toBits(v)
	if err != nil {
		return nil, err
	}
	return t.fit(p, b)
}

func rawBytes(v any) ([]byte, bool) {
	switch val := v.(type) {
	case bits.Bits:
		return val.Bytes(), true
	case []byte:
		return val, true
	}
	return nil, false
}

func cutNull(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

func (t Type) normaliseString(p *Packet, v any, unpacking bool) (any, error) {
	if unpacking {
		if s, ok := v.(string); ok {
			return string(cutNull([]byte(s))), nil
		}
		if b, ok := rawBytes(v); ok {
			return string(cutNull(b)), nil
		}
		return nil, conversionError("expected a string", v)
	}
	if s, ok := v.(string); ok {
		return t.fit(p, bits.FromBytes([]byte(s)))
	}
	if b, ok := rawBytes(v); ok {
		return t.fit(p, bits.FromBytes(b))
	}
	return nil, conversionError("expected a string", v)
}

func csvItems(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		if val == "" {
			return []string{}, true
		}
		return strings.Split(val, ","), true
	}
	if b, ok := rawBytes(v); ok {
		return csvItems(string(bytes.TrimRight(b, "\x00")))
	}
	return nil, false
}

func (t Type) normaliseCSV(p *Packet, v any, unpacking bool) (any, error) {
	items, ok := csvItems(v)
	if !ok {
		return nil, conversionError("expected a list of strings", v)
	}
	if unpacking {
		return items, nil
	}
	return t.fit(p, bits.FromBytes([]byte(strings.Join(items, ","))))
}

func (t Type) normaliseJSON(p *Packet, v any, unpacking bool) (any, error) {
	if b, ok := rawBytes(v); ok {
		if !unpacking {
			return t.fit(p, bits.FromBytes(b))
		}
		dec := json.NewDecoder(bytes.NewReader(bytes.TrimRight(b, "\x00")))
		dec.UseNumber()
		var out any
		if err := dec.Decode(&out); err != nil {
			return nil, &Error{Kind: KindConversion, Message: "invalid json text", Err: err}
		}
		return ValidJSON(out)
	}
	valid, err := ValidJSON(v)
	if err != nil {
		return nil, err
	}
	if unpacking {
		return valid, nil
	}
	text, err := json.Marshal(valid)
	if err != nil {
		return nil, &Error{Kind: KindConversion, Message: "failed to encode json", Value: v, Err: err}
	}
	return t.fit(p, bits.FromBytes(text))
}

// ValidJSON returns a canonical copy of a JSON shaped value: nil, bool,
// string, int64, float64, []any or map[string]any. Anything else, including
// maps with non-string keys, is an error.
func ValidJSON(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, string:
		return val, nil
	case float32:
		return float64(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, conversionError("json numbers must be finite", v)
		}
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, conversionError("invalid json number", v)
		}
		return f, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			c, err := ValidJSON(item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			c, err := ValidJSON(item)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key, ok := k.(string)
			if !ok {
				return nil, conversionError("json object keys must be strings", k)
			}
			c, err := ValidJSON(item)
			if err != nil {
				return nil, err
			}
			out[key] = c
		}
		return out, nil
	}
	if n, ok := toInt64(v); ok {
		if _, isBool := v.(bool); !isBool {
			return n, nil
		}
	}
	return nil, conversionError(fmt.Sprintf("%T is not a json value", v), nil)
}

func (t Type) dynamicKind(p *Packet) (*Schema, error) {
	fields, err := t.dynamic(p)
	if err != nil {
		return nil, err
	}
	return Build("Dynamic", fields)
}

func (t Type) normaliseDynamic(p *Packet, v any, unpacking bool) (any, error) {
	kind, err := t.dynamicKind(p)
	if err != nil {
		return nil, err
	}
	var sub *Packet
	switch val := v.(type) {
	case *Packet:
		sub = val
	case map[string]any:
		if sub, err = kind.Normalise(val); err != nil {
			return nil, err
		}
	default:
		b, err := toBits(v)
		if err != nil {
			return nil, err
		}
		if !unpacking {
			return t.fit(p, b)
		}
		sub, _, err = kind.UnpackBits(b)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
	if unpacking {
		return sub, nil
	}
	b, err := sub.Pack()
	if err != nil {
		return nil, err
	}
	return t.fit(p, b)
}

func multipleItems(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []*Packet:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = el
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = el
		}
		return out, true
	}
	return nil, false
}

func (t Type) normaliseMultiple(p *Packet, v any, unpacking bool) (any, error) {
	m := t.multiple
	kind, err := m.Kind(p)
	if err != nil {
		return nil, err
	}
	width, err := m.elementWidth(p)
	if err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, conversionError("multiple elements must have a positive width", width)
	}

	items, isList := multipleItems(v)
	if !isList {
		b, err := toBits(v)
		if err != nil {
			return nil, conversionError("expected a list of elements", v)
		}
		if !unpacking {
			if m.Count > 0 && b.Len() > m.Count*width {
				return nil, conversionError(fmt.Sprintf("expected at most %d bits for %d elements, got %d", m.Count*width, m.Count, b.Len()), v)
			}
			return b, nil
		}
		var out []*Packet
		for off := 0; off+width <= b.Len(); off += width {
			el, _, err := kind.UnpackBits(b.Slice(off, off+width))
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", off/width, err)
			}
			out = append(out, el)
		}
		return out, nil
	}

	if m.Count > 0 && len(items) > m.Count {
		return nil, conversionError(fmt.Sprintf("expected at most %d elements, got %d", m.Count, len(items)), len(items))
	}

	elements := make([]*Packet, len(items))
	for i, item := range items {
		switch el := item.(type) {
		case *Packet:
			elements[i] = el
		case map[string]any:
			if elements[i], err = kind.Normalise(el); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		default:
			return nil, conversionError(fmt.Sprintf("element %d is not a map", i), item)
		}
	}
	if unpacking {
		return elements, nil
	}

	var out bits.Bits
	for i, el := range elements {
		b, err := m.Cache.pack(el)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = out.Append(b.Fit(width, false))
	}
	return out, nil
}
