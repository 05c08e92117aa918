package packet

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/muurk/lumen/internal/bits"
)

// PackOptions controls PackWith.
type PackOptions struct {
	// Serial is handed to Deferred values.
	Serial string
	// Payload replaces the stored opaque payload of a parent packet.
	Payload *bits.Bits
}

// Pack converts p into its wire bits.
func (p *Packet) Pack() (bits.Bits, error) {
	return p.PackWith(PackOptions{})
}

// PackBytes converts p into wire bytes.
func (p *Packet) PackBytes() ([]byte, error) {
	b, err := p.Pack()
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// PackWith converts p into its wire bits. Fields are packed in flattened
// order, each to exactly its declared width; a parent packet then appends its
// payload. Packing either succeeds for every field or returns an error.
func (p *Packet) PackWith(o PackOptions) (bits.Bits, error) {
	out, err := p.packNames(p.schema.allNames, o.Serial)
	if err != nil {
		return bits.Bits{}, err
	}
	if p.schema.isParent {
		payload := p.payload
		if o.Payload != nil {
			payload = *o.Payload
		}
		out = out.Append(payload)
	}
	return out, nil
}

func (p *Packet) packNames(names []string, serial string) (bits.Bits, error) {
	var out bits.Bits
	for _, name := range names {
		t := p.schema.allTypes[p.schema.index[name]]
		v, err := p.Value(name, ValueOptions{Packing: true, Serial: serial, KeepBits: true})
		if err != nil {
			return bits.Bits{}, err
		}
		size, err := t.SizeBits(p)
		if err != nil {
			return bits.Bits{}, located(err, p.schema, name, t)
		}
		b, err := p.fieldBits(name, t, v, size)
		if err != nil {
			return bits.Bits{}, err
		}
		out = out.Append(b.Fit(size, t.leftCut))
	}
	return out, nil
}

func (p *Packet) packingError(name string, t Type, v any, msg string, cause error) *Error {
	return &Error{
		Kind:    KindPacking,
		Message: msg,
		Field:   name,
		Group:   p.schema.nameToGroup[name],
		Type:    t.String(),
		Value:   v,
		Err:     cause,
	}
}

// fieldBits converts one normalised value into bits before fitting.
func (p *Packet) fieldBits(name string, t Type, v any, size int) (bits.Bits, error) {
	switch val := v.(type) {
	case State:
		if val == Omitted {
			return bits.New(size), nil
		}
		return bits.Bits{}, p.packingError(name, t, nil, "cannot pack an unspecified value", ErrNotSpecified)
	case bits.Bits:
		return val, nil
	case []byte:
		return bits.FromBytes(val), nil
	case *Packet:
		return val.Pack()
	}

	if t.format == FormatBool {
		b, ok := v.(bool)
		if !ok {
			return bits.Bits{}, p.packingError(name, t, v, "expected a boolean", nil)
		}
		return bits.Bits{}.AppendBool(b), nil
	}
	if !t.format.numeric() {
		return bits.Bits{}, p.packingError(name, t, v, fmt.Sprintf("cannot pack %T without a struct format", v), nil)
	}

	buf, err := t.format.encode(v)
	if err != nil {
		return bits.Bits{}, p.packingError(name, t, v, "value does not fit the struct format", err)
	}
	return bits.FromBytes(buf), nil
}

// encode struct-packs v little-endian.
func (f Format) encode(v any) ([]byte, error) {
	if b, ok := v.(bool); ok {
		if b {
			v = uint64(1)
		} else {
			v = uint64(0)
		}
	}
	buf := make([]byte, 8)
	width := f.Width()

	if f.float() {
		x, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", v)
		}
		if f == FormatFloat32 {
			if math.Abs(x) > math.MaxFloat32 && !math.IsInf(x, 0) {
				return nil, fmt.Errorf("%g out of range for a 32 bit float", x)
			}
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(x)))
		} else {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
		}
		return buf[:width/8], nil
	}

	if isFloat(v) {
		return nil, fmt.Errorf("required argument is not an integer")
	}
	if f.signed() {
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("expected an integer, got %T", v)
		}
		lo, hi := -(int64(1) << (width - 1)), int64(1)<<(width-1)-1
		if width == 64 {
			lo, hi = math.MinInt64, math.MaxInt64
		}
		if n < lo || n > hi {
			return nil, fmt.Errorf("%d out of range [%d, %d]", n, lo, hi)
		}
		binary.LittleEndian.PutUint64(buf, uint64(n))
		return buf[:width/8], nil
	}

	u, ok := toUint64(v)
	if !ok {
		return nil, fmt.Errorf("expected a non-negative integer, got %v", v)
	}
	if width < 64 && u > uint64(1)<<width-1 {
		return nil, fmt.Errorf("%d out of range [0, %d]", u, uint64(1)<<width-1)
	}
	binary.LittleEndian.PutUint64(buf, u)
	return buf[:width/8], nil
}

// decode reads a little-endian value of the format from b.
func (f Format) decode(b bits.Bits) any {
	width := f.Width()
	raw := b.Uint()
	switch {
	case f == FormatFloat32:
		return float64(math.Float32frombits(uint32(raw)))
	case f == FormatFloat64:
		return math.Float64frombits(raw)
	case f.signed():
		shift := uint(64 - width)
		return int64(raw<<shift) >> shift
	}
	return raw
}

// Unpack decodes bytes, hex text or bits into a packet of s. A parent schema
// keeps everything after its fields as the opaque payload.
func (s *Schema) Unpack(data any) (*Packet, error) {
	b, err := toBits(data)
	if err != nil {
		return nil, err
	}
	p, offset, err := s.UnpackBits(b)
	if err != nil {
		return nil, err
	}
	if s.opaqueGroup != "" && s.isParent {
		p.payload = b.Slice(offset, b.Len())
	}
	return p, nil
}

// UnpackBits decodes the fields of s from the start of b and returns the
// packet with the number of bits consumed. Field widths may depend on values
// decoded earlier in the same walk.
func (s *Schema) UnpackBits(b bits.Bits) (*Packet, int, error) {
	p := s.Empty()
	offset := 0
	for i, name := range s.allNames {
		t := s.allTypes[i]
		size, err := t.SizeBits(p)
		if err != nil {
			return nil, 0, located(err, s, name, t)
		}
		if offset+size > b.Len() {
			return nil, 0, &Error{
				Kind:    KindPacking,
				Message: fmt.Sprintf("need %d bits, only %d available", offset+size, b.Len()),
				Field:   name,
				Group:   s.nameToGroup[name],
				Type:    t.String(),
				Err:     ErrTruncated,
			}
		}
		chunk := b.Slice(offset, offset+size)
		p.slots[i] = slot{state: Present, val: t.fromBits(chunk)}
		offset += size
	}
	return p, offset, nil
}

// fromBits converts a field's bit slice into its raw stored value.
func (t Type) fromBits(chunk bits.Bits) any {
	switch {
	case t.format == FormatBool:
		return chunk.Bit(0)
	case t.format.numeric():
		return t.format.decode(chunk.Fit(t.format.Width(), t.leftCut))
	}
	return chunk
}
