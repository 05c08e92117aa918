package packet

import (
	"fmt"
	"strings"

	"github.com/muurk/lumen/internal/bits"
)

// Format is the fixed-width wire encoding of a scalar field.
type Format byte

// Struct formats. FormatNone marks fields that are already bit shaped.
const (
	FormatNone    Format = 0
	FormatBool    Format = '?' // single bit
	FormatInt8    Format = 'b'
	FormatUint8   Format = 'B'
	FormatInt16   Format = 'h'
	FormatUint16  Format = 'H'
	FormatInt32   Format = 'i'
	FormatUint32  Format = 'I'
	FormatInt64   Format = 'q'
	FormatUint64  Format = 'Q'
	FormatFloat32 Format = 'f'
	FormatFloat64 Format = 'd'
)

// Width returns the number of bits the format occupies on the wire.
func (f Format) Width() int {
	switch f {
	case FormatBool:
		return 1
	case FormatInt8, FormatUint8:
		return 8
	case FormatInt16, FormatUint16:
		return 16
	case FormatInt32, FormatUint32, FormatFloat32:
		return 32
	case FormatInt64, FormatUint64, FormatFloat64:
		return 64
	}
	return 0
}

func (f Format) signed() bool {
	switch f {
	case FormatInt8, FormatInt16, FormatInt32, FormatInt64:
		return true
	}
	return false
}

func (f Format) float() bool {
	return f == FormatFloat32 || f == FormatFloat64
}

func (f Format) numeric() bool {
	return f != FormatNone && f != FormatBool
}

// Conversion is the in-memory meaning of a field value.
type Conversion int

const (
	ConvertInt Conversion = iota
	ConvertFloat
	ConvertBool
	ConvertBytes
	ConvertString
	ConvertCSV
	ConvertJSON
)

// ValueFunc computes a value from the owning packet.
type ValueFunc func(p *Packet) (any, error)

// TransformFunc maps between a caller-facing value and its stored form.
type TransformFunc func(p *Packet, v any) (any, error)

// SizeFunc computes a field width from the in-progress packet.
type SizeFunc func(p *Packet) (int, error)

// Deferred is a field value computed when the packet is packed for a target.
type Deferred func(p *Packet, serial string) (any, error)

// DynamicFunc computes the field list of a dynamic field from its siblings.
type DynamicFunc func(p *Packet) ([]Field, error)

// Multiple describes a repeated field of sub-structures.
type Multiple struct {
	// Count is the number of elements the field holds on the wire.
	Count int
	// Kind returns the element schema.
	Kind func(p *Packet) (*Schema, error)
	// Width optionally returns the element width in bits. Defaults to the
	// element schema's fixed size.
	Width func(p *Packet, kind *Schema) (int, error)
	// Cache memoises packed elements when set.
	Cache *EncodingCache
}

// Repeat returns a Multiple of count fixed-size elements of kind.
func Repeat(count int, kind *Schema) Multiple {
	return Multiple{
		Count: count,
		Kind:  func(*Packet) (*Schema, error) { return kind, nil },
	}
}

// Type describes one field's wire width, encoding and value semantics.
//
// Type values are immutable. Every modifier returns a new Type so a base type
// can be shared between many fields.
type Type struct {
	name        string
	format      Format
	conversion  Conversion
	size        int
	sizer       SizeFunc
	enum        *Enum
	bitmask     *Enum
	unknownEnum bool
	dynamic     DynamicFunc
	multiple    *Multiple
	transform   TransformFunc
	untransform TransformFunc
	def         ValueFunc
	override    ValueFunc
	optional    bool
	callable    bool
	allowFloat  bool
	leftCut     bool
	err         error
}

func scalar(name string, f Format, c Conversion) Type {
	return Type{name: name, format: f, conversion: c, size: f.Width()}
}

// Standard scalar types.
var (
	Bool    = scalar("Bool", FormatBool, ConvertBool)
	BoolInt = scalar("BoolInt", FormatUint8, ConvertBool)
	Int8    = scalar("Int8", FormatInt8, ConvertInt)
	Uint8   = scalar("Uint8", FormatUint8, ConvertInt)
	Int16   = scalar("Int16", FormatInt16, ConvertInt)
	Uint16  = scalar("Uint16", FormatUint16, ConvertInt)
	Int32   = scalar("Int32", FormatInt32, ConvertInt)
	Uint32  = scalar("Uint32", FormatUint32, ConvertInt)
	Int64   = scalar("Int64", FormatInt64, ConvertInt)
	Uint64  = scalar("Uint64", FormatUint64, ConvertInt)
	Float   = scalar("Float", FormatFloat32, ConvertFloat)
	Double  = scalar("Double", FormatFloat64, ConvertFloat)
)

// Bytes returns a raw bytes field of n bits.
func Bytes(n int) Type {
	return Type{name: "Bytes", conversion: ConvertBytes, size: n}
}

// String returns a null-terminated string field of n bits.
func String(n int) Type {
	return Type{name: "String", conversion: ConvertString, size: n}
}

// Reserved returns an n bit region that packs as zeros unless written.
func Reserved(n int) Type {
	return Type{name: "Reserved", conversion: ConvertBytes, size: n, optional: true}
}

// CSV returns a field of n bits holding comma separated strings.
func CSV(n int) Type {
	return Type{name: "CSV", conversion: ConvertCSV, size: n}
}

// JSON returns a field of n bits holding JSON text.
func JSON(n int) Type {
	return Type{name: "JSON", conversion: ConvertJSON, size: n}
}

func (t Type) withErr(format string, args ...any) Type {
	if t.err == nil {
		t.err = schemaError(fmt.Sprintf("%s: %s", t.String(), fmt.Sprintf(format, args...)), nil)
	}
	return t
}

// S returns the type with a fixed width of n bits.
func (t Type) S(n int) Type {
	t.size = n
	t.sizer = nil
	return t
}

// SizedBy returns the type with a width computed from the packet.
func (t Type) SizedBy(fn SizeFunc) Type {
	t.sizer = fn
	return t
}

// Enum returns the type with values drawn from e.
func (t Type) Enum(e *Enum) Type {
	if t.bitmask != nil {
		return t.withErr("cannot set both enum and bitmask")
	}
	if t.conversion != ConvertInt {
		return t.withErr("enum requires an integer type")
	}
	t.enum = e
	return t
}

// AllowUnknownEnums returns the type accepting wire values that match no member.
func (t Type) AllowUnknownEnums() Type {
	t.unknownEnum = true
	return t
}

// Bitmask returns the type with values combined from members of e.
func (t Type) Bitmask(e *Enum) Type {
	if t.enum != nil {
		return t.withErr("cannot set both enum and bitmask")
	}
	if t.conversion != ConvertInt {
		return t.withErr("bitmask requires an integer type")
	}
	for _, m := range e.members {
		if m.Value == 0 {
			return t.withErr("bitmask enum %s has a zero valued member %s", e.name, m.Name)
		}
	}
	t.bitmask = e
	return t
}

// Dynamic returns the type with its layout computed from sibling values.
func (t Type) Dynamic(fn DynamicFunc) Type {
	t.dynamic = fn
	return t
}

// Many returns the type as a repeated field of sub-structures.
func (t Type) Many(m Multiple) Type {
	if m.Kind == nil {
		return t.withErr("multiple requires an element kind")
	}
	t.multiple = &m
	if t.sizer == nil && t.size == 0 {
		t.sizer = func(p *Packet) (int, error) {
			w, err := m.elementWidth(p)
			if err != nil {
				return 0, err
			}
			return w * m.Count, nil
		}
	}
	return t
}

// Transform returns the type with a value mapping applied before storing and
// reversed after reading.
func (t Type) Transform(transform, untransform TransformFunc) Type {
	t.transform = transform
	t.untransform = untransform
	return t
}

// Default returns the type with a constant default.
func (t Type) Default(v any) Type {
	t.def = func(*Packet) (any, error) { return v, nil }
	return t
}

// DefaultFunc returns the type with a default computed from the packet.
func (t Type) DefaultFunc(fn ValueFunc) Type {
	t.def = fn
	return t
}

// Override returns the type always yielding v regardless of what was stored.
func (t Type) Override(v any) Type {
	t.override = func(*Packet) (any, error) { return v, nil }
	return t
}

// OverrideFunc returns the type always yielding fn(packet).
func (t Type) OverrideFunc(fn ValueFunc) Type {
	t.override = fn
	return t
}

// Optional returns the type where a missing value is deliberately omitted.
func (t Type) Optional() Type {
	t.optional = true
	return t
}

// AllowCallable returns the type accepting Deferred values.
func (t Type) AllowCallable() Type {
	t.callable = true
	return t
}

// AllowFloat returns the type accepting float values for an integer field.
func (t Type) AllowFloat() Type {
	t.allowFloat = true
	return t
}

// LeftCut returns the type padded and truncated on the left.
func (t Type) LeftCut() Type {
	t.leftCut = true
	return t
}

// Format returns the struct format.
func (t Type) Format() Format { return t.format }

// Conversion returns the value conversion.
func (t Type) Conversion() Conversion { return t.conversion }

// IsOptional reports whether missing values are omitted.
func (t Type) IsOptional() bool { return t.optional }

// HasDefault reports whether the type supplies a default.
func (t Type) HasDefault() bool { return t.def != nil }

// String describes the type for error messages.
func (t Type) String() string {
	var b strings.Builder
	b.WriteString(t.name)
	switch {
	case t.sizer != nil:
		b.WriteString("(dynamic)")
	case t.format == FormatNone || t.size != t.format.Width():
		fmt.Fprintf(&b, "(%d)", t.size)
	}
	if t.enum != nil {
		fmt.Fprintf(&b, " enum=%s", t.enum.name)
	}
	if t.bitmask != nil {
		fmt.Fprintf(&b, " bitmask=%s", t.bitmask.name)
	}
	return b.String()
}

// SizeBits returns the width of the field for packet p.
func (t Type) SizeBits(p *Packet) (int, error) {
	if t.sizer != nil {
		return t.sizer(p)
	}
	return t.size, nil
}

func (t Type) static() bool {
	return t.sizer == nil
}

func (m Multiple) elementWidth(p *Packet) (int, error) {
	kind, err := m.Kind(p)
	if err != nil {
		return 0, err
	}
	if m.Width != nil {
		return m.Width(p, kind)
	}
	return kind.FixedSizeBits()
}

// zero returns an all-zero value of the declared width.
func (t Type) zero(p *Packet) (bits.Bits, error) {
	n, err := t.SizeBits(p)
	if err != nil {
		return bits.Bits{}, err
	}
	return bits.New(n), nil
}
