package packet

import (
	"fmt"
	"sort"

	"github.com/muurk/lumen/internal/bits"
)

// Packet holds the raw values of one instance of a Schema.
//
// Groups are views: reading a group builds a transient packet of the group
// schema from the member fields. The only exception is the opaque payload
// group, whose bits are stored as given because its layout is unknown here.
type Packet struct {
	schema  *Schema
	slots   []slot
	payload bits.Bits
}

// ValueOptions controls how Value reads a field.
type ValueOptions struct {
	// Packing normalises towards the wire instead of for use.
	Packing bool
	// Serial is handed to Deferred values.
	Serial string
	// KeepBits returns bits.Bits instead of converting to []byte.
	KeepBits bool
	// Untransformed skips the untransform of the read direction.
	Untransformed bool
}

// Empty returns a packet with every field unspecified.
func (s *Schema) Empty() *Packet {
	return &Packet{schema: s, slots: make([]slot, len(s.allNames))}
}

// Normalise creates a packet from field values, validating each supplied value
// through its field's Spec. Keys may name flattened fields or groups; a group
// value is a map of its members, a packet, or raw bits for the opaque group.
// Missing fields stay unspecified so defaults are computed when read.
func (s *Schema) Normalise(values map[string]any) (*Packet, error) {
	p := s.Empty()
	flat := make(map[string]any, len(values))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		if !s.IsGroup(k) {
			if _, ok := s.index[k]; !ok {
				return nil, p.unknown(k)
			}
			flat[k] = v
			continue
		}
		members, isMap := v.(map[string]any)
		if !isMap || k == s.opaqueGroup {
			if err := p.Set(k, v); err != nil {
				return nil, err
			}
			continue
		}
		for mk, mv := range members {
			if s.nameToGroup[mk] != k {
				return nil, p.unknown(k + "." + mk)
			}
			flat[mk] = mv
		}
	}

	for i, name := range s.allNames {
		v, ok := flat[name]
		if !ok {
			continue
		}
		if isState(v) {
			p.slots[i] = slotOf(v)
			continue
		}
		t := s.allTypes[i]
		out, err := t.Spec(p, false, true).Normalise(v)
		if err != nil {
			return nil, located(err, s, name, t)
		}
		p.slots[i] = slotOf(out)
	}
	return p, nil
}

// MustNormalise is like Normalise but panics on error.
func (s *Schema) MustNormalise(values map[string]any) *Packet {
	p, err := s.Normalise(values)
	if err != nil {
		panic(err)
	}
	return p
}

// Schema returns the packet's schema.
func (p *Packet) Schema() *Schema { return p.schema }

// Has reports whether name is a field, a group, or "group.member".
func (p *Packet) Has(name string) bool { return p.schema.Has(name) }

func (p *Packet) unknown(name string) error {
	return &Error{
		Kind:    KindConversion,
		Message: fmt.Sprintf("%s has no field %q", p.schema.name, name),
		Err:     ErrUnknownField,
	}
}

// Actual returns the stored value of a field without running its Spec:
// Unspecified or Omitted when absent, the Deferred function when deferred. For
// a group it returns a packet of the stored member values, and for the opaque
// group its bits.
func (p *Packet) Actual(name string) any {
	if p.schema.IsGroup(name) {
		if name == p.schema.opaqueGroup {
			return p.payload
		}
		gs := p.schema.groupSchemas[name]
		sub := gs.Empty()
		for j, member := range gs.allNames {
			sub.slots[j] = p.slots[p.schema.index[member]]
		}
		return sub
	}
	i, ok := p.schema.index[name]
	if !ok {
		return Unspecified
	}
	return p.slots[i].raw()
}

// Get returns the value of a field or group normalised for use.
func (p *Packet) Get(name string) (any, error) {
	return p.Value(name, ValueOptions{})
}

// MustGet is like Get but panics on error.
func (p *Packet) MustGet(name string) any {
	v, err := p.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Value reads a field or group with explicit options.
func (p *Packet) Value(name string, o ValueOptions) (any, error) {
	if p.schema.IsGroup(name) {
		return p.group(name, o)
	}
	i, ok := p.schema.index[name]
	if !ok {
		return nil, p.unknown(name)
	}
	t := p.schema.allTypes[i]

	v := p.slots[i].raw()
	if fn, ok := asDeferred(v); ok && t.callable {
		resolved, err := fn(p, o.Serial)
		if err != nil {
			return nil, located(err, p.schema, name, t)
		}
		v = resolved
	}

	out, err := t.Spec(p, !o.Packing, !o.Packing && !o.Untransformed).Normalise(v)
	if err != nil {
		return nil, located(err, p.schema, name, t)
	}
	if b, ok := out.(bits.Bits); ok && !o.KeepBits {
		out = b.Bytes()
	}
	return out, nil
}

func (p *Packet) group(name string, o ValueOptions) (any, error) {
	if name == p.schema.opaqueGroup {
		if o.KeepBits {
			return p.payload, nil
		}
		return p.payload.Bytes(), nil
	}
	gs := p.schema.groupSchemas[name]
	sub := gs.Empty()
	for j, member := range gs.allNames {
		sl := p.slots[p.schema.index[member]]
		if sl.state == Unspecified {
			v, err := p.Value(member, ValueOptions{Packing: true, Serial: o.Serial, KeepBits: true})
			if err != nil {
				return nil, err
			}
			sl = slotOf(v)
		}
		sub.slots[j] = sl
	}
	return sub, nil
}

// Set writes a field or group.
//
// A field value has the field's transform applied before it is stored. A
// group accepts Unspecified (clearing every member), a packet of the group's
// own schema (copied raw), or a map or packet whose entries are written one by
// one. The opaque group accepts only hex text, bytes or bits.
func (p *Packet) Set(name string, v any) error {
	if p.schema.IsGroup(name) {
		return p.setGroup(name, v)
	}
	i, ok := p.schema.index[name]
	if !ok {
		return p.unknown(name)
	}
	t := p.schema.allTypes[i]
	if isDeferred(v) && !t.callable {
		return located(conversionError("field does not accept deferred values", nil), p.schema, name, t)
	}
	if t.transform != nil && !isState(v) && !isDeferred(v) {
		out, err := t.transform(p, v)
		if err != nil {
			return located(err, p.schema, name, t)
		}
		v = out
	}
	p.slots[i] = slotOf(v)
	return nil
}

func (p *Packet) setGroup(name string, v any) error {
	if name == p.schema.opaqueGroup {
		switch val := v.(type) {
		case State:
			p.payload = bits.Bits{}
			return nil
		case string, []byte, bits.Bits:
			b, err := toBits(val)
			if err != nil {
				return err
			}
			p.payload = b
			return nil
		}
		return &Error{
			Kind:    KindConversion,
			Message: "opaque payload accepts only hex text, bytes or bits",
			Field:   name,
			Value:   fmt.Sprintf("%T", v),
		}
	}

	gs := p.schema.groupSchemas[name]
	members := p.schema.groups[name]
	switch val := v.(type) {
	case State:
		for _, m := range members {
			p.slots[p.schema.index[m]] = slotOf(val)
		}
		return nil
	case *Packet:
		if val.schema == gs {
			for j, m := range members {
				p.slots[p.schema.index[m]] = val.slots[j]
			}
			return nil
		}
		for _, m := range members {
			if _, ok := val.schema.index[m]; !ok {
				continue
			}
			item, err := val.Get(m)
			if err != nil {
				return err
			}
			if err := p.Set(m, item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for k := range val {
			if p.schema.nameToGroup[k] != name {
				return p.unknown(name + "." + k)
			}
		}
		for _, m := range members {
			if item, ok := val[m]; ok {
				if err := p.Set(m, item); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return &Error{
		Kind:    KindConversion,
		Message: "group value must be a map or a packet",
		Field:   name,
		Value:   fmt.Sprintf("%T", v),
	}
}

// Clone returns a shallow copy of p with overrides written through Set.
func (p *Packet) Clone(overrides map[string]any) (*Packet, error) {
	c := &Packet{
		schema:  p.schema,
		slots:   append([]slot(nil), p.slots...),
		payload: p.payload,
	}
	for k := range overrides {
		if !p.schema.IsGroup(k) {
			if _, ok := p.schema.index[k]; !ok {
				return nil, p.unknown(k)
			}
		}
	}
	for _, f := range p.schema.fields {
		if v, ok := overrides[f.Name]; ok {
			if err := c.Set(f.Name, v); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range p.schema.allNames {
		if p.schema.nameToGroup[name] == "" {
			continue
		}
		if v, ok := overrides[name]; ok {
			if err := c.Set(name, v); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// IsDynamic reports whether any field currently holds a Deferred value.
func (p *Packet) IsDynamic() bool {
	for _, s := range p.slots {
		if s.state == Present && s.fn != nil {
			return true
		}
	}
	return false
}

// SizeBits returns the packed width of p.
func (p *Packet) SizeBits() (int, error) {
	return p.schema.SizeBits(p)
}

// Payload returns the opaque payload bits.
func (p *Packet) Payload() bits.Bits { return p.payload }

// Is reports whether p is a packet of s, comparing protocol and packet type
// numbers. Stored values are preferred to computing defaults.
func (p *Packet) Is(s *Schema) bool {
	if p.schema == s {
		return true
	}
	wantType, ok := s.Type()
	if !ok {
		return false
	}
	if wantProto, ok := s.Protocol(); ok {
		proto, known := p.number("protocol", p.schema.protocol, p.schema.hasProtocol)
		if !known || proto != wantProto {
			return false
		}
	}
	pktType, known := p.number("pkt_type", p.schema.pktType, p.schema.hasType)
	return known && pktType == wantType
}

func (p *Packet) number(name string, fallback uint16, hasFallback bool) (uint16, bool) {
	if i, ok := p.schema.index[name]; ok {
		if u, ok := toUint64(p.slots[i].raw()); ok {
			return uint16(u), true
		}
	}
	if hasFallback {
		return fallback, true
	}
	v, err := p.Value(name, ValueOptions{Packing: true})
	if err != nil {
		return 0, false
	}
	u, ok := toUint64(v)
	return uint16(u), ok
}

// Simplify folds a packet specialised from a parent schema back into the
// parent. Every parent field is read with defaults and transforms resolved for
// serial, and the specialised payload fields are packed into the parent's
// opaque payload. Packets without a parent are returned unchanged.
func (p *Packet) Simplify(serial string) (*Packet, error) {
	parent := p.schema.parent
	if parent == nil {
		return p, nil
	}
	out := parent.Empty()
	for i, name := range parent.allNames {
		v, err := p.Value(name, ValueOptions{Packing: true, Serial: serial, KeepBits: true})
		if err != nil {
			return nil, fmt.Errorf("simplify %s: %w", p.schema.name, err)
		}
		out.slots[i] = slotOf(v)
	}
	payload, err := p.packNames(p.schema.groups[parent.parentPayload], serial)
	if err != nil {
		return nil, fmt.Errorf("simplify %s: %w", p.schema.name, err)
	}
	out.payload = payload
	return out, nil
}
