package packet

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/muurk/lumen/internal/bits"
)

// AsDict renders the packet as nested maps. Group members are nested under
// their group, sub-structures become maps and lists of maps, and omitted
// optional fields are left out. With transformed set values are untransformed
// for use; otherwise they are left in their stored form.
func (p *Packet) AsDict(transformed bool) (map[string]any, error) {
	out := make(map[string]any)
	err := p.walk(transformed, func(group, name string, v any) {
		if group == "" {
			out[name] = v
			return
		}
		g, ok := out[group].(map[string]any)
		if !ok {
			g = make(map[string]any)
			out[group] = g
		}
		g[name] = v
	}, plainValue)
	return out, err
}

type entry struct {
	key string
	val any
}

// orderedMap marshals its entries in declaration order.
type orderedMap []entry

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.val)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m orderedMap) plain() map[string]any {
	out := make(map[string]any, len(m))
	for _, e := range m {
		switch v := e.val.(type) {
		case orderedMap:
			out[e.key] = v.plain()
		case []any:
			items := make([]any, len(v))
			for i, item := range v {
				if om, ok := item.(orderedMap); ok {
					items[i] = om.plain()
				} else {
					items[i] = item
				}
			}
			out[e.key] = items
		default:
			out[e.key] = v
		}
	}
	return out
}

func (p *Packet) display() (orderedMap, error) {
	var out orderedMap
	groups := make(map[string]int)
	err := p.walk(true, func(group, name string, v any) {
		if group == "" {
			out = append(out, entry{key: name, val: v})
			return
		}
		i, ok := groups[group]
		if !ok {
			i = len(out)
			groups[group] = i
			out = append(out, entry{key: group, val: orderedMap{}})
		}
		g, _ := out[i].val.(orderedMap)
		out[i].val = append(g, entry{key: name, val: v})
	}, displayValue)
	return out, err
}

// walk visits every rendered field in declaration order.
func (p *Packet) walk(transformed bool, visit func(group, name string, v any), conv func(any) (any, error)) error {
	for _, f := range p.schema.fields {
		if !f.IsGroup() {
			if err := p.visitField("", f.Name, transformed, visit, conv); err != nil {
				return err
			}
			continue
		}
		if f.Name == p.schema.opaqueGroup {
			v, err := conv(p.payload)
			if err != nil {
				return err
			}
			visit("", f.Name, v)
			continue
		}
		for _, member := range p.schema.groups[f.Name] {
			if err := p.visitField(f.Name, member, transformed, visit, conv); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Packet) visitField(group, name string, transformed bool, visit func(group, name string, v any), conv func(any) (any, error)) error {
	v, err := p.Value(name, ValueOptions{Untransformed: !transformed})
	if err != nil {
		return err
	}
	if v == Omitted {
		return nil
	}
	out, err := conv(v)
	if err != nil {
		return err
	}
	visit(group, name, out)
	return nil
}

func plainValue(v any) (any, error) {
	switch val := v.(type) {
	case State:
		return nil, nil
	case bits.Bits:
		return val.Bytes(), nil
	case *Packet:
		return val.AsDict(true)
	case []*Packet:
		out := make([]any, len(val))
		for i, el := range val {
			d, err := el.AsDict(true)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	}
	return v, nil
}

func displayValue(v any) (any, error) {
	switch val := v.(type) {
	case State:
		return nil, nil
	case []byte:
		return hex.EncodeToString(val), nil
	case bits.Bits:
		return val.Hex(), nil
	case Member:
		return val.String(), nil
	case UnknownEnum:
		return val.String(), nil
	case []Member:
		out := make([]string, len(val))
		for i, m := range val {
			out[i] = m.String()
		}
		return out, nil
	case *Packet:
		return val.display()
	case []*Packet:
		out := make([]any, len(val))
		for i, el := range val {
			d, err := el.display()
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	}
	return v, nil
}

// DisplayDict renders the packet like AsDict(true) with bytes as lowercase hex
// and enum members as their display text.
func (p *Packet) DisplayDict() (map[string]any, error) {
	d, err := p.display()
	if err != nil {
		return nil, err
	}
	return d.plain(), nil
}

// MarshalJSON renders the display form in declaration order.
func (p *Packet) MarshalJSON() ([]byte, error) {
	d, err := p.display()
	if err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// cborMode sorts map keys so equal packets encode to equal bytes.
var cborMode, _ = cbor.CanonicalEncOptions().EncMode()

// MarshalCBOR renders the display form as canonical CBOR.
func (p *Packet) MarshalCBOR() ([]byte, error) {
	d, err := p.DisplayDict()
	if err != nil {
		return nil, err
	}
	return cborMode.Marshal(d)
}

// String renders the packet as JSON text.
func (p *Packet) String() string {
	b, err := p.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", p.schema.name, err)
	}
	return fmt.Sprintf("<%s %s>", p.schema.name, b)
}

// DisplayEntry is one rendered field of a packet.
type DisplayEntry struct {
	Group string
	Name  string
	Value any
}

// DisplayEntries lists the display form field by field in declaration order.
// Sub-structures are left as values that marshal to JSON.
func (p *Packet) DisplayEntries() ([]DisplayEntry, error) {
	var out []DisplayEntry
	err := p.walk(true, func(group, name string, v any) {
		out = append(out, DisplayEntry{Group: group, Name: name, Value: v})
	}, displayValue)
	return out, err
}
