package packet

import (
	"fmt"
	"sort"
)

// Field declares one entry of a schema: a scalar Type or a nested group.
type Field struct {
	Name  string
	Type  Type
	Group *Schema
	// Ref names a nested schema supplied with WithNested, so a specialised
	// schema can replace just that group.
	Ref string
}

// F declares a scalar field.
func F(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

// G declares a group whose members are the fields of s.
func G(name string, s *Schema) Field {
	return Field{Name: name, Group: s}
}

// Ref declares a group whose schema is looked up by key in the nested table.
func Ref(name, key string) Field {
	return Field{Name: name, Ref: key}
}

// IsGroup reports whether the field declares a group.
func (f Field) IsGroup() bool {
	return f.Group != nil || f.Ref != ""
}

// Option configures Build.
type Option func(*Schema)

// WithNested registers a nested schema that Ref fields can name.
func WithNested(key string, nested *Schema) Option {
	return func(s *Schema) {
		s.nested[key] = nested
	}
}

// AsParent marks the schema as a frame whose opaque payload group is packed
// verbatim after the other fields.
func AsParent(payloadGroup string) Option {
	return func(s *Schema) {
		s.isParent = true
		s.parentPayload = payloadGroup
	}
}

// WithProtocol records the protocol number of packets of this schema.
func WithProtocol(protocol uint16) Option {
	return func(s *Schema) {
		s.protocol = protocol
		s.hasProtocol = true
	}
}

// WithType records the packet type number of packets of this schema.
func WithType(pktType uint16) Option {
	return func(s *Schema) {
		s.pktType = pktType
		s.hasType = true
	}
}

// reservedNames are accessor names of Packet that fields may not shadow.
var reservedNames = map[string]bool{
	"actual":     true,
	"as_dict":    true,
	"clone":      true,
	"get":        true,
	"has":        true,
	"is_dynamic": true,
	"normalise":  true,
	"pack":       true,
	"schema":     true,
	"set":        true,
	"simplify":   true,
	"size_bits":  true,
	"unpack":     true,
}

// Schema is the immutable layout of one packet shape.
type Schema struct {
	name     string
	original []Field
	fields   []Field
	nested   map[string]*Schema

	groups       map[string][]string
	groupSchemas map[string]*Schema
	nameToGroup  map[string]string
	allNames     []string
	allTypes     []Type
	index        map[string]int

	opaqueGroup   string
	isParent      bool
	parentPayload string
	parent        *Schema

	protocol    uint16
	hasProtocol bool
	pktType     uint16
	hasType     bool
}

// Build flattens a field declaration into a Schema.
//
// Group members are flattened into the owner in declaration order. Flattened
// names must be unique and must not collide with Packet accessor names. A group
// with no fields is the opaque payload; at most one is allowed.
func Build(name string, fields []Field, opts ...Option) (*Schema, error) {
	s := &Schema{
		name:         name,
		original:     append([]Field(nil), fields...),
		nested:       make(map[string]*Schema),
		groups:       make(map[string][]string),
		groupSchemas: make(map[string]*Schema),
		nameToGroup:  make(map[string]string),
		index:        make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	var names []string
	for _, f := range fields {
		if f.Name == "" {
			return nil, schemaError(fmt.Sprintf("%s: field declared without a name", name), nil)
		}
		names = append(names, f.Name)

		if !f.IsGroup() {
			if f.Type.err != nil {
				return nil, f.Type.err
			}
			if f.Type.name == "" {
				return nil, schemaError(fmt.Sprintf("%s: field %s has no type", name, f.Name), nil)
			}
			s.fields = append(s.fields, f)
			s.appendField(f.Name, f.Type, "")
			continue
		}

		group := f.Group
		if f.Ref != "" {
			group = s.nested[f.Ref]
			if group == nil {
				return nil, schemaError(fmt.Sprintf("%s: group %s refers to unknown nested schema %q", name, f.Name, f.Ref), nil)
			}
		}
		s.fields = append(s.fields, Field{Name: f.Name, Group: group, Ref: f.Ref})
		s.groupSchemas[f.Name] = group
		s.groups[f.Name] = append([]string(nil), group.allNames...)
		if len(group.allNames) == 0 {
			if s.opaqueGroup != "" {
				return nil, schemaError(fmt.Sprintf("%s: more than one opaque group", name), []string{s.opaqueGroup, f.Name})
			}
			s.opaqueGroup = f.Name
		}
		for i, member := range group.allNames {
			names = append(names, member)
			s.appendField(member, group.allTypes[i], f.Name)
		}
	}

	if dups := duplicates(names); len(dups) > 0 {
		return nil, schemaError(fmt.Sprintf("%s: duplicate field names", name), dups)
	}

	var collisions []string
	for _, n := range names {
		if reservedNames[n] {
			collisions = append(collisions, n)
		}
	}
	if len(collisions) > 0 {
		return nil, schemaError(fmt.Sprintf("%s: field names collide with packet accessors", name), collisions)
	}

	if s.isParent && s.parentPayload != s.opaqueGroup {
		return nil, schemaError(fmt.Sprintf("%s: parent payload %q must be an empty group", name, s.parentPayload), nil)
	}
	return s, nil
}

// MustBuild is like Build but panics on error. It is meant for package level
// schema declarations.
func MustBuild(name string, fields []Field, opts ...Option) *Schema {
	s, err := Build(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) appendField(name string, t Type, group string) {
	if _, exists := s.index[name]; !exists {
		s.index[name] = len(s.allNames)
	}
	s.allNames = append(s.allNames, name)
	s.allTypes = append(s.allTypes, t)
	if group != "" {
		s.nameToGroup[name] = group
	}
}

func duplicates(names []string) []string {
	seen := make(map[string]int, len(names))
	for _, n := range names {
		seen[n]++
	}
	var out []string
	for n, count := range seen {
		if count > 1 {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Specialize rebuilds the original declaration with some nested schemas
// replaced. Keys of nested name either a group field or a Ref key. When s is
// a parent schema the result remembers s as its parent for Simplify.
func (s *Schema) Specialize(name string, nested map[string]*Schema, opts ...Option) (*Schema, error) {
	fields := make([]Field, len(s.original))
	for i, f := range s.original {
		if repl, ok := nested[f.Name]; ok && f.IsGroup() {
			f = Field{Name: f.Name, Group: repl}
		}
		fields[i] = f
	}

	all := []Option{func(child *Schema) {
		for k, v := range s.nested {
			child.nested[k] = v
		}
		for k, v := range nested {
			child.nested[k] = v
		}
		child.protocol, child.hasProtocol = s.protocol, s.hasProtocol
		if s.isParent {
			child.parent = s
		}
	}}
	child, err := Build(name, fields, append(all, opts...)...)
	if err != nil {
		return nil, err
	}
	return child, nil
}

// MustSpecialize is like Specialize but panics on error.
func (s *Schema) MustSpecialize(name string, nested map[string]*Schema, opts ...Option) *Schema {
	child, err := s.Specialize(name, nested, opts...)
	if err != nil {
		panic(err)
	}
	return child
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Fields returns the resolved top-level declaration.
func (s *Schema) Fields() []Field { return append([]Field(nil), s.fields...) }

// OriginalFields returns the declaration as given to Build.
func (s *Schema) OriginalFields() []Field { return append([]Field(nil), s.original...) }

// AllNames returns the flattened field names in packing order.
func (s *Schema) AllNames() []string { return append([]string(nil), s.allNames...) }

// FieldType returns the type of a flattened field.
func (s *Schema) FieldType(name string) (Type, bool) {
	i, ok := s.index[name]
	if !ok {
		return Type{}, false
	}
	return s.allTypes[i], true
}

// GroupMembers returns the member names of a group.
func (s *Schema) GroupMembers(group string) ([]string, bool) {
	members, ok := s.groups[group]
	return append([]string(nil), members...), ok
}

// GroupSchema returns the nested schema of a group.
func (s *Schema) GroupSchema(group string) (*Schema, bool) {
	g, ok := s.groupSchemas[group]
	return g, ok
}

// GroupOf returns the group owning a flattened field, or "" at top level.
func (s *Schema) GroupOf(name string) string { return s.nameToGroup[name] }

// IsGroup reports whether name is a group of this schema.
func (s *Schema) IsGroup(name string) bool {
	_, ok := s.groups[name]
	return ok
}

// OpaqueGroup returns the name of the group stored as raw bits, if any.
func (s *Schema) OpaqueGroup() string { return s.opaqueGroup }

// IsParent reports whether the opaque payload is packed after the fields.
func (s *Schema) IsParent() bool { return s.isParent }

// Parent returns the parent schema this one was specialised from.
func (s *Schema) Parent() *Schema { return s.parent }

// Protocol returns the protocol number, if recorded.
func (s *Schema) Protocol() (uint16, bool) { return s.protocol, s.hasProtocol }

// Type returns the packet type number, if recorded.
func (s *Schema) Type() (uint16, bool) { return s.pktType, s.hasType }

// Has reports whether name is a field, a group, or "group.member".
func (s *Schema) Has(name string) bool {
	if _, ok := s.index[name]; ok {
		return true
	}
	if s.IsGroup(name) {
		return true
	}
	for group, members := range s.groups {
		for _, m := range members {
			if group+"."+m == name {
				return true
			}
		}
	}
	return false
}

// FixedSizeBits returns the packed width when every field has a static size.
func (s *Schema) FixedSizeBits() (int, error) {
	total := 0
	for i, t := range s.allTypes {
		if !t.static() {
			return 0, schemaError(fmt.Sprintf("%s: field %s has a dynamic size", s.name, s.allNames[i]), nil)
		}
		total += t.size
	}
	return total, nil
}

// SizeBits returns the packed width of p, including a parent's payload.
func (s *Schema) SizeBits(p *Packet) (int, error) {
	total := 0
	for i, t := range s.allTypes {
		n, err := t.SizeBits(p)
		if err != nil {
			return 0, located(err, s, s.allNames[i], t)
		}
		total += n
	}
	if s.isParent && p != nil {
		total += p.payload.Len()
	}
	return total, nil
}

// String returns the schema name.
func (s *Schema) String() string { return s.name }
