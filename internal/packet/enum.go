package packet

import (
	"fmt"
	"strings"
)

// Enum is a named set of integer constants used by enum and bitmask fields.
type Enum struct {
	name    string
	members []Member
}

// Member is one constant of an Enum.
type Member struct {
	enum  *Enum
	Name  string
	Value int64
}

// UnknownEnum carries a wire value that matches no member of an enum that
// allows unknown values.
type UnknownEnum struct {
	Enum  *Enum
	Value int64
}

// EnumValue declares a member for NewEnum.
func EnumValue(name string, value int64) Member {
	return Member{Name: name, Value: value}
}

// NewEnum creates an enum from members in declaration order.
func NewEnum(name string, members ...Member) *Enum {
	e := &Enum{name: name, members: make([]Member, len(members))}
	for i, m := range members {
		m.enum = e
		e.members[i] = m
	}
	return e
}

// Name returns the enum name.
func (e *Enum) Name() string { return e.name }

// Members returns the members in declaration order.
func (e *Enum) Members() []Member {
	out := make([]Member, len(e.members))
	copy(out, e.members)
	return out
}

// Member returns the member with the given name.
func (e *Enum) Member(name string) (Member, bool) {
	for _, m := range e.members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// MustMember is like Member but panics when the name is unknown.
func (e *Enum) MustMember(name string) Member {
	m, ok := e.Member(name)
	if !ok {
		panic(fmt.Sprintf("enum %s has no member %q", e.name, name))
	}
	return m
}

// ByValue returns the first member with the given value.
func (e *Enum) ByValue(v int64) (Member, bool) {
	for _, m := range e.members {
		if m.Value == v {
			return m, true
		}
	}
	return Member{}, false
}

func (e *Enum) available() []string {
	out := make([]string, len(e.members))
	for i, m := range e.members {
		out[i] = fmt.Sprintf("%s(%d)", m.Name, m.Value)
	}
	return out
}

// resolve finds the member named by v: the member itself, its name, its
// display text or its value.
func (e *Enum) resolve(v any) (Member, error) {
	switch val := v.(type) {
	case Member:
		if val.enum == e {
			return val, nil
		}
		return Member{}, e.badValue("member belongs to a different enum", v)
	case string:
		for _, m := range e.members {
			if val == m.Name || val == m.String() || val == e.name+"."+m.Name {
				return m, nil
			}
		}
		return Member{}, e.badValue("value is not a valid enum name", v)
	}
	if n, ok := toInt64(v); ok {
		if m, found := e.ByValue(n); found {
			return m, nil
		}
		return Member{}, e.badValue("value is not a valid enum value", v)
	}
	return Member{}, e.badValue("value cannot be converted to an enum member", v)
}

func (e *Enum) badValue(msg string, v any) *Error {
	err := conversionError(msg, v)
	err.Names = e.available()
	return err
}

// Enum returns the enum the member belongs to.
func (m Member) Enum() *Enum { return m.enum }

// String renders the member as <Enum.NAME: value>.
func (m Member) String() string {
	name := "?"
	if m.enum != nil {
		name = m.enum.name
	}
	return fmt.Sprintf("<%s.%s: %d>", name, m.Name, m.Value)
}

// String renders the unknown value.
func (u UnknownEnum) String() string {
	name := "?"
	if u.Enum != nil {
		name = u.Enum.name
	}
	return fmt.Sprintf("<%s.UNKNOWN: %d>", name, u.Value)
}

// parseUnknown recognises the display text of an UnknownEnum.
func (e *Enum) parseUnknown(s string) (UnknownEnum, bool) {
	prefix := "<" + e.name + ".UNKNOWN: "
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, ">") {
		return UnknownEnum{}, false
	}
	var n int64
	if _, err := fmt.Sscanf(strings.TrimSuffix(strings.TrimPrefix(s, prefix), ">"), "%d", &n); err != nil {
		return UnknownEnum{}, false
	}
	return UnknownEnum{Enum: e, Value: n}, true
}
