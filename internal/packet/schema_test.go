package packet

import (
	"errors"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func schemaNames(t *testing.T, err error) []string {
	t.Helper()
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if e.Kind != KindSchema {
		t.Fatalf("Kind = %v, want %v", e.Kind, KindSchema)
	}
	return e.Names
}

func TestBuildFlattensGroups(t *testing.T) {
	inner := MustBuild("Inner", []Field{F("a", Uint8), F("b", Uint16)})
	s, err := Build("Outer", []Field{
		F("first", Bool),
		G("pair", inner),
		F("last", Uint32),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if diff := pretty.Compare([]string{"first", "a", "b", "last"}, s.AllNames()); diff != "" {
		t.Errorf("AllNames() diff (-want +got):\n%s", diff)
	}
	if got := s.GroupOf("b"); got != "pair" {
		t.Errorf("GroupOf(b) = %q, want pair", got)
	}
	if got := s.GroupOf("last"); got != "" {
		t.Errorf("GroupOf(last) = %q, want empty", got)
	}
	for _, name := range []string{"first", "pair", "a", "pair.a"} {
		if !s.Has(name) {
			t.Errorf("Has(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"missing", "pair.last", "last.a"} {
		if s.Has(name) {
			t.Errorf("Has(%q) = true, want false", name)
		}
	}
	n, err := s.FixedSizeBits()
	if err != nil {
		t.Fatalf("FixedSizeBits() error = %v", err)
	}
	if n != 1+8+16+32 {
		t.Errorf("FixedSizeBits() = %d, want 57", n)
	}
}

func TestBuildRejectsDuplicates(t *testing.T) {
	inner := MustBuild("Inner", []Field{F("a", Uint8), F("b", Uint8)})

	tests := []struct {
		name   string
		fields []Field
		want   []string
	}{
		{
			name:   "member shadows field",
			fields: []Field{G("g", inner), F("a", Uint8)},
			want:   []string{"a"},
		},
		{
			name:   "group shadows field",
			fields: []Field{G("b", MustBuild("Other", []Field{F("c", Uint8)})), F("b", Uint8)},
			want:   []string{"b"},
		},
		{
			name:   "same group twice",
			fields: []Field{G("one", inner), G("two", inner)},
			want:   []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("Broken", tt.fields)
			if err == nil {
				t.Fatal("Build() error = nil, want duplicate error")
			}
			if diff := pretty.Compare(tt.want, schemaNames(t, err)); diff != "" {
				t.Errorf("Names diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildRejectsReservedNames(t *testing.T) {
	_, err := Build("Broken", []Field{F("pack", Uint8), F("ok", Uint8), F("clone", Uint8)})
	if err == nil {
		t.Fatal("Build() error = nil, want collision error")
	}
	if diff := pretty.Compare([]string{"pack", "clone"}, schemaNames(t, err)); diff != "" {
		t.Errorf("Names diff (-want +got):\n%s", diff)
	}
}

func TestBuildOpaqueGroups(t *testing.T) {
	empty := MustBuild("Empty", nil)

	s, err := Build("Frame", []Field{F("kind", Uint8), G("payload", empty)}, AsParent("payload"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if s.OpaqueGroup() != "payload" || !s.IsParent() {
		t.Errorf("OpaqueGroup() = %q, IsParent() = %v", s.OpaqueGroup(), s.IsParent())
	}

	if _, err := Build("Twice", []Field{G("one", empty), G("two", empty)}); !IsSchemaError(err) {
		t.Errorf("two opaque groups error = %v, want schema error", err)
	}
	if _, err := Build("NoPayload", []Field{F("kind", Uint8)}, AsParent("payload")); !IsSchemaError(err) {
		t.Errorf("missing parent payload error = %v, want schema error", err)
	}
	if _, err := Build("BadRef", []Field{Ref("payload", "nowhere")}); !IsSchemaError(err) {
		t.Errorf("unknown ref error = %v, want schema error", err)
	}
	if _, err := Build("NoType", []Field{{Name: "x"}}); !IsSchemaError(err) {
		t.Errorf("untyped field error = %v, want schema error", err)
	}
}

func TestSpecializeReplacesNestedGroup(t *testing.T) {
	empty := MustBuild("Empty", nil)
	frame := MustBuild("Frame",
		[]Field{F("kind", Uint8), Ref("payload", "body")},
		WithNested("body", empty), AsParent("payload"), WithProtocol(7),
	)
	body := MustBuild("Body", []Field{F("level", Uint16)})

	child, err := frame.Specialize("Level", map[string]*Schema{"body": body}, WithType(3))
	if err != nil {
		t.Fatalf("Specialize() error = %v", err)
	}
	if diff := pretty.Compare([]string{"kind", "level"}, child.AllNames()); diff != "" {
		t.Errorf("AllNames() diff (-want +got):\n%s", diff)
	}
	if child.Parent() != frame {
		t.Error("Parent() is not the frame schema")
	}
	if child.IsParent() || child.OpaqueGroup() != "" {
		t.Error("specialised schema should not keep an opaque payload")
	}
	if proto, ok := child.Protocol(); !ok || proto != 7 {
		t.Errorf("Protocol() = %d, %v, want 7", proto, ok)
	}
	if typ, ok := child.Type(); !ok || typ != 3 {
		t.Errorf("Type() = %d, %v, want 3", typ, ok)
	}
	if _, ok := frame.Type(); ok {
		t.Error("frame schema should not gain a type")
	}

	byName, err := frame.Specialize("Level2", map[string]*Schema{"payload": body})
	if err != nil {
		t.Fatalf("Specialize() by field name error = %v", err)
	}
	if !byName.Has("payload.level") {
		t.Error("Specialize() by field name did not replace the payload group")
	}
}

func TestFixedSizeBitsRejectsDynamicWidth(t *testing.T) {
	s := MustBuild("Sized", []Field{
		F("length", Uint8),
		F("data", Bytes(0).SizedBy(func(p *Packet) (int, error) { return 8, nil })),
	})
	if _, err := s.FixedSizeBits(); !IsSchemaError(err) {
		t.Errorf("FixedSizeBits() error = %v, want schema error", err)
	}
}
