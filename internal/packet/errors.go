package packet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorises codec errors.
type ErrorKind int

const (
	// KindSchema indicates a malformed schema declaration.
	KindSchema ErrorKind = iota
	// KindConversion indicates a value that could not be normalised for a field.
	KindConversion
	// KindPacking indicates a failure while converting to or from bits.
	KindPacking
	// KindLookup indicates an unknown protocol or packet type.
	KindLookup
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindSchema:
		return "Schema Error"
	case KindConversion:
		return "Conversion Error"
	case KindPacking:
		return "Packing Error"
	case KindLookup:
		return "Lookup Error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Sentinel causes wrapped by Error.
var (
	ErrNotSpecified = errors.New("value not specified")
	ErrUnknownField = errors.New("unknown field")
	ErrTruncated    = errors.New("buffer too short")
)

// Error describes a codec failure and the field it happened on.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string   // Flattened field name, if any
	Group   string   // Owning group, if any
	Type    string   // Declared type description
	Value   any      // Offending value
	Names   []string // Duplicated or colliding names, or known alternatives
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Field != "" {
		fmt.Fprintf(&b, " (field=%s", e.Field)
		if e.Group != "" {
			fmt.Fprintf(&b, ", group=%s", e.Group)
		}
		if e.Type != "" {
			fmt.Fprintf(&b, ", type=%s", e.Type)
		}
		b.WriteString(")")
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " value=%v", e.Value)
	}
	if len(e.Names) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Names, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func schemaError(msg string, names []string) *Error {
	return &Error{Kind: KindSchema, Message: msg, Names: names}
}

func conversionError(msg string, v any) *Error {
	return &Error{Kind: KindConversion, Message: msg, Value: v}
}

// located returns err with the field context filled in when it is a codec
// error that does not carry one yet. The error passed in is left untouched.
func located(err error, s *Schema, name string, t Type) error {
	var e *Error
	if !errors.As(err, &e) {
		return &Error{
			Kind:    KindConversion,
			Message: "failed to normalise value",
			Field:   name,
			Group:   s.nameToGroup[name],
			Type:    t.String(),
			Err:     err,
		}
	}
	if e.Field != "" {
		return err
	}
	if err != error(e) {
		// Wrapped by element or member context; keep that text as the cause.
		return &Error{
			Kind:    e.Kind,
			Message: "invalid value",
			Field:   name,
			Group:   s.nameToGroup[name],
			Type:    t.String(),
			Err:     err,
		}
	}
	c := *e
	c.Field = name
	c.Group = s.nameToGroup[name]
	c.Type = t.String()
	return &c
}

func kindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsSchemaError checks if an error is a schema definition error
func IsSchemaError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindSchema
}

// IsConversionError checks if an error is a value conversion error
func IsConversionError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConversion
}

// IsPackingError checks if an error happened while packing or unpacking
func IsPackingError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindPacking
}

// IsLookupError checks if an error is a registry lookup error
func IsLookupError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindLookup
}
