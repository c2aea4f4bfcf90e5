package typetree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedSchema     = errors.New("malformed schema")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrCircularSchema      = errors.New("circular schema")
	ErrUnsupportedField    = errors.New("unsupported field")
)

// MalformedSchemaError reports a definition element missing a required
// attribute or carrying an unknown kind.
type MalformedSchemaError struct {
	Line    int
	Element string
	Reason  string
}

func (e *MalformedSchemaError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Element, e.Reason)
}

func (e *MalformedSchemaError) Unwrap() error { return ErrMalformedSchema }

func malformed(n *Node, format string, args ...any) error {
	return &MalformedSchemaError{Line: n.Line, Element: n.describe(), Reason: fmt.Sprintf(format, args...)}
}

// UnresolvedReferenceError reports a pointer or global reference to a
// top-level type that no loaded document defines.
type UnresolvedReferenceError struct {
	Field  string
	Target string
	Line   int
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("line %d: %s: unknown type %q", e.Line, e.Field, e.Target)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolvedReference }

// CircularSchemaError reports a by-value reference chain leading back to
// the type being compiled.
type CircularSchemaError struct {
	Chain []string
}

func (e *CircularSchemaError) Error() string {
	return "by-value reference cycle: " + strings.Join(e.Chain, " -> ")
}

func (e *CircularSchemaError) Unwrap() error { return ErrCircularSchema }

// UnsupportedFieldError reports a field that has no mapping to the
// serialization schema. Such fields must be covered by an ignore rule.
type UnsupportedFieldError struct {
	Field  string
	Line   int
	Reason string
}

func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Reason)
}

func (e *UnsupportedFieldError) Unwrap() error { return ErrUnsupportedField }

// Unsupported builds an UnsupportedFieldError for n.
func Unsupported(n *Node, format string, args ...any) error {
	return &UnsupportedFieldError{Field: n.String(), Line: n.Line, Reason: fmt.Sprintf(format, args...)}
}

// Malformed builds a MalformedSchemaError for n.
func Malformed(n *Node, format string, args ...any) error {
	return malformed(n, format, args...)
}
