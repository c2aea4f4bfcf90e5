package generator

import "fmt"

// TypeError is the failure of one top-level type. It does not affect the
// other types of the run.
type TypeError struct {
	TypeName string
	Line     int
	Err      error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type %s at line %d: %v", e.TypeName, e.Line, e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }
