package rules

import (
	"errors"
	"fmt"
)

var (
	ErrRuleSyntax   = errors.New("rule syntax error")
	ErrRuleConflict = errors.New("conflicting rules")
)

// SyntaxError reports a rule that cannot be parsed. A rule set with a
// syntax error is rejected as a whole.
type SyntaxError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %q", e.Source, e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("%s: %s: %q", e.Source, e.Reason, e.Text)
}

func (e *SyntaxError) Unwrap() error { return ErrRuleSyntax }

// ConflictError reports two rules that override the same node in
// incompatible ways. It is detected when the node is compiled.
type ConflictError struct {
	Node   string
	Line   int
	First  Rule
	Second Rule
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("line %d: %s: %q conflicts with %q", e.Line, e.Node, e.First.String(), e.Second.String())
}

func (e *ConflictError) Unwrap() error { return ErrRuleConflict }
