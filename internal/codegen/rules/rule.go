package rules

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// Kind is the directive of a rule.
type Kind int

const (
	KindRename Kind = iota + 1
	KindIgnore
	KindIndex
	KindEnum
	KindDepends
)

func (k Kind) String() string {
	switch k {
	case KindRename:
		return "rename"
	case KindIgnore:
		return "ignore"
	case KindIndex:
		return "index"
	case KindEnum:
		return "enum"
	case KindDepends:
		return "depends"
	}
	return "unknown"
}

// Rule is one override directive.
//
//	rename <selector> <name>    schema field name replacement
//	ignore <selector>           drop the field (or the whole type)
//	index <selector> <n>        explicit schema field number
//	enum <type>                 force a schema import of <type>
//	depends <type> <required>   extra include in the glue of <type>
type Rule struct {
	Kind     Kind
	Source   string
	Line     int
	Selector *Selector
	Name     string // rename: new name; enum and depends: type name
	Index    int
	Requires string
}

// String renders the rule in the line grammar.
func (r Rule) String() string {
	switch r.Kind {
	case KindRename:
		return fmt.Sprintf("rename %s %s", r.Selector, r.Name)
	case KindIgnore:
		return fmt.Sprintf("ignore %s", r.Selector)
	case KindIndex:
		return fmt.Sprintf("index %s %d", r.Selector, r.Index)
	case KindEnum:
		return "enum " + r.Name
	case KindDepends:
		return fmt.Sprintf("depends %s %s", r.Name, r.Requires)
	}
	return "unknown rule"
}

// MaxFieldNumber is the largest schema field number.
const MaxFieldNumber = 1<<29 - 1

func validIndex(n int) bool {
	return n >= 1 && n <= MaxFieldNumber && (n < 19000 || n > 19999)
}

// Set is an immutable, ordered rule set. A nil *Set holds no rules.
type Set struct {
	rules []Rule
}

// NewSet builds a set from rules in the given order.
func NewSet(rules ...Rule) *Set {
	return &Set{rules: slices.Clone(rules)}
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// All returns every rule in load order.
func (s *Set) All() []Rule {
	if s == nil {
		return nil
	}
	return slices.Clone(s.rules)
}

// Rules returns the rules of one kind in load order.
func (s *Set) Rules(kind Kind) []Rule {
	if s == nil {
		return nil
	}
	var out []Rule
	for _, r := range s.rules {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Merge returns a set holding the rules of s followed by those of other.
func (s *Set) Merge(other *Set) *Set {
	return NewSet(append(s.All(), other.All()...)...)
}

// ForcedImports returns the type names of enum rules, sorted and without
// duplicates, so that rule order never changes generated output.
func (s *Set) ForcedImports() []string {
	var out []string
	for _, r := range s.Rules(KindEnum) {
		out = append(out, r.Name)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// IsForcedImport reports whether an enum rule names typeName.
func (s *Set) IsForcedImport(typeName string) bool {
	for _, r := range s.Rules(KindEnum) {
		if r.Name == typeName {
			return true
		}
	}
	return false
}

// Dependencies returns the extra glue includes declared for typeName, in
// rule order and without duplicates.
func (s *Set) Dependencies(typeName string) []string {
	var out []string
	for _, r := range s.Rules(KindDepends) {
		if r.Name == typeName && !slices.Contains(out, r.Requires) {
			out = append(out, r.Requires)
		}
	}
	return out
}

// Override is the combined effect of the rules selecting one node.
type Override struct {
	Ignore bool
	Rename string
	Index  int
}

// Explicit reports whether the node is named by a rename or index rule.
func (o Override) Explicit() bool {
	return o.Rename != "" || o.Index != 0
}

// Override resolves the rules selecting n. Two renames to different names,
// two different indexes, or an ignore combined with a rename or index
// are a ConflictError.
func (s *Set) Override(n *typetree.Node) (Override, error) {
	var (
		o                        Override
		ignore, rename, renumber *Rule
	)
	if s == nil {
		return o, nil
	}
	for i := range s.rules {
		r := &s.rules[i]
		if r.Selector == nil || !r.Selector.Match(n) {
			continue
		}
		switch r.Kind {
		case KindIgnore:
			if ignore == nil {
				ignore = r
			}
		case KindRename:
			if rename != nil && rename.Name != r.Name {
				return Override{}, conflict(n, *rename, *r)
			}
			rename = r
		case KindIndex:
			if renumber != nil && renumber.Index != r.Index {
				return Override{}, conflict(n, *renumber, *r)
			}
			renumber = r
		}
	}
	if ignore != nil {
		if rename != nil {
			return Override{}, conflict(n, *ignore, *rename)
		}
		if renumber != nil {
			return Override{}, conflict(n, *ignore, *renumber)
		}
		o.Ignore = true
	}
	if rename != nil {
		o.Rename = rename.Name
	}
	if renumber != nil {
		o.Index = renumber.Index
	}
	return o, nil
}

func conflict(n *typetree.Node, a, b Rule) error {
	return &ConflictError{Node: n.String(), Line: n.Line, First: a, Second: b}
}

// Ignores reports whether an ignore rule selects n.
func (s *Set) Ignores(n *typetree.Node) bool {
	for _, r := range s.Rules(KindIgnore) {
		if r.Selector.Match(n) {
			return true
		}
	}
	return false
}

func parseIndex(src string) (int, bool) {
	n, err := strconv.Atoi(src)
	if err != nil || !validIndex(n) {
		return 0, false
	}
	return n, true
}
