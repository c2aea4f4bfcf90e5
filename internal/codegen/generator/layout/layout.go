// Package layout decides which members a generated message has, under
// which names and field numbers, and how each is reached from the native
// value. The schema and glue backends both read the same layout, so the
// two artifacts of a type always agree on filtering and renaming.
package layout

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dfproto/protogen/internal/codegen/meta"
	"github.com/dfproto/protogen/internal/codegen/rules"
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// Member is one entry of a message: a field, a union group or an ignored
// field kept for debug comments.
type Member struct {
	Node *typetree.Node
	// Name is the schema field name after renames.
	Name   string
	Number int
	// Explicit is set when an index rule chose Number.
	Explicit bool
	// Native is the member path from the enclosing native value,
	// e.g. "timer" or "data.glorify_hf".
	Native  string
	Ignored bool
	Union   *Union
}

// Union is a group of alternative members selected by an enum field.
type Union struct {
	Node *typetree.Node
	Name string
	// Discriminant is the enum field selecting the active case and
	// DiscriminantNative its path from the enclosing native value.
	Discriminant       *typetree.Node
	DiscriminantNative string
	Cases              []*Member
}

// Message is the layout of one top-level struct or inline compound.
type Message struct {
	Scope *typetree.Node
	// Base is the resolved parent type of an inheriting class and Parent
	// the field number of its parent view.
	Base    *typetree.Node
	Parent  int
	Members []*Member
}

// Fields returns every emitted field, union cases included, in
// declaration order.
func (m *Message) Fields() []*Member {
	var out []*Member
	for _, mem := range m.Members {
		switch {
		case mem.Ignored:
		case mem.Union != nil:
			for _, c := range mem.Union.Cases {
				if !c.Ignored {
					out = append(out, c)
				}
			}
		default:
			out = append(out, mem)
		}
	}
	return out
}

// Builder computes layouts for one compilation run.
type Builder struct {
	Catalog *typetree.Catalog
	Rules   *rules.Set
	Options meta.Options
}

// Build lays out the members of scope, a top-level struct or class or an
// inline compound.
func (b *Builder) Build(scope *typetree.Node) (*Message, error) {
	m := &Message{Scope: scope}
	if scope.Kind.IsTopLevel() && scope.InheritsFrom != "" {
		base, err := b.Catalog.Resolve(scope, scope.InheritsFrom)
		if err != nil {
			return nil, err
		}
		m.Base = base
	}

	members, err := b.collect(scope, scope, "")
	if err != nil {
		return nil, err
	}
	m.Members = members

	if err := m.number(); err != nil {
		return nil, err
	}
	return m, nil
}

// skip reports whether a member is left out of the message.
func (b *Builder) skip(n *typetree.Node, o rules.Override) bool {
	if o.Ignore {
		return true
	}
	if n.Kind == typetree.KindPrimitive && n.Subtype == "padding" {
		return true
	}
	return b.Options.IgnoreNoExport && n.NotExported() && !o.Explicit()
}

// CheckCycles fails when top reaches itself through the by-value members
// its layout keeps.
func (b *Builder) CheckCycles(top *typetree.Node) error {
	return b.Catalog.CheckCycles(top, b.omitted)
}

func (b *Builder) omitted(n *typetree.Node) (bool, error) {
	o, err := b.Rules.Override(n)
	if err != nil {
		return false, err
	}
	return b.skip(n, o), nil
}

func (b *Builder) collect(scope, owner *typetree.Node, prefix string) ([]*Member, error) {
	var out []*Member
	for _, c := range owner.Children {
		o, err := b.Rules.Override(c)
		if err != nil {
			return nil, err
		}
		if b.skip(c, o) {
			out = append(out, &Member{Node: c, Name: c.Name, Native: prefix + c.Name, Ignored: true})
			continue
		}

		switch {
		case c.Kind == typetree.KindCompound && c.IsUnion:
			u, err := b.union(scope, c, prefix, o)
			if err != nil {
				return nil, err
			}
			out = append(out, &Member{Node: c, Name: u.Name, Union: u})

		case c.IsAnonymous():
			if o.Explicit() {
				return nil, typetree.Unsupported(c, "rename or index rule on an anonymous compound")
			}
			inner, err := b.collect(scope, c, prefix)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)

		default:
			mem, err := member(c, o, prefix)
			if err != nil {
				return nil, err
			}
			out = append(out, mem)
		}
	}
	return out, nil
}

func member(n *typetree.Node, o rules.Override, prefix string) (*Member, error) {
	if n.Name == "" {
		return nil, typetree.Malformed(n, "field without a name")
	}
	mem := &Member{Node: n, Name: n.Name, Native: prefix + n.Name}
	if o.Rename != "" {
		mem.Name = o.Rename
	}
	if o.Index != 0 {
		mem.Number, mem.Explicit = o.Index, true
	}
	return mem, nil
}

func (b *Builder) union(scope, n *typetree.Node, prefix string, o rules.Override) (*Union, error) {
	if o.Index != 0 {
		return nil, typetree.Unsupported(n, "index rule on a union group")
	}
	u := &Union{Node: n, Name: n.Name}
	if o.Rename != "" {
		u.Name = o.Rename
	}
	if u.Name == "" {
		return nil, typetree.Malformed(n, "union without a name")
	}

	disc, err := typetree.Discriminant(n)
	if err != nil {
		return nil, err
	}
	u.Discriminant = disc
	if u.DiscriminantNative, err = nativePath(scope, disc); err != nil {
		return nil, err
	}

	casePrefix := prefix
	if !n.IsAnonymous() {
		casePrefix += n.Name + "."
	}
	for _, c := range b.Catalog.UnionCases(n, disc) {
		co, err := b.Rules.Override(c)
		if err != nil {
			return nil, err
		}
		if b.skip(c, co) {
			u.Cases = append(u.Cases, &Member{Node: c, Name: c.Name, Native: casePrefix + c.Name, Ignored: true})
			continue
		}
		switch {
		case c.Kind == typetree.KindContainer:
			return nil, typetree.Unsupported(c, "container inside a union")
		case c.Kind == typetree.KindCompound && (c.IsUnion || c.IsAnonymous()):
			return nil, typetree.Unsupported(c, "anonymous compound inside a union")
		}
		mem, err := member(c, co, casePrefix)
		if err != nil {
			return nil, err
		}
		u.Cases = append(u.Cases, mem)
	}
	return u, nil
}

// nativePath returns the C++ member path from scope to n. Anonymous
// compounds add no path segment.
func nativePath(scope, n *typetree.Node) (string, error) {
	var parts []string
	for cur := n; cur != scope; cur = cur.Parent {
		if cur == nil {
			return "", typetree.Malformed(n, "field %q is outside of %s", n.Name, scope.String())
		}
		if !cur.IsAnonymous() {
			parts = append(parts, cur.Name)
		}
	}
	slices.Reverse(parts)
	return strings.Join(parts, "."), nil
}

// reserved field numbers of the protobuf implementation
const (
	reservedFirst = 19000
	reservedLast  = 19999
)

// number assigns field numbers. Numbers chosen by index rules are
// reserved first; every other field takes the next unused number, the
// parent view of an inheriting class first.
func (m *Message) number() error {
	used := map[int]string{}
	fields := m.Fields()
	for _, f := range fields {
		if !f.Explicit {
			continue
		}
		if prev, ok := used[f.Number]; ok {
			return fmt.Errorf("%s: field number %d assigned to both %q and %q: %w",
				m.Scope.String(), f.Number, prev, f.Name, rules.ErrRuleConflict)
		}
		used[f.Number] = f.Name
	}

	next := 1
	take := func(name string) int {
		for {
			if _, taken := used[next]; !taken && (next < reservedFirst || next > reservedLast) {
				break
			}
			next++
		}
		used[next] = name
		return next
	}
	if m.Base != nil {
		m.Parent = take("parent")
	}
	for _, f := range fields {
		if !f.Explicit {
			f.Number = take(f.Name)
		}
	}
	return nil
}
