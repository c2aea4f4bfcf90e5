package typetree

// Catalog indexes the top-level types of every document in a run. It is
// built once and only read afterwards, so it is safe to share between
// concurrent compilations.
type Catalog struct {
	byName map[string]*Node
	order  []*Node
	dups   []Duplicate
}

// Duplicate is a definition of a type name that an earlier definition
// already claimed. Only the first definition is indexed.
type Duplicate struct {
	Path string
	Node *Node
	Err  error
}

// NewCatalog indexes the types of docs. A type name defined twice is
// malformed for the later definition only; see Duplicates.
func NewCatalog(docs ...*Document) *Catalog {
	c := &Catalog{byName: map[string]*Node{}}
	paths := map[*Node]string{}
	for _, d := range docs {
		for _, t := range d.Types {
			if prev, ok := c.byName[t.TypeName]; ok {
				c.dups = append(c.dups, Duplicate{
					Path: d.Path,
					Node: t,
					Err:  malformed(t, "type %q already defined in %s at line %d", t.TypeName, paths[prev], prev.Line),
				})
				continue
			}
			c.byName[t.TypeName] = t
			paths[t] = d.Path
			c.order = append(c.order, t)
		}
	}
	return c
}

// Duplicates returns the definitions rejected by NewCatalog in load order.
func (c *Catalog) Duplicates() []Duplicate {
	if c == nil {
		return nil
	}
	return c.dups
}

// Lookup returns the top-level type with the given name.
func (c *Catalog) Lookup(name string) (*Node, bool) {
	if c == nil {
		return nil, false
	}
	n, ok := c.byName[name]
	return n, ok
}

// Types returns all indexed types in load order.
func (c *Catalog) Types() []*Node {
	if c == nil {
		return nil
	}
	return c.order
}

// Resolve looks up the target of a reference field and fails with an
// UnresolvedReferenceError when no document defines it.
func (c *Catalog) Resolve(field *Node, target string) (*Node, error) {
	if target == "" {
		return nil, Unsupported(field, "reference without a target type")
	}
	if n, ok := c.Lookup(target); ok {
		return n, nil
	}
	return nil, &UnresolvedReferenceError{Field: field.String(), Target: target, Line: field.Line}
}

// Identity is the identity field of a pointee type.
type Identity struct {
	Field   string
	Subtype string // number subtype of the field, empty when unknown
}

// Identity returns the identity field used to encode references to target.
// Types declare it through key-field; fallback is used for types that
// don't, and an empty fallback makes such references unsupported.
func (c *Catalog) Identity(field *Node, target *Node, fallback string) (Identity, error) {
	name := target.KeyField
	if name == "" {
		name = fallback
	}
	if name == "" {
		return Identity{}, Unsupported(field, "pointer to %q which has no key-field", target.TypeName)
	}
	id := Identity{Field: name}
	for t := target; t != nil; {
		if f := t.Field(name); f != nil && f.Kind == KindNumber {
			id.Subtype = f.Subtype
			break
		}
		if t.InheritsFrom == "" {
			break
		}
		base, ok := c.Lookup(t.InheritsFrom)
		if !ok {
			break
		}
		t = base
	}
	return id, nil
}

// IsEnum reports whether name is a known enum type.
func (c *Catalog) IsEnum(name string) bool {
	n, ok := c.Lookup(name)
	return ok && n.Kind == KindEnumType
}

// CheckCycles fails when a chain of by-value references starting at top
// leads back to top, which would make the schema files import each other.
// Pointers never take part in such chains, and a container of top inside
// top itself is a plain recursive message. Fields for which omit returns
// true are left out of the message and don't count; a nil omit keeps
// every field.
func (c *Catalog) CheckCycles(top *Node, omit func(*Node) (bool, error)) error {
	w := &cycleWalker{cat: c, top: top, omit: omit, done: map[string]bool{}}
	return w.visit(top, false)
}

type cycleWalker struct {
	cat   *Catalog
	top   *Node
	omit  func(*Node) (bool, error)
	done  map[string]bool
	chain []string
}

func (w *cycleWalker) visit(t *Node, repeated bool) error {
	if t.TypeName == w.top.TypeName && len(w.chain) > 0 {
		if len(w.chain) == 1 && repeated {
			return nil
		}
		return &CircularSchemaError{Chain: append(append([]string{}, w.chain...), t.TypeName)}
	}
	if w.done[t.TypeName] {
		return nil
	}
	w.done[t.TypeName] = true
	w.chain = append(w.chain, t.TypeName)
	defer func() { w.chain = w.chain[:len(w.chain)-1] }()

	if t.InheritsFrom != "" {
		if base, ok := w.cat.Lookup(t.InheritsFrom); ok {
			if err := w.visit(base, false); err != nil {
				return err
			}
		}
	}
	return w.fields(t)
}

func (w *cycleWalker) fields(n *Node) error {
	for _, f := range n.Children {
		if w.omit != nil {
			skip, err := w.omit(f)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
		}
		if err := w.value(f, false); err != nil {
			return err
		}
	}
	return nil
}

func (w *cycleWalker) value(f *Node, repeated bool) error {
	switch f.Kind {
	case KindGlobalRef:
		if t, ok := w.cat.Lookup(f.TypeName); ok && t.Kind != KindEnumType {
			return w.visit(t, repeated)
		}
	case KindCompound:
		return w.fields(f)
	case KindContainer:
		if f.Item != nil {
			return w.value(f.Item, true)
		}
	}
	return nil
}
