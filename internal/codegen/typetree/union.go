package typetree

// Discriminant returns the field selecting the active member of a union
// group. The definition may name it through union-tag-field; otherwise it
// is the closest enum field declared before the union in the enclosing
// struct (looking through anonymous compounds).
func Discriminant(union *Node) (*Node, error) {
	for owner, member := union.Parent, union; owner != nil; owner, member = owner.Parent, owner {
		if union.UnionTag != "" {
			if f := owner.Field(union.UnionTag); f != nil {
				return f, nil
			}
		} else {
			var found *Node
			for _, c := range owner.Children {
				if c == member {
					break
				}
				if c.Kind == KindEnumRef {
					found = c
				}
			}
			if found != nil {
				return found, nil
			}
		}
		if !owner.IsAnonymous() {
			break
		}
	}
	if union.UnionTag != "" {
		return nil, malformed(union, "union-tag-field %q not found", union.UnionTag)
	}
	return nil, malformed(union, "union has no discriminant field")
}

// UnionCases returns the members of union that correspond to a value of
// the discriminant's enum. When the enum is not in the catalog every
// named member is taken as a case.
func (c *Catalog) UnionCases(union, discriminant *Node) []*Node {
	enum, ok := c.Lookup(discriminant.TypeName)
	var out []*Node
	for _, m := range union.Children {
		if m.Name == "" {
			continue
		}
		if ok && enum.Kind == KindEnumType {
			if _, known := enum.EnumItem(m.Name); !known {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}
