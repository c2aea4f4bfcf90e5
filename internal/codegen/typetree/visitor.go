package typetree

// FieldVisitor handles every field kind. Backends implement it so that a
// new kind cannot be added without updating each of them.
type FieldVisitor interface {
	Primitive(n *Node) error
	Number(n *Node) error
	EnumRef(n *Node) error
	Container(n *Node) error
	Pointer(n *Node) error
	Compound(n *Node) error
	GlobalRef(n *Node) error
}

// TypeVisitor handles every top-level type kind.
type TypeVisitor interface {
	StructType(n *Node) error
	ClassType(n *Node) error
	EnumType(n *Node) error
	BitfieldType(n *Node) error
}

// VisitField dispatches n to the method of v matching its kind.
func VisitField(n *Node, v FieldVisitor) error {
	switch n.Kind {
	case KindPrimitive:
		return v.Primitive(n)
	case KindNumber:
		return v.Number(n)
	case KindEnumRef:
		return v.EnumRef(n)
	case KindContainer:
		return v.Container(n)
	case KindPointer:
		return v.Pointer(n)
	case KindCompound:
		return v.Compound(n)
	case KindGlobalRef:
		return v.GlobalRef(n)
	}
	return malformed(n, "%s is not a field kind", n.Kind)
}

// VisitType dispatches a top-level n to the method of v matching its kind.
func VisitType(n *Node, v TypeVisitor) error {
	switch n.Kind {
	case KindStructType:
		return v.StructType(n)
	case KindClassType:
		return v.ClassType(n)
	case KindEnumType:
		return v.EnumType(n)
	case KindBitfieldType:
		return v.BitfieldType(n)
	}
	return malformed(n, "%s is not a top-level kind", n.Kind)
}
