package layout

import (
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// ScalarKind tells the glue backend how a scalar value is copied.
type ScalarKind int

const (
	ScalarValue   ScalarKind = iota
	ScalarCString            // char*, copied only when not null
	ScalarBuffer             // fixed byte buffer, copied with its size
)

// Scalar is the protobuf type of a primitive or number field.
type Scalar struct {
	Type string
	Kind ScalarKind
}

var primitiveTypes = map[string]Scalar{
	"stl-string":    {Type: "string"},
	"static-string": {Type: "string"},
	"ptr-string":    {Type: "string", Kind: ScalarCString},
	"bool":          {Type: "bool"},
	"s-float":       {Type: "float"},
	"d-float":       {Type: "double"},
	"buffer":        {Type: "bytes", Kind: ScalarBuffer},
}

var numberTypes = map[string]string{
	"int8_t":   "int32",
	"int16_t":  "int32",
	"int32_t":  "int32",
	"uint8_t":  "uint32",
	"uint16_t": "uint32",
	"uint32_t": "uint32",
	"int64_t":  "int64",
	"long":     "int64",
	"uint64_t": "uint64",
	"ulong":    "uint64",
	"bool":     "bool",
	"s-float":  "float",
	"d-float":  "double",
}

// NumberType maps a native integer or float subtype; ok is false for
// subtypes without a mapping.
func NumberType(subtype string) (string, bool) {
	t, ok := numberTypes[subtype]
	return t, ok
}

// ScalarOf maps a primitive or number node.
func ScalarOf(n *typetree.Node) (Scalar, error) {
	switch n.Kind {
	case typetree.KindPrimitive:
		if s, ok := primitiveTypes[n.Subtype]; ok {
			return s, nil
		}
		return Scalar{}, typetree.Unsupported(n, "primitive type %q has no schema mapping", n.Subtype)
	case typetree.KindNumber:
		if n.Subtype == "flag-bit" {
			switch {
			case n.Bits <= 1:
				return Scalar{Type: "bool"}, nil
			case n.Bits <= 32:
				return Scalar{Type: "uint32"}, nil
			}
			return Scalar{Type: "uint64"}, nil
		}
		if t, ok := NumberType(n.Subtype); ok {
			return Scalar{Type: t}, nil
		}
		return Scalar{}, typetree.Unsupported(n, "number type %q has no schema mapping", n.Subtype)
	}
	return Scalar{}, typetree.Unsupported(n, "%s is not a scalar", n.Kind)
}

// Ref is the resolved target of an enum or global reference.
type Ref struct {
	Name   string
	Target *typetree.Node // nil for forced enums missing from the catalog
	Enum   bool
}

// Global resolves a reference to the top-level type name. Types named by
// enum rules are treated as enums even when no loaded document defines them.
func (b *Builder) Global(n *typetree.Node, name string) (Ref, error) {
	forced := b.Rules.IsForcedImport(name)
	target, ok := b.Catalog.Lookup(name)
	if !ok {
		if forced {
			return Ref{Name: name, Enum: true}, nil
		}
		_, err := b.Catalog.Resolve(n, name)
		return Ref{}, err
	}
	return Ref{
		Name:   name,
		Target: target,
		Enum:   forced || target.Kind == typetree.KindEnumType || n.Kind == typetree.KindEnumRef,
	}, nil
}

// PointerKind classifies what a pointer field copies.
type PointerKind int

const (
	// PointerRef copies the identity of the pointee into a <name>_ref field.
	PointerRef PointerKind = iota
	// PointerEnum copies the pointed-to enum value.
	PointerEnum
	// PointerMessage describes the pointed-to bitfield.
	PointerMessage
	// PointerScalar copies the pointed-to scalar.
	PointerScalar
)

// Pointer is a classified pointer field.
type Pointer struct {
	Kind     PointerKind
	Ref      Ref
	Identity typetree.Identity
	// IDType is the protobuf type of the _ref field.
	IDType string
	Scalar Scalar
}

// Pointer classifies the pointer node n.
func (b *Builder) Pointer(n *typetree.Node) (*Pointer, error) {
	if item := n.Item; item != nil {
		switch item.Kind {
		case typetree.KindPrimitive, typetree.KindNumber:
			s, err := ScalarOf(item)
			if err != nil {
				return nil, err
			}
			return &Pointer{Kind: PointerScalar, Scalar: s}, nil
		case typetree.KindEnumRef, typetree.KindGlobalRef:
		default:
			return nil, typetree.Unsupported(n, "pointer to %s", item.Kind)
		}
	}
	if n.RefTarget == "" {
		return nil, typetree.Unsupported(n, "pointer without a target type")
	}

	ref, err := b.Global(n, n.RefTarget)
	if err != nil {
		return nil, err
	}
	switch {
	case ref.Enum:
		return &Pointer{Kind: PointerEnum, Ref: ref}, nil
	case ref.Target.Kind == typetree.KindBitfieldType:
		return &Pointer{Kind: PointerMessage, Ref: ref}, nil
	}

	id, err := b.Catalog.Identity(n, ref.Target, b.Options.IdentityFallback)
	if err != nil {
		return nil, err
	}
	p := &Pointer{Kind: PointerRef, Ref: ref, Identity: id, IDType: "int32"}
	if t, ok := NumberType(id.Subtype); ok {
		p.IDType = t
	}
	return p, nil
}

// ContainerKind classifies how a container is iterated.
type ContainerKind int

const (
	// ContainerIndexed is a vector, deque, df-array or static array.
	ContainerIndexed ContainerKind = iota
	// ContainerFlags is a df-flagarray, read bit by bit.
	ContainerFlags
	// ContainerBits is a std::vector<bool>.
	ContainerBits
)

// Container is a classified container field.
type Container struct {
	Kind ContainerKind
	// Count is the element count of a static array, empty for containers
	// that know their size.
	Count string
	Item  *typetree.Node
}

// ContainerOf classifies the container node n.
func ContainerOf(n *typetree.Node) (*Container, error) {
	c := &Container{Item: n.Item}
	switch n.Subtype {
	case "df-flagarray":
		c.Kind = ContainerFlags
		return c, nil
	case "stl-bit-vector":
		c.Kind = ContainerBits
		return c, nil
	case "stl-vector", "stl-deque", "df-array":
	case "static-array":
		if n.Count == "" {
			return nil, typetree.Malformed(n, "static array without a count")
		}
		c.Count = n.Count
	default:
		return nil, typetree.Unsupported(n, "container type %q cannot be iterated by index", n.Subtype)
	}

	if c.Item == nil {
		return nil, typetree.Unsupported(n, "container without an item type")
	}
	if c.Item.Kind == typetree.KindContainer {
		return nil, typetree.Unsupported(n, "container of containers")
	}
	return c, nil
}

// ItemTypeName names the type declared by the inline compound item of a
// container: its typedef name, else T_<container>.
func ItemTypeName(container *typetree.Node) string {
	if container.Item != nil && container.Item.TypedefName != "" {
		return container.Item.TypedefName
	}
	return "T_" + container.Name
}
