// Package proto compiles structure definitions into protobuf schema
// declarations.
package proto

import (
	"math"
	"slices"

	"github.com/dfproto/protogen/internal/codegen/common"
	"github.com/dfproto/protogen/internal/codegen/generator/layout"
	"github.com/dfproto/protogen/internal/codegen/meta"
	"github.com/dfproto/protogen/internal/codegen/rules"
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// Compiler turns top-level types into schema declarations. It holds only
// read-only state and can be shared between goroutines.
type Compiler struct {
	rules  *rules.Set
	opts   meta.Options
	layout *layout.Builder
}

// New returns a Compiler for one run.
func New(cat *typetree.Catalog, set *rules.Set, opts meta.Options) *Compiler {
	return &Compiler{
		rules:  set,
		opts:   opts,
		layout: &layout.Builder{Catalog: cat, Rules: set, Options: opts},
	}
}

// Schema is the compiled declaration of one top-level type.
type Schema struct {
	TypeName string
	Decl     Decl
	// Imports are the other types whose schema files must be imported,
	// in order of first reference.
	Imports []string
}

// Compile builds the schema declaration of the top-level type n.
func (c *Compiler) Compile(n *typetree.Node) (*Schema, error) {
	w := &walk{Compiler: c, top: n}
	if err := typetree.VisitType(n, w); err != nil {
		return nil, err
	}
	for _, name := range c.rules.ForcedImports() {
		w.use(name)
	}
	return &Schema{TypeName: n.TypeName, Decl: w.decl, Imports: w.imports.List()}, nil
}

// walk holds the state of one compilation.
type walk struct {
	*Compiler
	top     *typetree.Node
	decl    Decl
	imports meta.ImportSet
}

func (w *walk) use(name string) {
	if name != w.top.TypeName {
		w.imports.Add(name)
	}
}

func (w *walk) label(repeated, oneof bool) string {
	switch {
	case oneof:
		return ""
	case repeated:
		return "repeated"
	case w.opts.ProtoVersion == 2:
		return "optional"
	}
	return ""
}

func (w *walk) StructType(n *typetree.Node) error {
	return w.structType(n)
}

func (w *walk) ClassType(n *typetree.Node) error {
	return w.structType(n)
}

func (w *walk) structType(n *typetree.Node) error {
	if err := w.layout.CheckCycles(n); err != nil {
		return err
	}
	msg, err := w.message(n, n.TypeName)
	if err != nil {
		return err
	}
	msg.Comment = n.Comment
	w.decl = msg
	return nil
}

func (w *walk) EnumType(n *typetree.Node) error {
	e, err := w.enum(n, n.TypeName)
	if err != nil {
		return err
	}
	e.Comment = n.Comment
	w.decl = e
	return nil
}

func (w *walk) BitfieldType(n *typetree.Node) error {
	msg := w.bitfield(n, n.TypeName)
	msg.Comment = n.Comment
	w.decl = msg
	return nil
}

// message lays out scope and declares its fields.
func (w *walk) message(scope *typetree.Node, name string) (*Message, error) {
	lay, err := w.layout.Build(scope)
	if err != nil {
		return nil, err
	}
	msg := &Message{Name: name}
	if lay.Base != nil {
		w.use(lay.Base.TypeName)
		msg.Body = append(msg.Body, &Field{
			Label:  w.label(false, false),
			Type:   lay.Base.TypeName,
			Name:   "parent",
			Number: lay.Parent,
		})
	}

	for _, m := range lay.Members {
		switch {
		case m.Ignored:
			if w.opts.CommentIgnored {
				msg.Body = append(msg.Body, Comment("ignored: "+m.Native))
			}
		case m.Union != nil:
			o := &Oneof{Name: m.Union.Name}
			for _, c := range m.Union.Cases {
				if c.Ignored {
					if w.opts.CommentIgnored {
						o.Body = append(o.Body, Comment("ignored: "+c.Native))
					}
					continue
				}
				f, err := w.field(msg, c, true)
				if err != nil {
					return nil, err
				}
				o.Body = append(o.Body, f)
			}
			msg.Body = append(msg.Body, o)
		default:
			f, err := w.field(msg, m, false)
			if err != nil {
				return nil, err
			}
			msg.Body = append(msg.Body, f)
		}
	}
	return msg, nil
}

func (w *walk) field(msg *Message, m *layout.Member, oneof bool) (*Field, error) {
	fm := &fieldMapper{w: w, parent: msg}
	if err := typetree.VisitField(m.Node, fm); err != nil {
		return nil, err
	}
	return &Field{
		Label:  w.label(fm.repeated, oneof),
		Type:   fm.typ,
		Name:   m.Name + fm.suffix,
		Number: m.Number,
	}, nil
}

// fieldMapper finds the schema type of one field. Inline compounds are
// declared as nested types of parent.
type fieldMapper struct {
	w      *walk
	parent *Message

	typ      string
	suffix   string
	repeated bool
}

func (f *fieldMapper) Primitive(n *typetree.Node) error { return f.scalar(n) }
func (f *fieldMapper) Number(n *typetree.Node) error    { return f.scalar(n) }
func (f *fieldMapper) EnumRef(n *typetree.Node) error   { return f.global(n) }
func (f *fieldMapper) GlobalRef(n *typetree.Node) error { return f.global(n) }

func (f *fieldMapper) scalar(n *typetree.Node) error {
	s, err := layout.ScalarOf(n)
	if err != nil {
		return err
	}
	f.typ = s.Type
	return nil
}

func (f *fieldMapper) global(n *typetree.Node) error {
	ref, err := f.w.layout.Global(n, n.TypeName)
	if err != nil {
		return err
	}
	f.w.use(ref.Name)
	f.typ = ref.Name
	return nil
}

func (f *fieldMapper) Pointer(n *typetree.Node) error {
	p, err := f.w.layout.Pointer(n)
	if err != nil {
		return err
	}
	f.pointer(p)
	return nil
}

func (f *fieldMapper) pointer(p *layout.Pointer) {
	switch p.Kind {
	case layout.PointerRef:
		f.typ, f.suffix = p.IDType, "_ref"
	case layout.PointerEnum, layout.PointerMessage:
		f.w.use(p.Ref.Name)
		f.typ = p.Ref.Name
	case layout.PointerScalar:
		f.typ = p.Scalar.Type
	}
}

func (f *fieldMapper) Compound(n *typetree.Node) error {
	name, err := f.w.inline(f.parent, n, n.LocalTypeName())
	if err != nil {
		return err
	}
	f.typ = name
	return nil
}

func (f *fieldMapper) Container(n *typetree.Node) error {
	c, err := layout.ContainerOf(n)
	if err != nil {
		return err
	}
	f.repeated = true
	if c.Kind != layout.ContainerIndexed {
		f.typ = "bool"
		return nil
	}

	switch item := c.Item; item.Kind {
	case typetree.KindPointer:
		p, err := f.w.layout.Pointer(item)
		if err != nil {
			return err
		}
		if p.Kind == layout.PointerScalar {
			return typetree.Unsupported(n, "container of pointers to scalars")
		}
		f.pointer(p)
		return nil
	case typetree.KindCompound:
		if item.IsUnion {
			return typetree.Unsupported(n, "container of unions")
		}
		f.typ, err = f.w.inline(f.parent, item, layout.ItemTypeName(n))
		return err
	default:
		return typetree.VisitField(item, f)
	}
}

// inline declares the inline compound n as a nested type of parent.
func (w *walk) inline(parent *Message, n *typetree.Node, name string) (string, error) {
	if parent.hasNested(name) {
		return "", typetree.Malformed(n, "nested type %q declared twice", name)
	}
	switch n.Subtype {
	case "enum":
		e, err := w.enum(n, name)
		if err != nil {
			return "", err
		}
		parent.Enums = append(parent.Enums, e)
	case "bitfield":
		parent.Messages = append(parent.Messages, w.bitfield(n, name))
	default:
		if n.IsUnion {
			return "", typetree.Unsupported(n, "union outside of a struct")
		}
		msg, err := w.message(n, name)
		if err != nil {
			return "", err
		}
		parent.Messages = append(parent.Messages, msg)
	}
	return name, nil
}

// enum declares the items of n. A zero value comes first in proto3, and
// any enum without items gets <name>_none = 0.
func (w *walk) enum(n *typetree.Node, name string) (*Enum, error) {
	e := &Enum{Name: name}
	seen := map[int64]bool{}
	for _, it := range n.EnumItems {
		if it.Value < math.MinInt32 || it.Value > math.MaxInt32 {
			return nil, typetree.Unsupported(n, "enum value %d of %q does not fit int32", it.Value, it.Name)
		}
		if seen[it.Value] {
			e.AllowAlias = true
		}
		seen[it.Value] = true
		e.Values = append(e.Values, EnumValue{Name: common.EnumValueName(name, it.Name, it.Value), Number: it.Value})
	}

	if w.opts.ProtoVersion == 3 || len(e.Values) == 0 {
		zero := slices.IndexFunc(e.Values, func(v EnumValue) bool { return v.Number == 0 })
		switch {
		case zero < 0:
			e.Values = slices.Insert(e.Values, 0, EnumValue{Name: name + "_none", Number: 0})
		case zero > 0:
			v := e.Values[zero]
			e.Values = slices.Insert(slices.Delete(e.Values, zero, zero+1), 0, v)
		}
	}
	return e, nil
}

// bitfield declares a message holding the raw flags of n and an enum of
// the flag masks. Masks that do not fit a positive int32 are left out of
// the enum; the flags value still carries them.
func (w *walk) bitfield(n *typetree.Node, name string) *Message {
	mask := &Enum{Name: "mask", Values: []EnumValue{{Name: name + "_none", Number: 0}}}
	offset := 0
	for _, f := range n.Children {
		bits := f.Bits
		if bits <= 0 {
			bits = 1
		}
		if f.Name != "" && !f.Anonymous && offset+bits <= 31 {
			mask.Values = append(mask.Values, EnumValue{
				Name:   common.EnumValueName(name, f.Name, 0),
				Number: (int64(1)<<bits - 1) << offset,
			})
		}
		offset += bits
	}

	flags := "uint32"
	if offset > 32 || n.BaseType == "uint64_t" || n.BaseType == "int64_t" {
		flags = "uint64"
	}
	return &Message{
		Name:  name,
		Enums: []*Enum{mask},
		Body:  []Element{&Field{Label: w.label(false, false), Type: flags, Name: "flags", Number: 1}},
	}
}
