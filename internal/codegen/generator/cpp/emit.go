package cpp

import (
	"github.com/dfproto/protogen/internal/codegen/common"
	"github.com/dfproto/protogen/internal/codegen/generator/layout"
	"github.com/dfproto/protogen/internal/codegen/meta"
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

func accessor(name string) string { return common.Accessor(name) }

// field is the protobuf field a value is written to. Repeated fields are
// appended to, and elem names the message variable of an inline compound
// element.
type field struct {
	name      string
	repeated  bool
	elem      string
	container *typetree.Node
}

func (f field) set(suffix string) string {
	if f.repeated {
		return "add_" + accessor(f.name+suffix)
	}
	return "set_" + accessor(f.name+suffix)
}

func (f field) mutable() string {
	if f.repeated {
		return "add_" + accessor(f.name) + "()"
	}
	return "mutable_" + accessor(f.name) + "()"
}

// value writes the statements copying the native expression nat of node n.
func (w *walk) value(n *typetree.Node, s scope, f field, nat string) error {
	return typetree.VisitField(n, &emitter{w: w, s: s, f: f, nat: nat})
}

type emitter struct {
	w   *walk
	s   scope
	f   field
	nat string
}

func (e *emitter) Primitive(n *typetree.Node) error { return e.scalar(n) }
func (e *emitter) Number(n *typetree.Node) error    { return e.scalar(n) }
func (e *emitter) EnumRef(n *typetree.Node) error   { return e.global(n) }
func (e *emitter) GlobalRef(n *typetree.Node) error { return e.global(n) }

func (e *emitter) scalar(n *typetree.Node) error {
	sc, err := layout.ScalarOf(n)
	if err != nil {
		return err
	}
	out := &e.w.out
	switch sc.Kind {
	case layout.ScalarCString:
		out.open("if (%s != nullptr) {", e.nat)
		out.line("%s%s(%s);", e.s.proto, e.f.set(""), e.nat)
		out.close()
	case layout.ScalarBuffer:
		out.line("%s%s(%s, sizeof(%s));", e.s.proto, e.f.set(""), e.nat, e.nat)
	default:
		out.line("%s%s(%s);", e.s.proto, e.f.set(""), e.nat)
	}
	return nil
}

func (e *emitter) global(n *typetree.Node) error {
	ref, err := e.w.layout.Global(n, n.TypeName)
	if err != nil {
		return err
	}
	if ref.Enum {
		e.w.useNative(ref.Name)
		e.w.out.line("%s%s(static_cast<%s>(%s));", e.s.proto, e.f.set(""), e.w.protoType(ref.Name), e.nat)
		return nil
	}
	e.w.useGlue(ref.Name)
	e.w.out.line("describe_%s(%s%s, &%s);", ref.Name, e.s.proto, e.f.mutable(), e.nat)
	return nil
}

func (e *emitter) Pointer(n *typetree.Node) error {
	p, err := e.w.layout.Pointer(n)
	if err != nil {
		return err
	}
	out := &e.w.out

	switch p.Kind {
	case layout.PointerRef:
		e.w.useNative(p.Ref.Name)
		if e.f.repeated {
			e.entry(n, p)
			return nil
		}
		out.open("if (%s != nullptr) {", e.nat)
		out.line("%s%s(%s->%s);", e.s.proto, e.f.set("_ref"), e.nat, p.Identity.Field)
		out.close()
	case layout.PointerEnum:
		e.w.useNative(p.Ref.Name)
		out.open("if (%s != nullptr) {", e.nat)
		out.line("%s%s(static_cast<%s>(*%s));", e.s.proto, e.f.set(""), e.w.protoType(p.Ref.Name), e.nat)
		out.close()
	case layout.PointerMessage:
		e.w.useGlue(p.Ref.Name)
		out.open("if (%s != nullptr) {", e.nat)
		out.line("describe_%s(%s%s, %s);", p.Ref.Name, e.s.proto, e.f.mutable(), e.nat)
		out.close()
	case layout.PointerScalar:
		if e.f.repeated {
			return typetree.Unsupported(n, "container of pointers to scalars")
		}
		out.open("if (%s != nullptr) {", e.nat)
		out.line("%s%s(*%s);", e.s.proto, e.f.set(""), e.nat)
		out.close()
	}
	return nil
}

// entry appends the identity of one container element, handling null
// entries as configured.
func (e *emitter) entry(n *typetree.Node, p *layout.Pointer) {
	out := &e.w.out
	set := e.s.proto + e.f.set("_ref")
	switch e.w.opts.NullEntries {
	case meta.NullSentinel:
		out.line("%s(%s != nullptr ? %s->%s : -1);", set, e.nat, e.nat, p.Identity.Field)
	case meta.NullError:
		e.w.stdexcept = true
		where := n.String()
		if n.Parent != nil {
			where = n.Parent.String()
		}
		out.open("if (%s == nullptr) {", e.nat)
		out.line(`throw std::invalid_argument("null entry in %s");`, where)
		out.close()
		out.line("%s(%s->%s);", set, e.nat, p.Identity.Field)
	default:
		out.open("if (%s != nullptr) {", e.nat)
		out.line("%s(%s->%s);", set, e.nat, p.Identity.Field)
		out.close()
	}
}

func (e *emitter) Compound(n *typetree.Node) error {
	name := n.LocalTypeName()
	if e.f.repeated {
		name = layout.ItemTypeName(e.f.container)
	}
	out := &e.w.out

	switch n.Subtype {
	case "enum":
		out.line("%s%s(static_cast<%s>(%s));", e.s.proto, e.f.set(""), e.w.protoType(e.s.nested(name)), e.nat)
		return nil
	case "bitfield":
		out.line("%s%s->set_flags(%s.whole);", e.s.proto, e.f.mutable(), e.nat)
		return nil
	}
	if n.IsUnion {
		return typetree.Unsupported(n, "union outside of a struct")
	}

	lay, err := e.w.layout.Build(n)
	if err != nil {
		return err
	}
	inner := scope{native: e.nat + ".", cpp: e.s.nested(name)}
	if e.f.repeated {
		out.line("auto* %s = %s%s;", e.f.elem, e.s.proto, e.f.mutable())
		inner.proto = e.f.elem + "->"
	} else {
		inner.proto = e.s.proto + e.f.mutable() + "->"
	}
	return e.w.members(lay, inner)
}

func (e *emitter) Container(n *typetree.Node) error {
	if e.f.repeated {
		return typetree.Unsupported(n, "container of containers")
	}
	c, err := layout.ContainerOf(n)
	if err != nil {
		return err
	}
	out := &e.w.out
	idx, elem := e.w.loopVars()

	switch c.Kind {
	case layout.ContainerFlags:
		out.open("for (size_t %s=0; %s<%s.size; %s++) {", idx, idx, e.nat, idx)
		out.line("%s%s(%s.is_set(%s));", e.s.proto, "add_"+accessor(e.f.name), e.nat, idx)
		out.close()
		return nil
	case layout.ContainerBits:
		out.open("for (size_t %s=0; %s<%s.size(); %s++) {", idx, idx, e.nat, idx)
		out.line("%s%s(%s[%s]);", e.s.proto, "add_"+accessor(e.f.name), e.nat, idx)
		out.close()
		return nil
	}

	bound := e.nat + ".size()"
	if c.Count != "" {
		bound = c.Count
	}
	out.open("for (size_t %s=0; %s<%s; %s++) {", idx, idx, bound, idx)
	e.w.loops++
	item := field{name: e.f.name, repeated: true, elem: elem, container: n}
	err = e.w.value(c.Item, e.s, item, e.nat+"["+idx+"]")
	e.w.loops--
	out.close()
	return err
}
