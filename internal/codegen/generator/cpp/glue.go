// Package cpp compiles structure definitions into the C++ describe
// procedures that copy a native value into its protobuf message.
package cpp

import (
	"fmt"
	"strings"

	"github.com/dfproto/protogen/internal/codegen/generator/layout"
	"github.com/dfproto/protogen/internal/codegen/meta"
	"github.com/dfproto/protogen/internal/codegen/rules"
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// Compiler turns top-level types into describe procedures. Like the schema
// compiler it only reads shared state.
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

// Glue is the compiled describe procedure of one top-level type.
type Glue struct {
	TypeName  string
	Procedure string
	Prototype string
	// NativeImports are types whose native and protobuf headers the
	// procedure needs: pointer targets and enums.
	NativeImports []string
	// GlueImports are types whose describe procedure is called.
	GlueImports []string
	// Stdexcept is set when the procedure throws on null entries.
	Stdexcept bool
}

// Compile builds the describe procedure of the top-level type n.
func (c *Compiler) Compile(n *typetree.Node) (*Glue, error) {
	w := &walk{Compiler: c, top: n}
	w.out.depth = 1
	if err := typetree.VisitType(n, w); err != nil {
		return nil, err
	}

	var proc strings.Builder
	proc.WriteString(c.signature(n.TypeName, true))
	proc.WriteString("\n{\n")
	proc.WriteString(w.out.String())
	proc.WriteString("}\n")

	return &Glue{
		TypeName:      n.TypeName,
		Procedure:     proc.String(),
		Prototype:     c.Prototype(n),
		NativeImports: w.native.List(),
		GlueImports:   w.glue.List(),
		Stdexcept:     w.stdexcept,
	}, nil
}

// Prototype returns the declaration of the describe procedure of n.
func (c *Compiler) Prototype(n *typetree.Node) string {
	return c.signature(n.TypeName, false) + ";"
}

func (c *Compiler) signature(typeName string, qualified bool) string {
	name := "describe_" + typeName
	if qualified {
		name = c.opts.GlueNamespace + "::" + name
	}
	return fmt.Sprintf("void %s(%s::%s* proto, %s::%s* dfhack)",
		name, c.opts.ProtoPackage, typeName, c.opts.NativeNamespace, typeName)
}

// lines collects indented statements.
type lines struct {
	sb    strings.Builder
	depth int
}

func (l *lines) line(format string, args ...any) {
	l.sb.WriteString(strings.Repeat("  ", l.depth))
	fmt.Fprintf(&l.sb, format, args...)
	l.sb.WriteByte('\n')
}

func (l *lines) open(format string, args ...any) {
	l.line(format, args...)
	l.depth++
}

func (l *lines) close() {
	l.depth--
	l.line("}")
}

func (l *lines) String() string { return l.sb.String() }

// walk holds the state of one compilation.
type walk struct {
	*Compiler
	top *typetree.Node
	out lines

	native    meta.ImportSet
	glue      meta.ImportSet
	stdexcept bool
	loops     int
}

func (w *walk) useNative(name string) {
	if name != w.top.TypeName {
		w.native.Add(name)
	}
}

func (w *walk) useGlue(name string) {
	if name != w.top.TypeName {
		w.glue.Add(name)
	}
}

// protoType qualifies a schema type name for C++.
func (w *walk) protoType(name string) string {
	return w.opts.ProtoPackage + "::" + name
}

func (w *walk) StructType(n *typetree.Node) error {
	return w.structType(n)
}

func (w *walk) ClassType(n *typetree.Node) error {
	return w.structType(n)
}

func (w *walk) structType(n *typetree.Node) error {
	lay, err := w.layout.Build(n)
	if err != nil {
		return err
	}
	if lay.Base != nil {
		w.useGlue(lay.Base.TypeName)
		w.out.line("describe_%s(proto->mutable_parent(), dfhack);", lay.Base.TypeName)
	}
	return w.members(lay, scope{proto: "proto->", native: "dfhack->", cpp: n.TypeName})
}

func (w *walk) EnumType(n *typetree.Node) error {
	w.out.line("*proto = static_cast<%s>(*dfhack);", w.protoType(n.TypeName))
	return nil
}

func (w *walk) BitfieldType(n *typetree.Node) error {
	w.out.line("proto->set_flags(dfhack->whole);")
	return nil
}

// scope is where the statements of one message are written: the message
// expression, the native value expression and the C++ name of the message
// class, which prefixes its nested types.
type scope struct {
	proto  string
	native string
	cpp    string
}

func (s scope) nested(name string) string {
	return s.cpp + "_" + name
}

func (w *walk) members(lay *layout.Message, s scope) error {
	for _, m := range lay.Members {
		switch {
		case m.Ignored:
			if w.opts.CommentIgnored {
				w.out.line("// ignored: %s", m.Native)
			}
		case m.Union != nil:
			if err := w.union(m.Union, s); err != nil {
				return err
			}
		default:
			if err := w.value(m.Node, s, field{name: m.Name}, s.native+m.Native); err != nil {
				return err
			}
		}
	}
	return nil
}

// union dispatches on the discriminant. Values without a case clear the
// whole group.
func (w *walk) union(u *layout.Union, s scope) error {
	disc := u.Discriminant
	if disc.Kind != typetree.KindEnumRef {
		return typetree.Unsupported(u.Node, "union selected by %s field %q", disc.Kind, disc.Name)
	}
	w.useNative(disc.TypeName)

	w.out.open("switch (%s%s) {", s.native, u.DiscriminantNative)
	for _, c := range u.Cases {
		if c.Ignored {
			if w.opts.CommentIgnored {
				w.out.line("// ignored: %s", c.Native)
			}
			continue
		}
		w.out.open("case ::%s::enums::%s::%s:", w.opts.NativeNamespace, disc.TypeName, c.Node.Name)
		if err := w.value(c.Node, s, field{name: c.Name}, s.native+c.Native); err != nil {
			return err
		}
		w.out.line("break;")
		w.out.depth--
	}
	w.out.open("default:")
	w.out.line("%sclear_%s();", s.proto, accessor(u.Name))
	w.out.depth--
	w.out.close()
	return nil
}

// loopVars returns the index and element variable names of the current
// loop nesting level.
func (w *walk) loopVars() (index, elem string) {
	if w.loops == 0 {
		return "i", "e"
	}
	return fmt.Sprintf("i%d", w.loops), fmt.Sprintf("e%d", w.loops)
}
