package proto

import (
	"fmt"
	"strings"
)

// Decl is a top-level or nested schema declaration.
type Decl interface {
	DeclName() string
	print(p *printer)
}

// Element is an entry of a message or oneof body.
type Element interface {
	print(p *printer)
}

// Message is a message declaration.
type Message struct {
	Name     string
	Comment  string
	Enums    []*Enum
	Messages []*Message
	Body     []Element
}

// Field is a message field. Label is empty for proto3 singular fields and
// oneof members.
type Field struct {
	Label  string
	Type   string
	Name   string
	Number int
}

// Oneof groups the cases of a union.
type Oneof struct {
	Name string
	Body []Element
}

// Comment is a line comment inside a body.
type Comment string

// Enum is an enum declaration.
type Enum struct {
	Name       string
	Comment    string
	AllowAlias bool
	Values     []EnumValue
}

// EnumValue is one value of an enum.
type EnumValue struct {
	Name   string
	Number int64
}

func (m *Message) DeclName() string { return m.Name }
func (e *Enum) DeclName() string    { return e.Name }

// Fields returns the fields of the message body, oneof members included.
func (m *Message) Fields() []*Field {
	var out []*Field
	var walk func(body []Element)
	walk = func(body []Element) {
		for _, el := range body {
			switch v := el.(type) {
			case *Field:
				out = append(out, v)
			case *Oneof:
				walk(v.Body)
			}
		}
	}
	walk(m.Body)
	return out
}

func (m *Message) hasNested(name string) bool {
	for _, e := range m.Enums {
		if e.Name == name {
			return true
		}
	}
	for _, n := range m.Messages {
		if n.Name == name {
			return true
		}
	}
	return false
}

type printer struct {
	sb    strings.Builder
	depth int
}

func (p *printer) printf(format string, args ...any) {
	p.sb.WriteString(strings.Repeat("  ", p.depth))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) comment(text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		p.printf("// %s", strings.TrimSpace(line))
	}
}

func (m *Message) print(p *printer) {
	p.comment(m.Comment)
	p.printf("message %s {", m.Name)
	p.depth++
	for _, e := range m.Enums {
		e.print(p)
	}
	for _, n := range m.Messages {
		n.print(p)
	}
	for _, el := range m.Body {
		el.print(p)
	}
	p.depth--
	p.printf("}")
}

func (f *Field) print(p *printer) {
	if f.Label != "" {
		p.printf("%s %s %s = %d;", f.Label, f.Type, f.Name, f.Number)
		return
	}
	p.printf("%s %s = %d;", f.Type, f.Name, f.Number)
}

func (o *Oneof) print(p *printer) {
	p.printf("oneof %s {", o.Name)
	p.depth++
	for _, el := range o.Body {
		el.print(p)
	}
	p.depth--
	p.printf("}")
}

func (c Comment) print(p *printer) {
	p.printf("// %s", string(c))
}

func (e *Enum) print(p *printer) {
	p.comment(e.Comment)
	p.printf("enum %s {", e.Name)
	p.depth++
	if e.AllowAlias {
		p.printf("option allow_alias = true;")
	}
	for _, v := range e.Values {
		p.printf("%s = %d;", v.Name, v.Number)
	}
	p.depth--
	p.printf("}")
}

// Print renders a declaration as schema text.
func Print(d Decl) string {
	var p printer
	d.print(&p)
	return p.sb.String()
}
