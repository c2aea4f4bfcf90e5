package typetree

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Document is one parsed structure-definition file.
type Document struct {
	Path  string
	Root  *Node
	Types []*Node

	// Failed holds the top-level definitions that could not be built.
	// They are reported per type and never abort the whole document.
	Failed []Failure
	// Skipped names the root children that are not global types
	// (global objects and the like).
	Skipped []string
}

// Failure is a top-level definition that failed to load.
type Failure struct {
	TypeName string
	Line     int
	Err      error
}

// Type returns the top-level type with the given name.
func (d *Document) Type(name string) (*Node, error) {
	for _, t := range d.Types {
		if t.TypeName == name {
			return t, nil
		}
	}
	for _, f := range d.Failed {
		if f.TypeName == name {
			return nil, f.Err
		}
	}
	return nil, fmt.Errorf("%s: no global type %q", d.Path, name)
}

// LoadFile parses the structure-definition file at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, path)
}

type rawElement struct {
	name     string
	local    string
	attrs    []Attr
	children []*rawElement
	line     int
}

// Load parses a structure-definition document. Syntax errors of the XML
// itself fail the whole document; malformed type definitions are collected
// in Document.Failed.
func Load(r io.Reader, path string) (*Document, error) {
	root, err := parseRaw(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc := &Document{
		Path: path,
		Root: &Node{Element: root.name, Attrs: root.attrs, Line: root.line},
	}
	for _, el := range root.children {
		if el.local != "global-type" {
			name := attrValue(el.attrs, "type-name")
			if name == "" {
				name = attrValue(el.attrs, "name")
			}
			doc.Skipped = append(doc.Skipped, name)
			continue
		}
		n, err := buildTop(el, doc.Root)
		if err != nil {
			name := attrValue(el.attrs, "type-name")
			if name == "" {
				name = attrValue(el.attrs, "name")
			}
			doc.Failed = append(doc.Failed, Failure{TypeName: name, Line: el.line, Err: err})
			continue
		}
		doc.Types = append(doc.Types, n)
	}
	return doc, nil
}

func parseRaw(r io.Reader) (*rawElement, error) {
	decoder := xml.NewDecoder(r)
	prefixes := map[string]string{}

	var stack []*rawElement
	var root *rawElement

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					if _, ok := prefixes[a.Value]; !ok {
						prefixes[a.Value] = a.Name.Local
					}
				}
			}
			line, _ := decoder.InputPos()
			el := &rawElement{
				name:  qualify(prefixes, t.Name),
				local: t.Name.Local,
				line:  line,
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				el.attrs = append(el.attrs, Attr{Name: qualify(prefixes, a.Name), Value: a.Value})
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else if root == nil {
				root = el
			} else {
				return nil, fmt.Errorf("line %d: unexpected element %s after document end", line, t.Name.Local)
			}
			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return root, nil
}

func qualify(prefixes map[string]string, name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	if p, ok := prefixes[name.Space]; ok {
		return p + ":" + name.Local
	}
	return name.Space + ":" + name.Local
}

func attrValue(attrs []Attr, name string) string {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// attrLocal finds an attribute by its local part, whatever prefix the
// document bound to the definition namespace.
func attrLocal(attrs []Attr, local string) string {
	for _, a := range attrs {
		if a.Name == local {
			return a.Value
		}
		if i := strings.IndexByte(a.Name, ':'); i >= 0 && a.Name[i+1:] == local {
			return a.Value
		}
	}
	return ""
}

func buildTop(el *rawElement, root *Node) (*Node, error) {
	n := &Node{
		Element: el.name,
		Attrs:   el.attrs,
		Line:    el.line,
		Parent:  root,

		Name:           attrValue(el.attrs, "name"),
		TypeName:       attrValue(el.attrs, "type-name"),
		Subtype:        attrLocal(el.attrs, "subtype"),
		BaseType:       attrValue(el.attrs, "base-type"),
		InheritsFrom:   attrValue(el.attrs, "inherits-from"),
		KeyField:       attrValue(el.attrs, "key-field"),
		InstanceVector: attrValue(el.attrs, "instance-vector"),
		Export:         attrValue(el.attrs, "export"),
		Since:          attrValue(el.attrs, "since"),
		Comment:        attrValue(el.attrs, "comment"),
	}
	if n.TypeName == "" {
		n.TypeName = n.Name
	}

	meta := attrLocal(el.attrs, "meta")
	if meta == "" {
		return nil, malformed(n, "missing ld:meta")
	}
	n.Kind = topLevelKind(meta)
	if n.Kind == KindInvalid {
		return nil, malformed(n, "unknown global type kind %q", meta)
	}
	if n.TypeName == "" {
		return nil, malformed(n, "missing type-name")
	}

	if err := buildChildren(n, el); err != nil {
		return nil, err
	}
	return n, nil
}

func buildChildren(n *Node, el *rawElement) error {
	var next int64
	for _, c := range el.children {
		switch c.local {
		case "field":
			child, err := buildField(c, n)
			if err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		case "item":
			if n.Item != nil {
				return malformed(n, "more than one item element")
			}
			item, err := buildField(c, n)
			if err != nil {
				return err
			}
			n.Item = item
		case "enum-item":
			it := EnumItem{
				Name:    attrValue(c.attrs, "name"),
				Value:   next,
				Comment: attrValue(c.attrs, "comment"),
			}
			if v := attrValue(c.attrs, "value"); v != "" {
				parsed, err := strconv.ParseInt(v, 0, 64)
				if err != nil {
					return malformed(n, "enum-item %q: bad value %q", it.Name, v)
				}
				it.Value = parsed
			}
			next = it.Value + 1
			n.EnumItems = append(n.EnumItems, it)
		}
	}
	return nil
}

func buildField(el *rawElement, parent *Node) (*Node, error) {
	n := &Node{
		Element: el.name,
		Attrs:   el.attrs,
		Line:    el.line,
		Parent:  parent,

		Name:        attrValue(el.attrs, "name"),
		TypeName:    attrValue(el.attrs, "type-name"),
		TypedefName: attrLocal(el.attrs, "typedef-name"),
		IsContainer: attrLocal(el.attrs, "is-container") == "true",
		IsUnion:     attrValue(el.attrs, "is-union") == "true",
		InUnion:     parent.IsUnion,
		BaseType:    attrValue(el.attrs, "base-type"),
		Count:       attrValue(el.attrs, "count"),
		UnionTag:    attrValue(el.attrs, "union-tag-field"),
		Export:      attrValue(el.attrs, "export"),
		Since:       attrValue(el.attrs, "since"),
		Comment:     attrValue(el.attrs, "comment"),
	}
	if n.Name == "" {
		n.Anonymous = true
		n.Name = attrLocal(el.attrs, "anon-name")
	}

	meta := attrLocal(el.attrs, "meta")
	if meta == "" {
		return nil, malformed(n, "missing ld:meta")
	}
	n.Kind, n.Subtype = fieldKind(meta, attrLocal(el.attrs, "subtype"))
	if n.Kind == KindInvalid {
		return nil, malformed(n, "unknown field kind %q", meta)
	}

	if bits := attrLocal(el.attrs, "bits"); bits != "" {
		v, err := strconv.Atoi(bits)
		if err != nil || v < 0 {
			return nil, malformed(n, "bad ld:bits %q", bits)
		}
		n.Bits = v
	} else if n.Kind == KindNumber && n.Subtype == "flag-bit" {
		n.Bits = 1
		if n.Count != "" {
			v, err := strconv.Atoi(n.Count)
			if err != nil || v < 1 {
				return nil, malformed(n, "bad count %q", n.Count)
			}
			n.Bits = v
		}
	}

	if err := buildChildren(n, el); err != nil {
		return nil, err
	}

	if n.Kind == KindPointer {
		n.RefTarget = n.TypeName
		if n.Item != nil && n.Item.TypeName != "" {
			n.RefTarget = n.Item.TypeName
		}
	}
	return n, nil
}
