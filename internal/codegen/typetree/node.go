package typetree

import (
	"fmt"
	"strings"
)

// Attr is one attribute of a definition element, with its prefixed name
// (e.g. "ld:meta", "type-name").
type Attr struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// EnumItem is one value of an enum type.
type EnumItem struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Value   int64  `json:"value" yaml:"value"`
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Node is one element of a structure definition: a top-level type, a field
// or a container/pointer item. Nodes are immutable once loaded.
type Node struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Element string `json:"element" yaml:"element"`
	Subtype string `json:"subtype,omitempty" yaml:"subtype,omitempty"`

	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	TypeName    string `json:"typeName,omitempty" yaml:"typeName,omitempty"`
	TypedefName string `json:"typedefName,omitempty" yaml:"typedefName,omitempty"`

	// Anonymous is set when the element has no native name; Name then
	// holds the generated ld:anon-name, if any.
	Anonymous bool `json:"anonymous,omitempty" yaml:"anonymous,omitempty"`

	IsContainer bool `json:"isContainer,omitempty" yaml:"isContainer,omitempty"`
	IsUnion     bool `json:"isUnion,omitempty" yaml:"isUnion,omitempty"`
	InUnion     bool `json:"inUnion,omitempty" yaml:"inUnion,omitempty"`

	Item           *Node  `json:"item,omitempty" yaml:"item,omitempty"`
	RefTarget      string `json:"refTarget,omitempty" yaml:"refTarget,omitempty"`
	BaseType       string `json:"baseType,omitempty" yaml:"baseType,omitempty"`
	InheritsFrom   string `json:"inheritsFrom,omitempty" yaml:"inheritsFrom,omitempty"`
	KeyField       string `json:"keyField,omitempty" yaml:"keyField,omitempty"`
	UnionTag       string `json:"unionTag,omitempty" yaml:"unionTag,omitempty"`
	Bits           int    `json:"bits,omitempty" yaml:"bits,omitempty"`
	Count          string `json:"count,omitempty" yaml:"count,omitempty"`
	Since          string `json:"since,omitempty" yaml:"since,omitempty"`
	InstanceVector string `json:"instanceVector,omitempty" yaml:"instanceVector,omitempty"`
	Export         string `json:"export,omitempty" yaml:"export,omitempty"`
	Comment        string `json:"comment,omitempty" yaml:"comment,omitempty"`

	EnumItems []EnumItem `json:"enumItems,omitempty" yaml:"enumItems,omitempty"`
	Children  []*Node    `json:"children,omitempty" yaml:"children,omitempty"`
	Attrs     []Attr     `json:"-" yaml:"-"`
	Line      int        `json:"line,omitempty" yaml:"line,omitempty"`

	Parent *Node `json:"-" yaml:"-"`
}

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Top returns the top-level type that contains n.
func (n *Node) Top() *Node {
	cur := n
	for cur.Parent != nil && !cur.Kind.IsTopLevel() {
		cur = cur.Parent
	}
	return cur
}

// Path returns the chain of elements from the document root down to n.
func (n *Node) Path() []*Node {
	var out []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// String renders the path of n for error messages, e.g.
// "campfire/pos" or "conversation/unk_54/item".
func (n *Node) String() string {
	var parts []string
	for _, p := range n.Path() {
		switch {
		case p.Kind.IsTopLevel():
			parts = append(parts, p.TypeName)
		case p.Kind == KindInvalid:
		case p.Name != "":
			parts = append(parts, p.Name)
		default:
			parts = append(parts, strings.TrimPrefix(p.Element, "ld:"))
		}
	}
	return strings.Join(parts, "/")
}

// LocalTypeName is the name of the type declared by an inline compound:
// the typedef name when the definition names one, T_<field> otherwise.
func (n *Node) LocalTypeName() string {
	if n.TypedefName != "" {
		return n.TypedefName
	}
	if n.Kind.IsTopLevel() {
		return n.TypeName
	}
	return "T_" + n.Name
}

// IsAnonymous reports whether n is a nameless compound whose members are
// accessed directly through the enclosing value.
func (n *Node) IsAnonymous() bool {
	return n.Kind == KindCompound && n.Anonymous
}

// NotExported reports whether the definition marks n as not exported.
func (n *Node) NotExported() bool {
	return n.Export == "false" || n.Export == "no"
}

// Exported reports whether a top-level type is marked for export.
func (n *Node) Exported() bool {
	return n.Export == "true"
}

// Enum helpers.

// EnumItem looks up an item of an enum node by name.
func (n *Node) EnumItem(name string) (EnumItem, bool) {
	for _, it := range n.EnumItems {
		if it.Name == name {
			return it, true
		}
	}
	return EnumItem{}, false
}

// Field returns the direct child field with the given native name.
func (n *Node) Field(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) describe() string {
	if n.Name != "" {
		return fmt.Sprintf("%s %q", n.Element, n.Name)
	}
	if n.TypeName != "" {
		return fmt.Sprintf("%s %q", n.Element, n.TypeName)
	}
	return n.Element
}

// Walk calls fn for n and every field and item below it, depth first.
// Walking stops at the first node for which fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	if n.Item != nil {
		return n.Item.Walk(fn)
	}
	return true
}
