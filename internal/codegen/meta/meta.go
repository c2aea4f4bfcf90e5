package meta

import (
	"fmt"
	"slices"
)

// ImportSet is a set of type names kept in first-insertion order, so that
// generated import lines are identical across runs.
type ImportSet struct {
	names []string
	seen  map[string]struct{}
}

// Add inserts name unless it is already present and reports whether it was new.
func (s *ImportSet) Add(name string) bool {
	if name == "" {
		return false
	}
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	if _, ok := s.seen[name]; ok {
		return false
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
	return true
}

// AddAll inserts names in order.
func (s *ImportSet) AddAll(names ...string) {
	for _, n := range names {
		s.Add(n)
	}
}

// Has reports whether name is in the set.
func (s *ImportSet) Has(name string) bool {
	_, ok := s.seen[name]
	return ok
}

// Len returns the number of names.
func (s *ImportSet) Len() int { return len(s.names) }

// List returns the names in insertion order.
func (s *ImportSet) List() []string { return slices.Clone(s.names) }

// NullEntries selects what the glue code does with a null element of a
// container of pointers.
type NullEntries string

const (
	NullSkip     NullEntries = "skip"
	NullSentinel NullEntries = "sentinel"
	NullError    NullEntries = "error"
)

// Options are the per-run settings shared by every backend.
type Options struct {
	ProtoVersion     int
	ProtoPackage     string
	GlueNamespace    string
	NativeNamespace  string
	IgnoreNoExport   bool
	CommentIgnored   bool
	NullEntries      NullEntries
	IdentityFallback string
}

// DefaultOptions returns the settings the generated DFHack plugin expects.
func DefaultOptions() Options {
	return Options{
		ProtoVersion:     2,
		ProtoPackage:     "dfproto",
		GlueNamespace:    "DFProto",
		NativeNamespace:  "df",
		IgnoreNoExport:   true,
		NullEntries:      NullSkip,
		IdentityFallback: "id",
	}
}

// Validate checks option values that come from user input.
func (o Options) Validate() error {
	if o.ProtoVersion != 2 && o.ProtoVersion != 3 {
		return fmt.Errorf("unsupported proto version %d (expected 2 or 3)", o.ProtoVersion)
	}
	switch o.NullEntries {
	case NullSkip, NullSentinel, NullError:
	default:
		return fmt.Errorf("unknown null-entries policy %q", o.NullEntries)
	}
	if o.ProtoPackage == "" || o.GlueNamespace == "" || o.NativeNamespace == "" {
		return fmt.Errorf("package and namespace names must not be empty")
	}
	return nil
}

// InstanceVector is a global vector of instances of a type, passed through
// to the RPC outputs.
type InstanceVector struct {
	TypeName   string `json:"type"`
	Expression string `json:"expression"`
}

// ArtifactKind tells the batch driver which output directory a file goes to.
type ArtifactKind string

const (
	ArtifactProto  ArtifactKind = "proto"
	ArtifactCpp    ArtifactKind = "cpp"
	ArtifactHeader ArtifactKind = "h"
)

// Artifact is one generated file.
type Artifact struct {
	Kind    ArtifactKind
	Name    string
	Content string
}

// Bundle holds everything generated for one top-level type.
type Bundle struct {
	TypeName string
	Line     int

	// Ignored is set when an ignore rule selects the whole type. Such a
	// bundle carries no artifacts.
	Ignored bool

	Proto  string
	Cpp    string
	Header string

	// SchemaImports are the types imported by the .proto file.
	SchemaImports []string
	// NativeImports are the types whose native and protobuf headers the
	// glue code includes.
	NativeImports []string
	// GlueImports are the types whose describe procedure the glue calls.
	GlueImports []string
	// Dependencies are extra includes declared by depends rules.
	Dependencies []string

	InstanceVector *InstanceVector
}

// Artifacts lists the generated files of the bundle in emission order.
func (b *Bundle) Artifacts() []Artifact {
	if b == nil || b.Ignored {
		return nil
	}
	return []Artifact{
		{Kind: ArtifactProto, Name: b.TypeName + ".proto", Content: b.Proto},
		{Kind: ArtifactCpp, Name: b.TypeName + ".cpp", Content: b.Cpp},
		{Kind: ArtifactHeader, Name: b.TypeName + ".h", Content: b.Header},
	}
}
