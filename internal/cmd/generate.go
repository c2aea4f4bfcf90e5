package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dfproto/protogen/internal/codegen/common"
	"github.com/dfproto/protogen/internal/codegen/generator"
	"github.com/dfproto/protogen/internal/codegen/generator/rpc"
	"github.com/dfproto/protogen/internal/codegen/meta"
	"github.com/dfproto/protogen/internal/codegen/rules"
	"github.com/dfproto/protogen/internal/codegen/typetree"
	"github.com/dfproto/protogen/internal/log"
)

type Generate struct {
	Input string `arg:"" optional:"" help:"Structure-definition directory (df.*.xml) or file" default:"." env:"PROTOGEN_INPUT"`

	ProtoOut string `help:"Output directory for .proto files" default:"./protogen" env:"PROTOGEN_PROTO_OUT"`
	CppOut   string `help:"Output directory for .cpp files" default:"./protogen" env:"PROTOGEN_CPP_OUT"`
	HOut     string `name:"h-out" help:"Output directory for .h files" default:"./protogen" env:"PROTOGEN_H_OUT"`
	Methods  string `help:"RPC method list, empty disables it" default:"./protogen/methods.inc" env:"PROTOGEN_METHODS"`
	Grpc     string `help:"RPC list messages, empty disables them" default:"./protogen/grpc.proto" env:"PROTOGEN_GRPC"`
	Manifest string `help:"Write a JSON report of the run to this file" env:"PROTOGEN_MANIFEST"`

	Exceptions []string `help:"Override rule file, may be repeated" env:"PROTOGEN_EXCEPTIONS"`

	ProtoVersion     int    `help:"Protobuf syntax version (2 or 3)" default:"2" env:"PROTOGEN_PROTO_VERSION"`
	NullEntries      string `help:"Null elements of pointer containers" enum:"skip,sentinel,error" default:"skip" env:"PROTOGEN_NULL_ENTRIES"`
	IdentityFallback string `help:"Identity field of referenced types without key-field" default:"id" env:"PROTOGEN_IDENTITY_FALLBACK"`
	ProtoPackage     string `help:"Protobuf package of the schemas" default:"dfproto" env:"PROTOGEN_PROTO_PACKAGE"`
	GlueNamespace    string `help:"C++ namespace of the describe procedures" default:"DFProto" env:"PROTOGEN_GLUE_NAMESPACE"`
	NativeNamespace  string `help:"C++ namespace of the native types" default:"df" env:"PROTOGEN_NATIVE_NAMESPACE"`

	AllTypes       bool `help:"Generate every global type, not only export=\"true\" ones" env:"PROTOGEN_ALL_TYPES"`
	KeepNoExport   bool `help:"Keep fields marked export=\"false\"" env:"PROTOGEN_KEEP_NO_EXPORT"`
	CommentIgnored bool `help:"Emit ignored fields as comments" env:"PROTOGEN_COMMENT_IGNORED"`
	Quiet          bool `short:"q" help:"Only report errors" env:"PROTOGEN_QUIET"`
	Jobs           int  `short:"j" help:"Types compiled in parallel, 0 uses all CPUs" default:"0" env:"PROTOGEN_JOBS"`
}

// Run is called by Kong when the generate command is executed.
func (g *Generate) Run(logger *slog.Logger, artifacts log.ArtifactLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if g.Quiet {
		logger = slog.New(log.AtLeast(slog.LevelError, logger.Handler()))
	}
	report, err := g.Execute(ctx, logger, artifacts)
	if err != nil {
		return err
	}
	if !g.Quiet {
		printSummary(os.Stderr, report)
	}
	return report.Err()
}

func (g *Generate) options() meta.Options {
	return meta.Options{
		ProtoVersion:     g.ProtoVersion,
		ProtoPackage:     g.ProtoPackage,
		GlueNamespace:    g.GlueNamespace,
		NativeNamespace:  g.NativeNamespace,
		IgnoreNoExport:   !g.KeepNoExport,
		CommentIgnored:   g.CommentIgnored,
		NullEntries:      meta.NullEntries(g.NullEntries),
		IdentityFallback: g.IdentityFallback,
	}
}

// Execute generates every selected type of the input. Option, rule and
// input errors abort the run; failing types are only recorded in the
// report.
func (g *Generate) Execute(ctx context.Context, logger *slog.Logger, artifacts log.ArtifactLogger) (*Report, error) {
	opts := g.options()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	set, err := loadRules(g.Exceptions)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded rules", "files", g.Exceptions, "rules", set.Len())

	inputs, err := discoverInputs(g.Input)
	if err != nil {
		return nil, err
	}
	docs, err := loadDocuments(inputs)
	if err != nil {
		return nil, err
	}
	cat := typetree.NewCatalog(docs...)
	dups := map[*typetree.Node]typetree.Duplicate{}
	for _, d := range cat.Duplicates() {
		dups[d.Node] = d
	}
	gen, err := generator.New(cat, set, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{Inputs: inputs}
	if v, err := common.GetVersion(); err == nil {
		report.Version = v
	}
	var nodes []*typetree.Node
	sources := map[*typetree.Node]string{}
	for _, doc := range docs {
		logger.Info("processing file", "file", doc.Path, "types", len(doc.Types))
		for _, f := range doc.Failed {
			logger.Error("error loading type", "type", f.TypeName, "file", doc.Path, "line", f.Line, "error", f.Err)
			report.add(TypeReport{
				Type:   f.TypeName,
				Source: doc.Path,
				Line:   f.Line,
				Status: StatusFailed,
				Error:  f.Err.Error(),
			})
		}
		for _, el := range doc.Skipped {
			logger.Debug("skipped element", "file", doc.Path, "element", el)
		}
		for _, n := range doc.Types {
			if !g.AllTypes && !n.Exported() {
				logger.Debug("skipped type", "type", n.TypeName, "file", doc.Path)
				report.Skipped++
				continue
			}
			if d, ok := dups[n]; ok {
				logger.Error("error loading type", "type", n.TypeName, "file", d.Path, "line", n.Line, "error", d.Err)
				report.add(TypeReport{
					Type:   n.TypeName,
					Source: d.Path,
					Line:   n.Line,
					Status: StatusFailed,
					Error:  d.Err.Error(),
				})
				continue
			}
			nodes = append(nodes, n)
			sources[n] = doc.Path
		}
	}

	results, err := gen.CompileAll(ctx, nodes, g.Jobs)
	if err != nil {
		return nil, err
	}

	var vectors []meta.InstanceVector
	for _, r := range results {
		tr := TypeReport{Type: r.Node.TypeName, Source: sources[r.Node], Line: r.Node.Line}
		switch {
		case r.Err != nil:
			logger.Error("error rendering type", "type", r.Node.TypeName, "file", tr.Source, "line", tr.Line, "error", r.Err)
			tr.Status = StatusFailed
			tr.Error = r.Err.Error()
		case r.Bundle.Ignored:
			logger.Info("ignored type", "type", r.Node.TypeName)
			tr.Status = StatusIgnored
		default:
			files, err := g.writeBundle(r.Bundle, artifacts)
			if err != nil {
				return nil, err
			}
			logger.Info("created type", "type", r.Node.TypeName, "files", len(files))
			tr.Status = StatusCreated
			tr.Files = files
			tr.SchemaImports = r.Bundle.SchemaImports
			tr.NativeImports = r.Bundle.NativeImports
			tr.GlueImports = r.Bundle.GlueImports
			tr.Dependencies = r.Bundle.Dependencies
			if iv := r.Bundle.InstanceVector; iv != nil {
				vectors = append(vectors, *iv)
				tr.InstanceVector = iv
			}
		}
		report.add(tr)
	}

	if g.Methods != "" {
		text, err := rpc.Methods(vectors)
		if err != nil {
			return nil, err
		}
		if err := writeFile(g.Methods, text); err != nil {
			return nil, err
		}
		logger.Info("created method list", "file", g.Methods, "methods", len(vectors))
		report.Methods = g.Methods
	}
	if g.Grpc != "" {
		text, err := rpc.Messages(vectors, opts)
		if err != nil {
			return nil, err
		}
		if err := writeFile(g.Grpc, text); err != nil {
			return nil, err
		}
		logger.Info("created list messages", "file", g.Grpc, "messages", len(vectors))
		report.Grpc = g.Grpc
	}
	if g.Manifest != "" {
		if err := report.WriteFile(g.Manifest); err != nil {
			return nil, err
		}
		logger.Info("created manifest", "file", g.Manifest)
	}
	return report, nil
}

func (g *Generate) outputDir(kind meta.ArtifactKind) string {
	switch kind {
	case meta.ArtifactCpp:
		return g.CppOut
	case meta.ArtifactHeader:
		return g.HOut
	}
	return g.ProtoOut
}

func (g *Generate) writeBundle(b *meta.Bundle, artifacts log.ArtifactLogger) ([]string, error) {
	var files []string
	for _, a := range b.Artifacts() {
		path := filepath.Join(g.outputDir(a.Kind), a.Name)
		if err := writeFile(path, a.Content); err != nil {
			return nil, err
		}
		artifacts.Log(b.TypeName, a)
		files = append(files, path)
	}
	return files, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// discoverInputs expands a directory into its df.*.xml files.
func discoverInputs(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	if !info.IsDir() {
		return []string{input}, nil
	}
	matches, err := filepath.Glob(filepath.Join(input, "df.*.xml"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no df.*.xml files in %s", input)
	}
	return matches, nil
}

func loadDocuments(paths []string) ([]*typetree.Document, error) {
	docs := make([]*typetree.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := typetree.LoadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadRules(paths []string) (*rules.Set, error) {
	set := rules.NewSet()
	for _, p := range paths {
		s, err := rules.LoadFile(p)
		if err != nil {
			return nil, err
		}
		set = set.Merge(s)
	}
	return set, nil
}
