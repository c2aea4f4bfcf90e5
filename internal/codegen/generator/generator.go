// Package generator compiles top-level types into their artifact bundles:
// the .proto schema, the .cpp describe procedure and the .h interface.
package generator

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dfproto/protogen/internal/codegen/generator/cpp"
	"github.com/dfproto/protogen/internal/codegen/generator/proto"
	"github.com/dfproto/protogen/internal/codegen/meta"
	"github.com/dfproto/protogen/internal/codegen/rules"
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// Generator compiles the types of one run. All of its state is read-only
// after New, so Compile may be called from several goroutines.
type Generator struct {
	rules  *rules.Set
	opts   meta.Options
	schema *proto.Compiler
	glue   *cpp.Compiler
}

// New returns a Generator for the types of cat under the rule set.
func New(cat *typetree.Catalog, set *rules.Set, opts meta.Options) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		rules:  set,
		opts:   opts,
		schema: proto.New(cat, set, opts),
		glue:   cpp.New(cat, set, opts),
	}, nil
}

// Options returns the settings of the run.
func (g *Generator) Options() meta.Options { return g.opts }

// Compile builds the bundle of the top-level type n. Every failure is
// returned as a *TypeError naming the type.
func (g *Generator) Compile(n *typetree.Node) (*meta.Bundle, error) {
	b, err := g.compile(n)
	if err != nil {
		return nil, &TypeError{TypeName: n.TypeName, Line: n.Line, Err: err}
	}
	return b, nil
}

func (g *Generator) compile(n *typetree.Node) (*meta.Bundle, error) {
	if !n.Kind.IsTopLevel() {
		return nil, typetree.Malformed(n, "%s is not a top-level type", n.Kind)
	}
	b := &meta.Bundle{TypeName: n.TypeName, Line: n.Line}
	if g.rules.Ignores(n) {
		b.Ignored = true
		return b, nil
	}

	schema, err := g.schema.Compile(n)
	if err != nil {
		return nil, err
	}
	if b.Proto, err = g.schema.Render(schema); err != nil {
		return nil, err
	}
	b.SchemaImports = schema.Imports

	glue, err := g.glue.Compile(n)
	if err != nil {
		return nil, err
	}
	b.Dependencies = g.rules.Dependencies(n.TypeName)
	if b.Cpp, err = g.glue.RenderSource(glue, b.Dependencies); err != nil {
		return nil, err
	}
	if b.Header, err = g.glue.RenderHeader(glue); err != nil {
		return nil, err
	}
	b.NativeImports = glue.NativeImports
	b.GlueImports = glue.GlueImports

	if n.InstanceVector != "" {
		b.InstanceVector = &meta.InstanceVector{TypeName: n.TypeName, Expression: n.InstanceVector}
	}
	return b, nil
}

// Result is the outcome of compiling one type in a batch.
type Result struct {
	Node   *typetree.Node
	Bundle *meta.Bundle
	Err    error
}

// CompileAll compiles nodes on up to jobs goroutines (GOMAXPROCS when jobs
// is not positive). Results are returned in the order of nodes; a failing
// type never stops the others. Only cancellation of ctx fails the batch.
func (g *Generator) CompileAll(ctx context.Context, nodes []*typetree.Node, jobs int) ([]Result, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(nodes))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for i, n := range nodes {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := g.Compile(n)
			results[i] = Result{Node: n, Bundle: b, Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("compile types: %w", err)
	}
	return results, nil
}
