package generator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfproto/protogen/internal/codegen/generator"
	"github.com/dfproto/protogen/internal/codegen/meta"
	"github.com/dfproto/protogen/internal/codegen/rules"
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

const definitions = `<ld:data-definition xmlns:ld="ns">
<ld:global-type ld:meta="struct-type" type-name="coord" export="true">
  <ld:field name="x" ld:meta="number" ld:subtype="int16_t"/>
  <ld:field name="y" ld:meta="number" ld:subtype="int16_t"/>
</ld:global-type>
<ld:global-type ld:meta="struct-type" type-name="campfire" export="true">
  <ld:field type-name="coord" name="pos" ld:meta="global"/>
  <ld:field name="timer" ld:meta="number" ld:subtype="int32_t"/>
</ld:global-type>
<ld:global-type ld:meta="struct-type" type-name="broken">
  <ld:field type-name="missing" name="pos" ld:meta="global"/>
</ld:global-type>
<ld:global-type ld:meta="class-type" type-name="unit" key-field="id" instance-vector="$global.world.units.all">
  <ld:field name="id" ld:meta="number" ld:subtype="int32_t"/>
  <ld:field name="pos" type-name="coord" ld:meta="global"/>
</ld:global-type>
</ld:data-definition>`

func setup(t *testing.T, ruleText string) (*typetree.Document, *generator.Generator) {
	t.Helper()
	doc, err := typetree.Load(strings.NewReader(definitions), "df.test.xml")
	require.NoError(t, err)
	cat := typetree.NewCatalog(doc)
	set, err := rules.Parse(strings.NewReader(ruleText), "rules.txt")
	require.NoError(t, err)
	gen, err := generator.New(cat, set, meta.DefaultOptions())
	require.NoError(t, err)
	return doc, gen
}

func typeNode(t *testing.T, doc *typetree.Document, name string) *typetree.Node {
	t.Helper()
	n, err := doc.Type(name)
	require.NoError(t, err)
	return n
}

func TestCompileBundle(t *testing.T) {
	doc, gen := setup(t, "depends campfire fire_helpers")

	b, err := gen.Compile(typeNode(t, doc, "campfire"))
	require.NoError(t, err)
	assert.False(t, b.Ignored)
	assert.Equal(t, []string{"coord"}, b.SchemaImports)
	assert.Empty(t, b.NativeImports)
	assert.Equal(t, []string{"coord"}, b.GlueImports)
	assert.Equal(t, []string{"fire_helpers"}, b.Dependencies)
	assert.Nil(t, b.InstanceVector)

	assert.Contains(t, b.Proto, "optional coord pos = 1;")
	assert.Contains(t, b.Cpp, "#include \"fire_helpers.h\"\n#include \"campfire.h\"\n#include \"coord.h\"\n")
	assert.Contains(t, b.Cpp, "describe_coord(proto->mutable_pos(), &dfhack->pos);")
	assert.Contains(t, b.Header, "void describe_campfire(dfproto::campfire* proto, df::campfire* dfhack);")

	var names []string
	for _, a := range b.Artifacts() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"campfire.proto", "campfire.cpp", "campfire.h"}, names)
}

// A by-value global field is described through the referenced type's glue
// and nested in the schema; it adds no native import.
func TestNestedGlobalImports(t *testing.T) {
	doc, gen := setup(t, "")

	b, err := gen.Compile(typeNode(t, doc, "campfire"))
	require.NoError(t, err)
	assert.Equal(t, []string{"coord"}, b.SchemaImports)
	assert.Empty(t, b.NativeImports)
	assert.Equal(t, []string{"coord"}, b.GlueImports)
	assert.Empty(t, b.Dependencies)

	assert.Contains(t, b.Proto, "  optional coord pos = 1;\n  optional int32 timer = 2;\n")
	describe := strings.Index(b.Cpp, "describe_coord(proto->mutable_pos(), &dfhack->pos);")
	timer := strings.Index(b.Cpp, "proto->set_timer(dfhack->timer);")
	require.NotEqual(t, -1, describe)
	require.NotEqual(t, -1, timer)
	assert.Less(t, describe, timer)
}

func TestCompileIsDeterministic(t *testing.T) {
	doc, gen := setup(t, "enum job_type\nenum announcement_type")
	_, other := setup(t, "enum announcement_type\nenum job_type")

	n := typeNode(t, doc, "unit")
	first, err := gen.Compile(n)
	require.NoError(t, err)
	second, err := gen.Compile(n)
	require.NoError(t, err)
	reordered, err := other.Compile(n)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated compilation differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, reordered); diff != "" {
		t.Errorf("rule order changed the output (-first +reordered):\n%s", diff)
	}
	assert.Equal(t, []string{"coord", "announcement_type", "job_type"}, first.SchemaImports)
}

func TestIgnoredType(t *testing.T) {
	doc, gen := setup(t, `ignore ld:global-type[@type-name="campfire"]`)

	b, err := gen.Compile(typeNode(t, doc, "campfire"))
	require.NoError(t, err)
	assert.True(t, b.Ignored)
	assert.Empty(t, b.Artifacts())
}

func TestInstanceVector(t *testing.T) {
	doc, gen := setup(t, "")

	b, err := gen.Compile(typeNode(t, doc, "unit"))
	require.NoError(t, err)
	require.NotNil(t, b.InstanceVector)
	assert.Equal(t, meta.InstanceVector{TypeName: "unit", Expression: "$global.world.units.all"}, *b.InstanceVector)
}

func TestTypeError(t *testing.T) {
	doc, gen := setup(t, "")

	_, err := gen.Compile(typeNode(t, doc, "broken"))
	require.Error(t, err)

	var typeErr *generator.TypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "broken", typeErr.TypeName)
	assert.Positive(t, typeErr.Line)
	assert.ErrorIs(t, err, typetree.ErrUnresolvedReference)
}

func TestCompileAll(t *testing.T) {
	doc, gen := setup(t, "")

	results, err := gen.CompileAll(context.Background(), doc.Types, 3)
	require.NoError(t, err)
	require.Len(t, results, len(doc.Types))

	for i, r := range results {
		assert.Same(t, doc.Types[i], r.Node)
		if r.Node.TypeName == "broken" {
			assert.ErrorIs(t, r.Err, typetree.ErrUnresolvedReference)
			assert.Nil(t, r.Bundle)
			continue
		}
		require.NoError(t, r.Err)
		assert.Equal(t, r.Node.TypeName, r.Bundle.TypeName)
	}
}

func TestCompileAllCancelled(t *testing.T) {
	doc, gen := setup(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.CompileAll(ctx, doc.Types, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadOptions(t *testing.T) {
	opts := meta.DefaultOptions()
	opts.ProtoVersion = 4
	_, err := generator.New(nil, nil, opts)
	assert.Error(t, err)
}
