package rules_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfproto/protogen/internal/codegen/rules"
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

const defs = `<ld:data-definition xmlns:ld="ns">
<ld:global-type ld:meta="struct-type" type-name="entity_position_raw">
  <ld:field name="squad_size" ld:meta="number" ld:subtype="int16_t"/>
  <ld:field name="unk_1" ld:meta="number" ld:subtype="int32_t"/>
  <ld:field ld:meta="compound" name="flags">
    <ld:field name="unk_2" ld:meta="number" ld:subtype="int32_t" export="false"/>
  </ld:field>
</ld:global-type>
<ld:global-type ld:meta="struct-type" type-name="other">
  <ld:field name="squad_size" ld:meta="number" ld:subtype="int16_t"/>
</ld:global-type>
</ld:data-definition>`

func loadDefs(t *testing.T) *typetree.Document {
	t.Helper()
	doc, err := typetree.Load(strings.NewReader(defs), "defs.xml")
	require.NoError(t, err)
	return doc
}

func TestSelectorMatch(t *testing.T) {
	doc := loadDefs(t)
	raw, _ := doc.Type("entity_position_raw")
	other, _ := doc.Type("other")
	squad := raw.Children[0]
	unk1 := raw.Children[1]
	unk2 := raw.Children[2].Children[0]

	tests := []struct {
		name     string
		selector string
		node     *typetree.Node
		want     bool
	}{
		{"exact field", `ld:global-type[@type-name="entity_position_raw"]/ld:field[@name="squad_size"]`, squad, true},
		{"exact field other type", `ld:global-type[@type-name="entity_position_raw"]/ld:field[@name="squad_size"]`, other.Children[0], false},
		{"single quotes", `ld:global-type[@type-name='other']/ld:field[@name='squad_size']`, other.Children[0], true},
		{"relative is anchored at root children", `ld:field[@name="squad_size"]`, squad, false},
		{"descendant", `//ld:field[@name="unk_2"]`, unk2, true},
		{"inner descendant", `ld:global-type//ld:field[@name="unk_2"]`, unk2, true},
		{"child is not descendant", `ld:global-type/ld:field[@name="unk_2"]`, unk2, false},
		{"absolute", `/ld:data-definition/ld:global-type[@type-name="other"]`, other, true},
		{"absolute wrong root", `/root/ld:global-type`, other, false},
		{"wildcard", `*[@type-name="other"]`, other, true},
		{"regex", `//ld:field[re:test(@name, '^unk_')]`, unk1, true},
		{"regex miss", `//ld:field[re:test(@name, '^unk_')]`, squad, false},
		{"attribute presence", `//ld:field[@export]`, unk2, true},
		{"not", `//ld:field[not(@export)]`, unk2, false},
		{"and", `//ld:field[@ld:subtype="int32_t" and re:test(@name, '1$')]`, unk1, true},
		{"or", `//ld:field[@name="nope" or @name="squad_size"]`, squad, true},
		{"inequality", `//ld:field[@name!="squad_size"]`, unk1, true},
		{"stacked predicates", `//ld:field[@ld:meta="number"][@name="unk_1"]`, unk1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := rules.ParseSelector(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Match(tt.node))
			assert.Equal(t, tt.selector, sel.String())
		})
	}
}

func TestParseSelectorErrors(t *testing.T) {
	for _, src := range []string{
		``,
		`ld:field[`,
		`ld:field[@name=]`,
		`ld:field[@name="x]`,
		`ld:field[re:test(@name, '(')]`,
		`ld:field]`,
		`ld:field[foo]`,
	} {
		t.Run(src, func(t *testing.T) {
			_, err := rules.ParseSelector(src)
			assert.Error(t, err)
		})
	}
}

func TestParse(t *testing.T) {
	src := `
# comment
rename ld:global-type[@type-name="entity_position_raw"]/ld:field[@name="squad_size"] squad_sz

ignore //ld:field[re:test(@name, '^unk_')]
index ld:global-type[@type-name="other"]/ld:field[@name="squad_size"] 7
enum job_type
enum announcement_type
enum job_type
depends unit unit_inventory_item
depends unit unit_inventory_item
`
	set, err := rules.Parse(strings.NewReader(src), "rules.txt")
	require.NoError(t, err)
	assert.Equal(t, 8, set.Len())

	renames := set.Rules(rules.KindRename)
	require.Len(t, renames, 1)
	assert.Equal(t, "squad_sz", renames[0].Name)
	assert.Equal(t, 3, renames[0].Line)

	ignores := set.Rules(rules.KindIgnore)
	require.Len(t, ignores, 1)
	assert.Equal(t, `//ld:field[re:test(@name, '^unk_')]`, ignores[0].Selector.String())

	assert.Equal(t, 7, set.Rules(rules.KindIndex)[0].Index)
	if diff := cmp.Diff([]string{"announcement_type", "job_type"}, set.ForcedImports()); diff != "" {
		t.Errorf("forced imports mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, set.IsForcedImport("job_type"))
	assert.False(t, set.IsForcedImport("unit"))
	assert.Equal(t, []string{"unit_inventory_item"}, set.Dependencies("unit"))
	assert.Empty(t, set.Dependencies("item"))
	assert.Equal(t, "depends unit unit_inventory_item", set.Rules(rules.KindDepends)[0].String())
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown directive", "drop //ld:field"},
		{"rename without name", "rename //ld:field"},
		{"rename bad name", "rename //ld:field 9lives"},
		{"index not a number", "index //ld:field x"},
		{"index zero", "index //ld:field 0"},
		{"index reserved", "index //ld:field 19500"},
		{"index too large", "index //ld:field 536870912"},
		{"ignore without selector", "ignore"},
		{"bad selector", "ignore ld:field["},
		{"enum arity", "enum a b"},
		{"depends arity", "depends a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.Parse(strings.NewReader("# header\n"+tt.line+"\n"), "rules.txt")
			require.Error(t, err)
			assert.ErrorIs(t, err, rules.ErrRuleSyntax)
			var se *rules.SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 2, se.Line)
		})
	}
}

func TestOverride(t *testing.T) {
	doc := loadDefs(t)
	raw, _ := doc.Type("entity_position_raw")
	squad := raw.Children[0]
	unk1 := raw.Children[1]

	set, err := rules.Parse(strings.NewReader(`
rename ld:global-type[@type-name="entity_position_raw"]/ld:field[@name="squad_size"] squad_sz
rename //ld:field[@name="squad_size"] squad_sz
index //ld:field[@name="squad_size"] 5
ignore //ld:field[@name="unk_1"]
`), "rules.txt")
	require.NoError(t, err)

	o, err := set.Override(squad)
	require.NoError(t, err)
	assert.Equal(t, rules.Override{Rename: "squad_sz", Index: 5}, o)
	assert.True(t, o.Explicit())

	o, err = set.Override(unk1)
	require.NoError(t, err)
	assert.Equal(t, rules.Override{Ignore: true}, o)
	assert.False(t, o.Explicit())
	assert.True(t, set.Ignores(unk1))
	assert.False(t, set.Ignores(squad))

	var none *rules.Set
	o, err = none.Override(squad)
	require.NoError(t, err)
	assert.Equal(t, rules.Override{}, o)
}

func TestOverrideConflicts(t *testing.T) {
	doc := loadDefs(t)
	raw, _ := doc.Type("entity_position_raw")
	squad := raw.Children[0]

	tests := []struct {
		name  string
		rules string
	}{
		{"two renames", "rename //ld:field[@name=\"squad_size\"] a\nrename //ld:field[@name=\"squad_size\"] b"},
		{"two indexes", "index //ld:field[@name=\"squad_size\"] 2\nindex //ld:field[@name=\"squad_size\"] 3"},
		{"ignore and rename", "ignore //ld:field[@name=\"squad_size\"]\nrename //ld:field a"},
		{"ignore and index", "index //ld:field 4\nignore //ld:field[@name=\"squad_size\"]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := rules.Parse(strings.NewReader(tt.rules), "rules.txt")
			require.NoError(t, err)
			_, err = set.Override(squad)
			require.ErrorIs(t, err, rules.ErrRuleConflict)
			var ce *rules.ConflictError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "entity_position_raw/squad_size", ce.Node)
		})
	}
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
rename:
  - selector: ld:global-type[@type-name="entity_position_raw"]/ld:field[@name="squad_size"]
    name: squad_sz
ignore:
  - //ld:field[re:test(@name, '^unk_')]
index:
  - selector: //ld:field[@name="squad_size"]
    index: 9
enum: [job_type]
depends:
  - type: unit
    requires: unit_wound
`), 0644))

	tomlPath := filepath.Join(dir, "rules.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
ignore = ["//ld:field[re:test(@name, '^unk_')]"]
enum = ["job_type"]

[[rename]]
selector = 'ld:global-type[@type-name="entity_position_raw"]/ld:field[@name="squad_size"]'
name = "squad_sz"

[[index]]
selector = '//ld:field[@name="squad_size"]'
index = 9

[[depends]]
type = "unit"
requires = "unit_wound"
`), 0644))

	txtPath := filepath.Join(dir, "exceptions.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte(`rename ld:global-type[@type-name="entity_position_raw"]/ld:field[@name="squad_size"] squad_sz
ignore //ld:field[re:test(@name, '^unk_')]
index //ld:field[@name="squad_size"] 9
enum job_type
depends unit unit_wound
`), 0644))

	var rendered [][]string
	for _, path := range []string{yamlPath, tomlPath, txtPath} {
		set, err := rules.LoadFile(path)
		require.NoError(t, err, path)
		var lines []string
		for _, r := range set.All() {
			lines = append(lines, r.String())
		}
		rendered = append(rendered, lines)
	}
	assert.Equal(t, rendered[0], rendered[1])
	assert.Equal(t, rendered[0], rendered[2])
}

func TestLoadFileStructuredErrors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("renam:\n  - selector: x\n"), 0644))
	_, err := rules.LoadFile(unknown)
	assert.ErrorIs(t, err, rules.ErrRuleSyntax)

	badIndex := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(badIndex, []byte("[[index]]\nselector = '//ld:field'\nindex = 19001\n"), 0644))
	_, err = rules.LoadFile(badIndex)
	assert.ErrorIs(t, err, rules.ErrRuleSyntax)

	empty := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	set, err := rules.LoadFile(empty)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())

	_, err = rules.LoadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
