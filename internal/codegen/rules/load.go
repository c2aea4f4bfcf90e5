package rules

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadFile reads a rule file. Files ending in .yaml, .yml or .toml are
// structured rule files; anything else uses the line grammar.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	case ".toml":
		return ParseTOML(data, path)
	}
	return Parse(bytes.NewReader(data), path)
}

// Parse reads rules in the line grammar. Blank lines and lines starting
// with # are skipped. The first invalid line fails the whole set.
func Parse(r io.Reader, source string) (*Set, error) {
	var out []Rule
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rule, err := parseLine(text, source, line)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return NewSet(out...), nil
}

func parseLine(text, source string, line int) (Rule, error) {
	bad := func(format string, args ...any) error {
		return &SyntaxError{Source: source, Line: line, Text: text, Reason: fmt.Sprintf(format, args...)}
	}
	tokens := strings.Fields(text)
	r := Rule{Source: source, Line: line}

	switch tokens[0] {
	case "rename", "index":
		if len(tokens) < 3 {
			return Rule{}, bad("%s needs a selector and an argument", tokens[0])
		}
		sel, err := ParseSelector(strings.Join(tokens[1:len(tokens)-1], " "))
		if err != nil {
			return Rule{}, bad("%v", err)
		}
		r.Selector = sel
		arg := tokens[len(tokens)-1]
		if tokens[0] == "rename" {
			if !identRe.MatchString(arg) {
				return Rule{}, bad("invalid field name %q", arg)
			}
			r.Kind, r.Name = KindRename, arg
			return r, nil
		}
		n, ok := parseIndex(arg)
		if !ok {
			return Rule{}, bad("invalid field number %q", arg)
		}
		r.Kind, r.Index = KindIndex, n

	case "ignore":
		if len(tokens) < 2 {
			return Rule{}, bad("ignore needs a selector")
		}
		sel, err := ParseSelector(strings.Join(tokens[1:], " "))
		if err != nil {
			return Rule{}, bad("%v", err)
		}
		r.Kind, r.Selector = KindIgnore, sel

	case "enum":
		if len(tokens) != 2 {
			return Rule{}, bad("enum takes exactly one type name")
		}
		r.Kind, r.Name = KindEnum, tokens[1]

	case "depends":
		if len(tokens) != 3 {
			return Rule{}, bad("depends takes a type name and a required name")
		}
		r.Kind, r.Name, r.Requires = KindDepends, tokens[1], tokens[2]

	default:
		return Rule{}, bad("unknown directive %q", tokens[0])
	}
	return r, nil
}

// document is the shape of structured rule files.
type document struct {
	Rename  []renameEntry  `yaml:"rename" toml:"rename"`
	Ignore  []string       `yaml:"ignore" toml:"ignore"`
	Index   []indexEntry   `yaml:"index" toml:"index"`
	Enum    []string       `yaml:"enum" toml:"enum"`
	Depends []dependsEntry `yaml:"depends" toml:"depends"`
}

type renameEntry struct {
	Selector string `yaml:"selector" toml:"selector"`
	Name     string `yaml:"name" toml:"name"`
}

type indexEntry struct {
	Selector string `yaml:"selector" toml:"selector"`
	Index    int    `yaml:"index" toml:"index"`
}

type dependsEntry struct {
	Type     string `yaml:"type" toml:"type"`
	Requires string `yaml:"requires" toml:"requires"`
}

// ParseYAML reads a YAML rule file.
//
//	rename:
//	  - selector: ld:global-type[@type-name="unit"]/ld:field[@name="id"]
//	    name: unit_id
//	ignore:
//	  - //ld:field[re:test(@name, '^unk')]
//	enum: [job_type]
func ParseYAML(data []byte, source string) (*Set, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &SyntaxError{Source: source, Text: filepath.Base(source), Reason: err.Error()}
	}
	return doc.build(source)
}

// ParseTOML reads a TOML rule file with the same sections as ParseYAML,
// using arrays of tables for rename, index and depends.
func ParseTOML(data []byte, source string) (*Set, error) {
	var doc document
	if err := toml.NewDecoder(bytes.NewReader(data)).Strict(true).Decode(&doc); err != nil {
		return nil, &SyntaxError{Source: source, Text: filepath.Base(source), Reason: err.Error()}
	}
	return doc.build(source)
}

// build validates structured entries through the line grammar so both
// forms accept exactly the same rules.
func (d document) build(source string) (*Set, error) {
	var lines []string
	for _, e := range d.Rename {
		lines = append(lines, "rename "+e.Selector+" "+e.Name)
	}
	for _, sel := range d.Ignore {
		lines = append(lines, "ignore "+sel)
	}
	for _, e := range d.Index {
		lines = append(lines, fmt.Sprintf("index %s %d", e.Selector, e.Index))
	}
	for _, t := range d.Enum {
		lines = append(lines, "enum "+t)
	}
	for _, e := range d.Depends {
		lines = append(lines, "depends "+e.Type+" "+e.Requires)
	}

	out := make([]Rule, 0, len(lines))
	for i, l := range lines {
		r, err := parseLine(strings.TrimSpace(l), source, 0)
		if err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				se.Reason = fmt.Sprintf("entry %d: %s", i+1, se.Reason)
			}
			return nil, err
		}
		out = append(out, r)
	}
	return NewSet(out...), nil
}
