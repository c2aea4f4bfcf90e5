package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	yaml "gopkg.in/yaml.v3"

	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// Inspect prints the type tree parsed from a structure-definition file.
type Inspect struct {
	File   string   `arg:"" help:"Structure-definition file" type:"existingfile"`
	Types  []string `arg:"" optional:"" help:"Global types to print, all when omitted"`
	Format string   `help:"Output format" enum:"yaml,json" default:"yaml" env:"PROTOGEN_INSPECT_FORMAT"`
	Output string   `short:"o" help:"Write to this file instead of stdout"`
}

type inspection struct {
	Path    string           `json:"path" yaml:"path"`
	Types   []*typetree.Node `json:"types" yaml:"types"`
	Failed  []failedType     `json:"failed,omitempty" yaml:"failed,omitempty"`
	Skipped []string         `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

type failedType struct {
	Type  string `json:"type" yaml:"type"`
	Line  int    `json:"line" yaml:"line"`
	Error string `json:"error" yaml:"error"`
}

func (c *Inspect) Run(logger *slog.Logger) error {
	var out io.Writer = os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := c.Write(out); err != nil {
		return err
	}
	logger.Debug("inspected file", "file", c.File, "format", c.Format)
	return nil
}

// Write encodes the selected types of the file to w.
func (c *Inspect) Write(w io.Writer) error {
	doc, err := typetree.LoadFile(c.File)
	if err != nil {
		return err
	}

	v := inspection{Path: doc.Path, Skipped: doc.Skipped}
	if len(c.Types) == 0 {
		v.Types = doc.Types
		for _, f := range doc.Failed {
			v.Failed = append(v.Failed, failedType{Type: f.TypeName, Line: f.Line, Error: f.Err.Error()})
		}
	} else {
		for _, name := range c.Types {
			n, err := doc.Type(name)
			if err != nil {
				return err
			}
			v.Types = append(v.Types, n)
		}
	}

	var data []byte
	switch c.Format {
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case "yaml", "":
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
