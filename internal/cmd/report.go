package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/dfproto/protogen/internal/codegen/meta"
)

// Status is the outcome of one type in a generate run.
type Status string

const (
	StatusCreated Status = "created"
	StatusIgnored Status = "ignored"
	StatusFailed  Status = "failed"
)

// TypeReport describes one global type of a generate run.
type TypeReport struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Line   int    `json:"line"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`

	Files          []string             `json:"files,omitempty"`
	SchemaImports  []string             `json:"schemaImports,omitempty"`
	NativeImports  []string             `json:"nativeImports,omitempty"`
	GlueImports    []string             `json:"glueImports,omitempty"`
	Dependencies   []string             `json:"dependencies,omitempty"`
	InstanceVector *meta.InstanceVector `json:"instanceVector,omitempty"`
}

// Report is the manifest of a generate run.
type Report struct {
	Version string       `json:"version,omitempty"`
	Inputs  []string     `json:"inputs"`
	Types   []TypeReport `json:"types"`
	Methods string       `json:"methods,omitempty"`
	Grpc    string       `json:"grpc,omitempty"`

	Created int `json:"created"`
	Ignored int `json:"ignored"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r *Report) add(t TypeReport) {
	r.Types = append(r.Types, t)
	switch t.Status {
	case StatusCreated:
		r.Created++
	case StatusIgnored:
		r.Ignored++
	case StatusFailed:
		r.Failed++
	}
}

// Err returns an error when at least one type failed.
func (r *Report) Err() error {
	if r.Failed > 0 {
		return fmt.Errorf("%d of %d types failed", r.Failed, len(r.Types))
	}
	return nil
}

// WriteFile stores the report as indented JSON.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, string(data)+"\n")
}

const (
	colorOK    = "\033[94m"
	colorFail  = "\033[91m"
	colorReset = "\033[0m"
)

func printSummary(f *os.File, r *Report) {
	writeSummary(f, r, term.IsTerminal(int(f.Fd())))
}

func writeSummary(w io.Writer, r *Report, color bool) {
	paint := func(c, s string) string {
		if !color {
			return s
		}
		return c + s + colorReset
	}

	line := fmt.Sprintf("%d created, %d ignored, %d skipped, %d failed", r.Created, r.Ignored, r.Skipped, r.Failed)
	if r.Failed > 0 {
		fmt.Fprintln(w, paint(colorFail, line))
	} else {
		fmt.Fprintln(w, paint(colorOK, line))
	}
	for _, t := range r.Types {
		if t.Status == StatusFailed {
			fmt.Fprintf(w, "  %s\n", paint(colorFail, fmt.Sprintf("%s (%s:%d): %s", t.Type, t.Source, t.Line, t.Error)))
		}
	}
}
