package proto

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/dfproto/protogen/internal/codegen/common"
)

const fileTemplate = `{{.Header}}
syntax = "proto{{.Version}}";
option optimize_for = LITE_RUNTIME;
{{- range .Imports}}
import "{{.}}.proto";
{{- end}}

package {{.Package}};

{{.Decl}}`

var fileTmpl = template.Must(template.New("proto").Parse(fileTemplate))

// Render assembles the .proto file of a compiled schema.
func (c *Compiler) Render(s *Schema) (string, error) {
	data := struct {
		Header  string
		Version int
		Imports []string
		Package string
		Decl    string
	}{
		Header:  common.GeneratedHeader,
		Version: c.opts.ProtoVersion,
		Imports: s.Imports,
		Package: c.opts.ProtoPackage,
		Decl:    Print(s.Decl),
	}

	var sb strings.Builder
	if err := fileTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute proto template: %w", err)
	}
	return sb.String(), nil
}
