package cpp

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/dfproto/protogen/internal/codegen/common"
)

const sourceTemplate = `{{.Header}}
{{- range .Depends}}
#include "{{.}}.h"
{{- end}}
#include "{{.TypeName}}.h"
{{- if .Stdexcept}}
#include <stdexcept>
{{- end}}
{{- range .NativeImports}}
#include "{{$.NativeNamespace}}/{{.}}.h"
#include "{{.}}.pb.h"
{{- end}}
{{- range .GlueImports}}
#include "{{.}}.h"
{{- end}}

{{.Procedure}}`

const headerTemplate = `{{.Header}}
#include "DataDefs.h"
#include "Export.h"
#include <stdint.h>
#include "{{.NativeNamespace}}/{{.TypeName}}.h"
#include "{{.TypeName}}.pb.h"

namespace {{.GlueNamespace}} {
  {{.Prototype}}
}
`

var (
	sourceTmpl = template.Must(template.New("cpp").Parse(sourceTemplate))
	headerTmpl = template.Must(template.New("h").Parse(headerTemplate))
)

type fileData struct {
	*Glue
	Header          string
	Depends         []string
	NativeNamespace string
	GlueNamespace   string
}

// RenderSource assembles the .cpp file of g. depends lists the extra
// headers declared by depends rules, included first.
func (c *Compiler) RenderSource(g *Glue, depends []string) (string, error) {
	return c.render(sourceTmpl, g, depends)
}

// RenderHeader assembles the .h file declaring the describe procedure of g.
func (c *Compiler) RenderHeader(g *Glue) (string, error) {
	return c.render(headerTmpl, g, nil)
}

func (c *Compiler) render(tmpl *template.Template, g *Glue, depends []string) (string, error) {
	data := fileData{
		Glue:            g,
		Header:          common.GeneratedHeader,
		Depends:         depends,
		NativeNamespace: c.opts.NativeNamespace,
		GlueNamespace:   c.opts.GlueNamespace,
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
