// Package rpc renders the outputs built from instance vectors: the
// METHOD_GET_LIST macro file and the list messages returned by the
// remote procedures.
package rpc

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/dfproto/protogen/internal/codegen/common"
	"github.com/dfproto/protogen/internal/codegen/meta"
)

const methodsTemplate = `{{.Header}}
{{- range .Vectors}}

#ifndef DFPROTO_INCLUDED
#include "{{.TypeName}}.h"
#endif
METHOD_GET_LIST({{camel .TypeName}}, {{.TypeName}}, {{cpp .Expression}})
{{- end}}
`

const messagesTemplate = `{{.Header}}
syntax = "proto{{.Version}}";
option optimize_for = LITE_RUNTIME;
{{- range .Vectors}}
import "{{.TypeName}}.proto";
{{- end}}

package {{.Package}};
{{- range .Vectors}}

message {{camel .TypeName}}List {
  repeated {{$.Package}}.{{.TypeName}} list = 1;
}
{{- end}}
`

var funcs = template.FuncMap{
	"camel": common.SnakeToCamelCase,
	"cpp":   common.LuaToCpp,
}

var (
	methodsTmpl  = template.Must(template.New("methods").Funcs(funcs).Parse(methodsTemplate))
	messagesTmpl = template.Must(template.New("grpc").Funcs(funcs).Parse(messagesTemplate))
)

type data struct {
	Header  string
	Version int
	Package string
	Vectors []meta.InstanceVector
}

// Methods renders the macro file declaring one list method per instance
// vector.
func Methods(vectors []meta.InstanceVector) (string, error) {
	return execute(methodsTmpl, data{Header: common.GeneratedHeader, Vectors: vectors})
}

// Messages renders the schema of the list messages returned by the list
// methods.
func Messages(vectors []meta.InstanceVector, opts meta.Options) (string, error) {
	return execute(messagesTmpl, data{
		Header:  common.GeneratedHeader,
		Version: opts.ProtoVersion,
		Package: opts.ProtoPackage,
		Vectors: vectors,
	})
}

func execute(tmpl *template.Template, d data) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, d); err != nil {
		return "", fmt.Errorf("execute %s template: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
