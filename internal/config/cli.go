// Package config declares the command line of protogen.
package config

import (
	"github.com/alecthomas/kong"

	"github.com/dfproto/protogen/internal/cmd"
)

// Log configures the process logger.
type Log struct {
	Level        string `help:"Log level: trace, debug, info, warn or error" default:"info" enum:"trace,debug,info,warn,error" env:"PROTOGEN_LOG_LEVEL"`
	File         string `help:"Also write the log to this file" env:"PROTOGEN_LOG_FILE"`
	ArtifactFile string `help:"Trace every generated file to this file" env:"PROTOGEN_LOG_ARTIFACT_FILE"`
}

type CLI struct {
	Config  string           `help:"Configuration file (json, yaml or toml)" type:"path" env:"PROTOGEN_CONFIG"`
	Log     Log              `embed:"" prefix:"log."`
	Version kong.VersionFlag `help:"Print the version and exit"`

	Generate  cmd.Generate      `cmd:"" default:"withargs" help:"Generate .proto schemas and C++ glue from structure definitions"`
	Inspect   cmd.Inspect       `cmd:"" help:"Print the parsed type tree of a definition file"`
	Rules     cmd.RulesCommand  `cmd:"" help:"Work with override rule files"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Manage configuration files"`
}
