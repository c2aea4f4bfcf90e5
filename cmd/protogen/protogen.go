package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/joho/godotenv"

	"github.com/dfproto/protogen/internal/codegen/common"
	"github.com/dfproto/protogen/internal/config"
	"github.com/dfproto/protogen/internal/configpaths"
	"github.com/dfproto/protogen/internal/log"
)

func main() {
	_ = godotenv.Load()

	var cli config.CLI
	ctx := kong.Parse(&cli, parserOptions(os.Args[1:])...)

	logger, closers, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	artifacts, f := artifactLogger(cli.Log, logger)
	if f != nil {
		closers = append(closers, f)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	ctx.Bind(logger)
	ctx.BindTo(artifacts, (*log.ArtifactLogger)(nil))
	ctx.FatalIfErrorf(ctx.Run())
}

// parserOptions wires the build version into --version and the config
// files named by args, PROTOGEN_CONFIG or the default locations into the
// parser. Flags and environment override configuration values.
func parserOptions(args []string) []kong.Option {
	version, err := common.GetVersion()
	if err != nil {
		version = "unknown"
	}
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(findUserConfig(args))
	return []kong.Option{
		kong.Name(configpaths.AppName),
		kong.Description("Protobuf schema and C++ glue generator for df-structures"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	}
}

// artifactLogger picks the sink for generated files: the configured file,
// stdout at trace level, else nothing. The returned closer is nil unless
// a file was opened.
func artifactLogger(cfg config.Log, logger *slog.Logger) (log.ArtifactLogger, io.Closer) {
	switch {
	case cfg.ArtifactFile != "":
		f, err := os.OpenFile(cfg.ArtifactFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open artifact log file", "file", cfg.ArtifactFile, "error", err)
			return log.NewArtifact(nil), nil
		}
		return log.NewArtifact(f), f
	case cfg.Level == "trace":
		return log.NewArtifact(os.Stdout), nil
	}
	return log.NewArtifact(nil), nil
}

func findUserConfig(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("PROTOGEN_CONFIG")
}
