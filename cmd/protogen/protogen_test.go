package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfproto/protogen/internal/codegen/meta"
	"github.com/dfproto/protogen/internal/config"
	"github.com/dfproto/protogen/internal/log"
	th "github.com/dfproto/protogen/internal/testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFindUserConfig(t *testing.T) {
	t.Setenv("PROTOGEN_CONFIG", "")
	assert.Equal(t, "a.yaml", findUserConfig([]string{"generate", "--config=a.yaml"}))
	assert.Equal(t, "b.toml", findUserConfig([]string{"--config", "b.toml", "generate"}))
	assert.Empty(t, findUserConfig([]string{"generate", "--config"}))

	t.Setenv("PROTOGEN_CONFIG", "env.json")
	assert.Equal(t, "env.json", findUserConfig([]string{"generate"}))
	assert.Equal(t, "a.yaml", findUserConfig([]string{"--config=a.yaml"}))
}

func TestParserOptionsLoadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("PROTOGEN_CONFIG", "")
	require.NoError(t, os.Unsetenv("PROTOGEN_CONFIG"))
	cfg := th.WriteFile(t, dir, "custom.json", `{"proto_package": "fromfile", "h_out": "headers"}`)

	args := []string{"generate", "--config", cfg, "--proto-package", "fromflag", "defs"}
	var cli config.CLI
	parser, err := kong.New(&cli, parserOptions(args)...)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)

	assert.Equal(t, "generate <input>", ctx.Command())
	assert.Equal(t, "fromflag", cli.Generate.ProtoPackage)
	assert.Equal(t, "defs", cli.Generate.Input)
	assert.Equal(t, "headers", cli.Generate.HOut)
}

func TestArtifactLogger(t *testing.T) {
	a := meta.Artifact{Kind: meta.ArtifactProto, Name: "coord.proto", Content: "message coord {}\n"}

	path := filepath.Join(t.TempDir(), "artifacts.log")
	logger, closer := artifactLogger(config.Log{Level: "info", ArtifactFile: path}, discard())
	require.NotNil(t, closer)
	logger.Log("coord", a)
	require.NoError(t, closer.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "coord proto coord.proto: 17 bytes\n\tmessage coord {}\n")

	logger, closer = artifactLogger(config.Log{Level: "info", ArtifactFile: filepath.Join(path, "nested")}, discard())
	assert.Nil(t, closer)
	assert.Equal(t, log.NewArtifact(nil), logger)

	logger, closer = artifactLogger(config.Log{Level: "trace"}, discard())
	assert.Nil(t, closer)
	assert.Equal(t, log.NewArtifact(os.Stdout), logger)
}
