package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfproto/protogen/internal/codegen/meta"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestConsoleSplitsErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewLogger(slog.LevelDebug, &stdout, &stderr, nil)

	logger.Debug("parsed", "file", "df.units.xml")
	logger.Info("created", "file", "unit.proto")
	logger.Error("type failed", "type", "broken")

	assert.Contains(t, stdout.String(), "msg=parsed")
	assert.Contains(t, stdout.String(), "msg=created")
	assert.NotContains(t, stdout.String(), "type failed")
	assert.Contains(t, stderr.String(), `msg="type failed" type=broken`)
	assert.NotContains(t, stderr.String(), "created")
}

func TestFileReceivesEverything(t *testing.T) {
	var stdout, stderr, file bytes.Buffer
	logger := NewLogger(slog.LevelInfo, &stdout, &stderr, &file).With("run", 1)

	logger.Debug("hidden")
	logger.Info("created")
	logger.Error("failed")

	assert.Empty(t, stdout.String())
	for _, out := range []string{stderr.String(), file.String()} {
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "msg=created run=1")
		assert.Contains(t, out, "msg=failed run=1")
	}
}

func TestArtifactLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewArtifact(&buf)
	l.Log("campfire", meta.Artifact{Kind: meta.ArtifactProto, Name: "campfire.proto", Content: "syntax = \"proto2\";\nmessage campfire {\n}\n"})

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], " campfire proto campfire.proto: 40 bytes"), lines[0])
	assert.Equal(t, "\tsyntax = \"proto2\";", lines[1])
	assert.Equal(t, "\tmessage campfire {", lines[2])
	assert.Equal(t, "\t}", lines[3])
}

func TestArtifactLoggerDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		NewArtifact(nil).Log("campfire", meta.Artifact{Name: "campfire.h", Content: "x"})
	})
}
