package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagKey(t *testing.T) {
	typ := reflect.TypeOf(Generate{})
	for field, want := range map[string]string{
		"ProtoOut":         "proto_out",
		"HOut":             "h_out",
		"IdentityFallback": "identity_fallback",
		"Jobs":             "jobs",
	} {
		f, ok := typ.FieldByName(field)
		require.True(t, ok, field)
		assert.Equal(t, want, flagKey(f), field)
	}

	f, _ := reflect.TypeOf(struct{ HTTPServer string }{}).FieldByName("HTTPServer")
	assert.Equal(t, "http_server", flagKey(f))
}

func TestConfigInitJSON(t *testing.T) {
	data, err := (&ConfigInit{Command: "generate", Format: "json"}).Render()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "./protogen", got["proto_out"])
	assert.Equal(t, "./protogen", got["h_out"])
	assert.Equal(t, "skip", got["null_entries"])
	assert.Equal(t, float64(2), got["proto_version"])
	assert.Equal(t, false, got["all_types"])
	assert.Equal(t, []any{}, got["exceptions"])
	assert.NotContains(t, got, "input")
}

func TestConfigInitFormats(t *testing.T) {
	data, err := (&ConfigInit{Command: "generate", Format: "yaml"}).Render()
	require.NoError(t, err)
	assert.Contains(t, string(data), "null_entries: skip\n")

	data, err = (&ConfigInit{Command: "generate", Format: "toml"}).Render()
	require.NoError(t, err)
	assert.Contains(t, string(data), `proto_package = "dfproto"`)

	data, err = (&ConfigInit{Command: "inspect", Format: "yaml"}).Render()
	require.NoError(t, err)
	assert.Contains(t, string(data), "format: yaml\n")

	_, err = (&ConfigInit{Command: "server"}).Render()
	assert.Error(t, err)
}

func TestConfigInitWrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "conf", "protogen.json")
	c := &ConfigInit{Command: "generate", Format: "json", Output: dest}
	require.NoError(t, c.Run())
	assert.FileExists(t, dest)

	assert.ErrorContains(t, c.Run(), "use --force")
	c.Force = true
	require.NoError(t, os.Remove(dest))
	require.NoError(t, c.Run())
}
