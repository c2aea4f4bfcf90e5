package cmd

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/dfproto/protogen/internal/testing"
)

func TestInspectJSON(t *testing.T) {
	path := th.WriteFile(t, t.TempDir(), "df.building.xml", buildingDefs)

	var buf bytes.Buffer
	require.NoError(t, (&Inspect{File: path, Format: "json"}).Write(&buf))

	var got struct {
		Path  string `json:"path"`
		Types []struct {
			TypeName string            `json:"typeName"`
			Kind     string            `json:"kind"`
			Children []json.RawMessage `json:"children"`
		} `json:"types"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, path, got.Path)
	require.Len(t, got.Types, 2)
	assert.Equal(t, "coord", got.Types[0].TypeName)
	assert.NotEmpty(t, got.Types[0].Kind)
	assert.Len(t, got.Types[1].Children, 2)
}

func TestInspectYAMLSelection(t *testing.T) {
	path := th.WriteFile(t, t.TempDir(), "df.building.xml", buildingDefs)

	var buf bytes.Buffer
	require.NoError(t, (&Inspect{File: path, Types: []string{"campfire"}, Format: "yaml"}).Write(&buf))
	assert.Contains(t, buf.String(), "typeName: campfire")
	assert.Contains(t, buf.String(), "name: timer")
	assert.NotContains(t, buf.String(), "name: x\n")

	err := (&Inspect{File: path, Types: []string{"missing"}}).Write(&buf)
	assert.ErrorContains(t, err, `no global type "missing"`)
}

func TestInspectReportsFailedTypes(t *testing.T) {
	path := th.WriteFile(t, t.TempDir(), "df.broken.xml", brokenDefs)

	var buf bytes.Buffer
	require.NoError(t, (&Inspect{File: path, Format: "yaml"}).Write(&buf))
	assert.Contains(t, buf.String(), "type: nometa")
	assert.Contains(t, buf.String(), "typeName: broken")
}
