package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnakeToCamelCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"unit", "Unit"},
		{"history_event", "HistoryEvent"},
		{"item_2", "Item_2"},
		{"art_image_chunk", "ArtImageChunk"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SnakeToCamelCase(tt.in))
		})
	}
}

func TestLuaToCpp(t *testing.T) {
	assert.Equal(t, "df::global::world->units.all", LuaToCpp("$global.world.units.all"))
	assert.Equal(t, "df::global::world->world_data->sites", LuaToCpp("$global.world.world_data.sites"))
}

func TestEnumValueName(t *testing.T) {
	assert.Equal(t, "job_type_Eat", EnumValueName("job_type", "Eat", 3))
	assert.Equal(t, "job_type_anon_7", EnumValueName("job_type", "", 7))
	assert.Equal(t, "job_type_anon_m1", EnumValueName("job_type", "", -1))
}

func TestVersion(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = ""
	v, err := GetVersion()
	require.NoError(t, err)
	assert.Equal(t, "0.0.1-dev", v)

	Version = "v1.4.2-dirty"
	v, err = GetVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.4.2-dirty", v)

	Version = "nope"
	_, err = GetVersion()
	assert.Error(t, err)

	Version = "1.x.0"
	_, err = GetVersion()
	assert.Error(t, err)

	Version = "2.7"
	v, err = GetVersion()
	require.NoError(t, err)
	assert.Equal(t, "2.7", v)
}
