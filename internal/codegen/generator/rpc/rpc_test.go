package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfproto/protogen/internal/codegen/meta"
)

var vectors = []meta.InstanceVector{
	{TypeName: "unit", Expression: "$global.world.units.all"},
	{TypeName: "history_event", Expression: "$global.world.history.events"},
}

func TestMethods(t *testing.T) {
	out, err := Methods(vectors)
	require.NoError(t, err)
	assert.Equal(t, `/* THIS FILE WAS GENERATED. DO NOT EDIT. */

#ifndef DFPROTO_INCLUDED
#include "unit.h"
#endif
METHOD_GET_LIST(Unit, unit, df::global::world->units.all)

#ifndef DFPROTO_INCLUDED
#include "history_event.h"
#endif
METHOD_GET_LIST(HistoryEvent, history_event, df::global::world->history.events)
`, out)
}

func TestMessages(t *testing.T) {
	out, err := Messages(vectors, meta.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, `/* THIS FILE WAS GENERATED. DO NOT EDIT. */
syntax = "proto2";
option optimize_for = LITE_RUNTIME;
import "unit.proto";
import "history_event.proto";

package dfproto;

message UnitList {
  repeated dfproto.unit list = 1;
}

message HistoryEventList {
  repeated dfproto.history_event list = 1;
}
`, out)
}

func TestEmptyVectors(t *testing.T) {
	out, err := Methods(nil)
	require.NoError(t, err)
	assert.Equal(t, "/* THIS FILE WAS GENERATED. DO NOT EDIT. */\n", out)

	out, err = Messages(nil, meta.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "/* THIS FILE WAS GENERATED. DO NOT EDIT. */\nsyntax = \"proto2\";\noption optimize_for = LITE_RUNTIME;\n\npackage dfproto;\n", out)
}
