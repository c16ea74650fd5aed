/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRoundTrip(t *testing.T) {
	reg := NewRegistry()
	for _, f := range reg.Fields() {
		name := reg.PlaylistName(f)
		require.NotEmpty(t, name, "field %d has no playlist name", f)

		back, ok := reg.FieldForPlaylistName(name)
		require.True(t, ok)
		assert.Equal(t, f, back)

		back, ok = reg.FieldForName(reg.Name(f))
		require.True(t, ok)
		assert.Equal(t, f, back)

		assert.NotEqual(t, "Unknown", reg.Label(f))
	}
}

func TestRegistryUnknownNames(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.FieldForPlaylistName("no-such-field")
	assert.False(t, ok)

	f, ok := reg.FieldForPlaylistName("")
	assert.True(t, ok)
	assert.Equal(t, AnyText, f)

	assert.Equal(t, "Unknown", reg.Label(Field(1<<50)))
	assert.Equal(t, "Any text", reg.Label(AnyText))
}

func TestTextSearchFieldsAreTextual(t *testing.T) {
	for _, f := range TextSearchFields {
		assert.False(t, f.IsNumeric(), "field %d", f)
	}
	assert.Len(t, TextSearchFields, 7)
}

func TestValueConversions(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		wantInt int64
		wantStr string
	}{
		{"int", Int64(1999), 1999, "1999"},
		{"negative int", Int64(-4), -4, "-4"},
		{"numeric text", Text("42"), 42, "42"},
		{"text", Text("Beatles"), 0, "Beatles"},
		{"null", Value{}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantInt, tt.value.Int())
			assert.Equal(t, tt.wantStr, tt.value.String())
		})
	}
}

func TestTrackDataDefaults(t *testing.T) {
	tr := NewTrack("t1").Set(Artist, Text("Beatles"))

	assert.Equal(t, "t1", tr.Value(UniqueID).String())
	assert.Equal(t, "Beatles", tr.Value(Artist).String())
	assert.Equal(t, KindInt, tr.Value(Year).Kind)
	assert.Equal(t, int64(0), tr.Value(Year).Int())
	assert.Equal(t, "", tr.Value(Album).String())
}
