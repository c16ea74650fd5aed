/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/dynbias/internal/meta"
)

const sample = `
tracks:
  - uniqueid: t1
    artist: The Beatles
    title: Come Together
    year: 1969
    lastplay: 2024-05-01T12:00:00Z
    added: 2020-01-02
    filesize: 3 MB
    length: 4m20s
  - uniqueid: t2
    artist: Rolling Stones
    rating: 8
    firstplay: 1700000000
`

func TestParse(t *testing.T) {
	tracks, err := Parse(strings.NewReader(sample), meta.NewRegistry())
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	t1 := tracks[0]
	assert.Equal(t, "t1", t1.UID())
	assert.Equal(t, "The Beatles", t1.Value(meta.Artist).String())
	assert.Equal(t, int64(1969), t1.Value(meta.Year).Int())
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix(), t1.Value(meta.LastPlayed).Int())
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC).Unix(), t1.Value(meta.CreateDate).Int())
	assert.Equal(t, int64(3_000_000), t1.Value(meta.Filesize).Int())
	assert.Equal(t, int64(260_000), t1.Value(meta.Length).Int())

	t2 := tracks[1]
	assert.Equal(t, int64(8), t2.Value(meta.Rating).Int())
	assert.Equal(t, int64(1_700_000_000), t2.Value(meta.FirstPlayed).Int())
	assert.Equal(t, int64(0), t2.Value(meta.Year).Int())
}

func TestParseErrors(t *testing.T) {
	reg := meta.NewRegistry()
	tests := map[string]string{
		"missing uid":   "tracks:\n  - artist: x\n",
		"unknown field": "tracks:\n  - uniqueid: t1\n    mood: happy\n",
		"bad number":    "tracks:\n  - uniqueid: t1\n    year: soon\n",
		"bad date":      "tracks:\n  - uniqueid: t1\n    lastplay: yesterday\n",
		"bad yaml":      "tracks: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc), reg)
			assert.Error(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	tracks, err := Parse(strings.NewReader(""), meta.NewRegistry())
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	tracks, err := Load(path, meta.NewRegistry())
	require.NoError(t, err)
	assert.Len(t, tracks, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), meta.NewRegistry())
	assert.Error(t, err)
}
