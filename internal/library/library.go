/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library reads track listings from YAML files. Each track is a map
// keyed by the field names used in persisted bias files:
//
//	tracks:
//	  - uniqueid: t1
//	    artist: The Beatles
//	    year: 1969
//	    lastplay: 2024-05-01T12:00:00Z
//	    filesize: 3.2 MB
//	    length: 4m23s
package library

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/dynbias/internal/meta"
)

type document struct {
	Tracks []map[string]string `yaml:"tracks"`
}

// Load reads the track listing at path.
func Load(path string, reg *meta.Registry) ([]meta.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, reg)
}

// Parse decodes a track listing. Every track needs a uniqueid.
func Parse(r io.Reader, reg *meta.Registry) ([]meta.Track, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode library: %w", err)
	}

	tracks := make([]meta.Track, 0, len(doc.Tracks))
	for i, entry := range doc.Tracks {
		t, err := parseTrack(entry, reg)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i+1, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func parseTrack(entry map[string]string, reg *meta.Registry) (*meta.TrackData, error) {
	uid := strings.TrimSpace(entry[reg.PlaylistName(meta.UniqueID)])
	if uid == "" {
		return nil, fmt.Errorf("missing %s", reg.PlaylistName(meta.UniqueID))
	}

	t := meta.NewTrack(uid)
	for key, raw := range entry {
		f, ok := reg.FieldForPlaylistName(key)
		if !ok || f == meta.AnyText {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		if f == meta.UniqueID {
			continue
		}
		v, err := parseValue(f, strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		t.Set(f, v)
	}
	return t, nil
}

func parseValue(f meta.Field, raw string) (meta.Value, error) {
	if !f.IsNumeric() {
		return meta.Text(raw), nil
	}
	if raw == "" {
		return meta.Int64(0), nil
	}

	switch {
	case f.IsDate():
		return parseDate(raw)
	case f == meta.Filesize:
		n, err := humanize.ParseBytes(raw)
		if err != nil {
			return meta.Value{}, err
		}
		return meta.Int64(int64(n)), nil
	case f == meta.Length:
		if d, err := time.ParseDuration(raw); err == nil {
			return meta.Int64(d.Milliseconds()), nil
		}
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return meta.Value{}, fmt.Errorf("not a number: %q", raw)
	}
	return meta.Int64(n), nil
}

// parseDate accepts RFC 3339 timestamps, plain dates in UTC and Unix seconds.
func parseDate(raw string) (meta.Value, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return meta.Int64(ts.Unix()), nil
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return meta.Int64(ts.Unix()), nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return meta.Value{}, fmt.Errorf("not a date: %q", raw)
	}
	return meta.Int64(n), nil
}
