/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"testing"

	"github.com/friendsincode/dynbias/internal/meta"
)

func TestTrackColumnCoversFields(t *testing.T) {
	for _, f := range meta.NewRegistry().Fields() {
		if f == meta.AnyText {
			continue
		}
		if _, ok := TrackColumn(f); !ok {
			t.Errorf("field %d has no column", f)
		}
	}
	if _, ok := TrackColumn(meta.AnyText); ok {
		t.Error("AnyText must not map to a column")
	}
}

func TestTrackFromCopiesMetadata(t *testing.T) {
	src := meta.NewTrack("t1").
		Set(meta.Artist, meta.Text("Beatles")).
		Set(meta.Year, meta.Int64(1969)).
		Set(meta.LastPlayed, meta.Int64(1_700_000_000))

	got := TrackFrom(src)
	if got.UID() != "t1" {
		t.Fatalf("uid = %q", got.UID())
	}
	if v := got.Value(meta.Artist).String(); v != "Beatles" {
		t.Errorf("artist = %q", v)
	}
	if v := got.Value(meta.Year).Int(); v != 1969 {
		t.Errorf("year = %d", v)
	}
	if v := got.Value(meta.LastPlayed).Int(); v != 1_700_000_000 {
		t.Errorf("last played = %d", v)
	}
	if v := got.Value(meta.UniqueID).String(); v != "t1" {
		t.Errorf("unique id = %q", v)
	}
	if v := got.Value(meta.Title); v.Kind != meta.KindText || v.String() != "" {
		t.Errorf("title = %+v", v)
	}
}

func TestTrackFromFoldsText(t *testing.T) {
	got := TrackFrom(meta.NewTrack("T1").Set(meta.Artist, meta.Text("BJÖRK")).Set(meta.Title, meta.Text("Jóga")))
	if got.Fold.Artist != "björk" {
		t.Errorf("folded artist = %q", got.Fold.Artist)
	}
	if got.Fold.Title != "jóga" {
		t.Errorf("folded title = %q", got.Fold.Title)
	}
	if got.Fold.TrackUID != "t1" {
		t.Errorf("folded uid = %q", got.Fold.TrackUID)
	}

	got.Artist = "Sigur Rós"
	if err := got.BeforeSave(nil); err != nil {
		t.Fatal(err)
	}
	if got.Fold.Artist != "sigur rós" {
		t.Errorf("folded artist after save = %q", got.Fold.Artist)
	}
}

func TestFoldColumn(t *testing.T) {
	if col, ok := FoldColumn(meta.AlbumArtist); !ok || col != "fold_album_artist" {
		t.Errorf("album artist fold column = %q, %v", col, ok)
	}
	if _, ok := FoldColumn(meta.Year); ok {
		t.Error("numeric fields have no folded column")
	}
	if _, ok := FoldColumn(meta.AnyText); ok {
		t.Error("AnyText must not map to a folded column")
	}
}
