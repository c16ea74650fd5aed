/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/dynbias/internal/meta"
)

// Track is a collection entry with the metadata biases filter on. Dates are
// stored as Unix seconds.
type Track struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	TrackUID    string `gorm:"column:uid;uniqueIndex;size:191"`
	URL         string
	Title       string `gorm:"index"`
	Artist      string `gorm:"index"`
	Album       string `gorm:"index"`
	AlbumArtist string
	Genre       string `gorm:"index"`
	Composer    string
	Comment     string `gorm:"type:text"`
	Label       string
	Format      string `gorm:"type:varchar(16)"`
	Year        int64  `gorm:"index"`
	TrackNumber int64
	DiscNumber  int64
	BPM         int64
	Length      int64
	Bitrate     int64
	SampleRate  int64
	Filesize    int64
	CreateDate  int64
	FirstPlayed int64
	LastPlayed  int64 `gorm:"index"`
	Score       int64
	Rating      int64
	PlayCount   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Fold holds the text columns lower-cased with strings.ToLower. Text
	// predicates compare against it so every database folds case the same
	// way as in-memory matching.
	Fold TrackFold `gorm:"embedded;embeddedPrefix:fold_"`
}

// TrackFold is the case-folded copy of a track's text metadata.
type TrackFold struct {
	TrackUID    string `gorm:"column:uid"`
	URL         string
	Title       string `gorm:"index"`
	Artist      string `gorm:"index"`
	Album       string `gorm:"index"`
	AlbumArtist string
	Genre       string `gorm:"index"`
	Composer    string
	Comment     string `gorm:"type:text"`
	Label       string
	Format      string `gorm:"type:varchar(16)"`
}

var _ meta.Track = (*Track)(nil)

// trackColumns maps metadata fields to their column names.
var trackColumns = map[meta.Field]string{
	meta.UniqueID:    "uid",
	meta.URL:         "url",
	meta.Title:       "title",
	meta.Artist:      "artist",
	meta.Album:       "album",
	meta.AlbumArtist: "album_artist",
	meta.Genre:       "genre",
	meta.Composer:    "composer",
	meta.Comment:     "comment",
	meta.Label:       "label",
	meta.Format:      "format",
	meta.Year:        "year",
	meta.TrackNumber: "track_number",
	meta.DiscNumber:  "disc_number",
	meta.BPM:         "bpm",
	meta.Length:      "length",
	meta.Bitrate:     "bitrate",
	meta.SampleRate:  "sample_rate",
	meta.Filesize:    "filesize",
	meta.CreateDate:  "create_date",
	meta.FirstPlayed: "first_played",
	meta.LastPlayed:  "last_played",
	meta.Score:       "score",
	meta.Rating:      "rating",
	meta.PlayCount:   "play_count",
}

// TrackColumn returns the column holding field f.
func TrackColumn(f meta.Field) (string, bool) {
	col, ok := trackColumns[f]
	return col, ok
}

// FoldColumn returns the case-folded column of text field f.
func FoldColumn(f meta.Field) (string, bool) {
	if f.IsNumeric() {
		return "", false
	}
	col, ok := trackColumns[f]
	if !ok {
		return "", false
	}
	return "fold_" + col, true
}

// Refold recomputes the case-folded columns.
func (t *Track) Refold() {
	t.Fold = TrackFold{
		TrackUID:    strings.ToLower(t.TrackUID),
		URL:         strings.ToLower(t.URL),
		Title:       strings.ToLower(t.Title),
		Artist:      strings.ToLower(t.Artist),
		Album:       strings.ToLower(t.Album),
		AlbumArtist: strings.ToLower(t.AlbumArtist),
		Genre:       strings.ToLower(t.Genre),
		Composer:    strings.ToLower(t.Composer),
		Comment:     strings.ToLower(t.Comment),
		Label:       strings.ToLower(t.Label),
		Format:      strings.ToLower(t.Format),
	}
}

// BeforeSave keeps the folded columns in step with the text columns.
func (t *Track) BeforeSave(*gorm.DB) error {
	t.Refold()
	return nil
}

// UID implements meta.Track.
func (t *Track) UID() string { return t.TrackUID }

// Value implements meta.Track.
func (t *Track) Value(f meta.Field) meta.Value {
	switch f {
	case meta.UniqueID:
		return meta.Text(t.TrackUID)
	case meta.URL:
		return meta.Text(t.URL)
	case meta.Title:
		return meta.Text(t.Title)
	case meta.Artist:
		return meta.Text(t.Artist)
	case meta.Album:
		return meta.Text(t.Album)
	case meta.AlbumArtist:
		return meta.Text(t.AlbumArtist)
	case meta.Genre:
		return meta.Text(t.Genre)
	case meta.Composer:
		return meta.Text(t.Composer)
	case meta.Comment:
		return meta.Text(t.Comment)
	case meta.Label:
		return meta.Text(t.Label)
	case meta.Format:
		return meta.Text(t.Format)
	case meta.Year:
		return meta.Int64(t.Year)
	case meta.TrackNumber:
		return meta.Int64(t.TrackNumber)
	case meta.DiscNumber:
		return meta.Int64(t.DiscNumber)
	case meta.BPM:
		return meta.Int64(t.BPM)
	case meta.Length:
		return meta.Int64(t.Length)
	case meta.Bitrate:
		return meta.Int64(t.Bitrate)
	case meta.SampleRate:
		return meta.Int64(t.SampleRate)
	case meta.Filesize:
		return meta.Int64(t.Filesize)
	case meta.CreateDate:
		return meta.Int64(t.CreateDate)
	case meta.FirstPlayed:
		return meta.Int64(t.FirstPlayed)
	case meta.LastPlayed:
		return meta.Int64(t.LastPlayed)
	case meta.Score:
		return meta.Int64(t.Score)
	case meta.Rating:
		return meta.Int64(t.Rating)
	case meta.PlayCount:
		return meta.Int64(t.PlayCount)
	}
	if f.IsNumeric() {
		return meta.Int64(0)
	}
	return meta.Text("")
}

// TrackFrom copies the metadata of any meta.Track into a model.
func TrackFrom(src meta.Track) *Track {
	t := &Track{TrackUID: src.UID()}
	t.URL = src.Value(meta.URL).String()
	t.Title = src.Value(meta.Title).String()
	t.Artist = src.Value(meta.Artist).String()
	t.Album = src.Value(meta.Album).String()
	t.AlbumArtist = src.Value(meta.AlbumArtist).String()
	t.Genre = src.Value(meta.Genre).String()
	t.Composer = src.Value(meta.Composer).String()
	t.Comment = src.Value(meta.Comment).String()
	t.Label = src.Value(meta.Label).String()
	t.Format = src.Value(meta.Format).String()
	t.Year = src.Value(meta.Year).Int()
	t.TrackNumber = src.Value(meta.TrackNumber).Int()
	t.DiscNumber = src.Value(meta.DiscNumber).Int()
	t.BPM = src.Value(meta.BPM).Int()
	t.Length = src.Value(meta.Length).Int()
	t.Bitrate = src.Value(meta.Bitrate).Int()
	t.SampleRate = src.Value(meta.SampleRate).Int()
	t.Filesize = src.Value(meta.Filesize).Int()
	t.CreateDate = src.Value(meta.CreateDate).Int()
	t.FirstPlayed = src.Value(meta.FirstPlayed).Int()
	t.LastPlayed = src.Value(meta.LastPlayed).Int()
	t.Score = src.Value(meta.Score).Int()
	t.Rating = src.Value(meta.Rating).Int()
	t.PlayCount = src.Value(meta.PlayCount).Int()
	t.Refold()
	return t
}
