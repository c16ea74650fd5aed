/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package meta describes track metadata fields and how to read them.
package meta

// Field identifies one metadata field of a track.
type Field int64

// AnyText is the sentinel field meaning "any textual field".
const AnyText Field = 0

// Track metadata fields. The values follow the collection's field bit layout so
// they can be combined into masks.
const (
	URL         Field = 1 << 0
	Title       Field = 1 << 1
	Artist      Field = 1 << 2
	Album       Field = 1 << 3
	Genre       Field = 1 << 4
	Composer    Field = 1 << 5
	Year        Field = 1 << 6
	Comment     Field = 1 << 7
	TrackNumber Field = 1 << 8
	DiscNumber  Field = 1 << 9
	BPM         Field = 1 << 10
	Length      Field = 1 << 11
	Bitrate     Field = 1 << 12
	SampleRate  Field = 1 << 13
	Filesize    Field = 1 << 14
	Format      Field = 1 << 15
	CreateDate  Field = 1 << 16
	Score       Field = 1 << 17
	Rating      Field = 1 << 18
	FirstPlayed Field = 1 << 19
	LastPlayed  Field = 1 << 20
	PlayCount   Field = 1 << 21
	UniqueID    Field = 1 << 22
	AlbumArtist Field = 1 << 27
	Label       Field = 1 << 28
)

// TextSearchFields are the fields searched when a filter targets AnyText.
var TextSearchFields = []Field{Artist, Title, Album, Genre, URL, Comment, Label}

// IsNumeric reports whether the field holds an integer value.
func (f Field) IsNumeric() bool {
	switch f {
	case Year, TrackNumber, DiscNumber, BPM, Length, Bitrate, SampleRate, Filesize,
		CreateDate, Score, Rating, FirstPlayed, LastPlayed, PlayCount:
		return true
	}
	return false
}

// IsDate reports whether the field holds a Unix timestamp in seconds.
func (f Field) IsDate() bool {
	switch f {
	case CreateDate, FirstPlayed, LastPlayed:
		return true
	}
	return false
}
