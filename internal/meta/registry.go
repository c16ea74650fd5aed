/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package meta

import "sort"

// FieldInfo is one row of the field table.
type FieldInfo struct {
	Field Field
	// Name is the stable identifier used in collection queries.
	Name string
	// PlaylistName identifies the field in persisted playlist generator files.
	PlaylistName string
	Label        string
	Icon         string
}

var fieldTable = []FieldInfo{
	{AnyText, "anytext", "", "Any text", "edit-find"},
	{URL, "url", "url", "File Name", "folder"},
	{Title, "title", "title", "Title", "media-track"},
	{Artist, "artist", "artist", "Artist", "view-media-artist"},
	{Album, "album", "album", "Album", "media-optical-audio"},
	{Genre, "genre", "genre", "Genre", "favorite-genres"},
	{Composer, "composer", "composer", "Composer", "view-media-artist"},
	{Year, "year", "year", "Year", "view-calendar"},
	{Comment, "comment", "comment", "Comment", "text-plain"},
	{TrackNumber, "tracknr", "tracknumber", "Track Number", "mymusic-numbering"},
	{DiscNumber, "discnr", "discnumber", "Disc Number", "media-optical"},
	{BPM, "bpm", "bpm", "BPM", "view-media-bpm"},
	{Length, "length", "length", "Length", "chronometer"},
	{Bitrate, "bitrate", "bitrate", "Bit Rate", "audio-x-generic"},
	{SampleRate, "samplerate", "samplerate", "Sample Rate", "audio-x-generic"},
	{Filesize, "filesize", "filesize", "File Size", "document-properties"},
	{Format, "format", "format", "Format", "audio-x-generic"},
	{CreateDate, "createdate", "added", "Added to Collection", "list-add"},
	{Score, "score", "score", "Score", "emblem-favorite"},
	{Rating, "rating", "rating", "Rating", "rating"},
	{FirstPlayed, "firstplayed", "firstplay", "First Played", "view-calendar-day"},
	{LastPlayed, "lastplayed", "lastplay", "Last Played", "view-calendar-day"},
	{PlayCount, "playcount", "playcount", "Playcount", "view-media-playcount"},
	{UniqueID, "uniqueid", "uniqueid", "Unique Id", "emblem-system"},
	{AlbumArtist, "albumartist", "albumartist", "Album Artist", "view-media-artist"},
	{Label, "label", "label", "Label", "label"},
}

// Registry maps fields to their names, labels and icons. It is immutable once
// built and safe to share between goroutines.
type Registry struct {
	byField        map[Field]FieldInfo
	byName         map[string]Field
	byPlaylistName map[string]Field
}

// NewRegistry builds the field registry.
func NewRegistry() *Registry {
	r := &Registry{
		byField:        make(map[Field]FieldInfo, len(fieldTable)),
		byName:         make(map[string]Field, len(fieldTable)),
		byPlaylistName: make(map[string]Field, len(fieldTable)),
	}
	for _, info := range fieldTable {
		r.byField[info.Field] = info
		r.byName[info.Name] = info.Field
		if info.PlaylistName != "" {
			r.byPlaylistName[info.PlaylistName] = info.Field
		}
	}
	return r
}

// Info returns the table row for a field.
func (r *Registry) Info(f Field) (FieldInfo, bool) {
	info, ok := r.byField[f]
	return info, ok
}

// Name returns the stable name of a field, or "" when unknown.
func (r *Registry) Name(f Field) string {
	return r.byField[f].Name
}

// FieldForName is the inverse of Name.
func (r *Registry) FieldForName(name string) (Field, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// PlaylistName returns the name used for the field in persisted generator files.
// AnyText has an empty playlist name.
func (r *Registry) PlaylistName(f Field) string {
	return r.byField[f].PlaylistName
}

// FieldForPlaylistName is the inverse of PlaylistName. The empty name resolves
// to AnyText.
func (r *Registry) FieldForPlaylistName(name string) (Field, bool) {
	if name == "" {
		return AnyText, true
	}
	f, ok := r.byPlaylistName[name]
	return f, ok
}

// Label returns the display label for a field.
func (r *Registry) Label(f Field) string {
	if info, ok := r.byField[f]; ok {
		return info.Label
	}
	return "Unknown"
}

// Icon returns the icon name for a field. May be empty.
func (r *Registry) Icon(f Field) string {
	return r.byField[f].Icon
}

// Fields returns every registered field except AnyText, in bit order.
func (r *Registry) Fields() []Field {
	out := make([]Field, 0, len(r.byField))
	for f := range r.byField {
		if f != AnyText {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
