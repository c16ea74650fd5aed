/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package meta

import "strconv"

// Kind enumerates Value representations.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindText
)

// Value is a typed metadata value.
type Value struct {
	Kind Kind
	i    int64
	s    string
}

// Int64 wraps an integer value.
func Int64(v int64) Value { return Value{Kind: KindInt, i: v} }

// Text wraps a string value.
func Text(v string) Value { return Value{Kind: KindText, s: v} }

// Int returns the value as an integer. Text is parsed in base 10; unparsable
// text and null yield 0.
func (v Value) Int() int64 {
	switch v.Kind {
	case KindInt:
		return v.i
	case KindText:
		n, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// String returns the value as text. Integers are formatted in base 10 and null
// yields "".
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindText:
		return v.s
	}
	return ""
}

// Track is the single-track metadata accessor.
type Track interface {
	UID() string
	Value(f Field) Value
}

// TrackData is a map-backed Track.
type TrackData struct {
	ID     string
	Fields map[Field]Value
}

// NewTrack creates a TrackData with the given uid.
func NewTrack(uid string) *TrackData {
	return &TrackData{ID: uid, Fields: make(map[Field]Value)}
}

// Set stores a field value and returns the track for chaining.
func (t *TrackData) Set(f Field, v Value) *TrackData {
	t.Fields[f] = v
	return t
}

// UID implements Track.
func (t *TrackData) UID() string { return t.ID }

// Value implements Track. UniqueID always resolves to the uid. Missing numeric
// fields read as 0 and missing text fields as "".
func (t *TrackData) Value(f Field) Value {
	if f == UniqueID {
		return Text(t.ID)
	}
	if v, ok := t.Fields[f]; ok {
		return v
	}
	if f.IsNumeric() {
		return Int64(0)
	}
	return Text("")
}
