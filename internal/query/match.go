/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package query

import (
	"strings"

	"github.com/friendsincode/dynbias/internal/meta"
)

// Match evaluates node against a single track. A nil node matches everything
// and a text filter on AnyText searches every text search field.
func Match(node Node, track meta.Track) bool {
	switch n := node.(type) {
	case nil:
		return true
	case NumberFilter:
		v := track.Value(n.Field).Int()
		switch n.Compare {
		case Equals:
			return v == n.Value
		case GreaterThan:
			return v > n.Value
		case LessThan:
			return v < n.Value
		}
		return false
	case TextFilter:
		if n.Field == meta.AnyText {
			for _, f := range meta.TextSearchFields {
				if MatchText(track.Value(f).String(), n.Value, n.Exact) {
					return true
				}
			}
			return false
		}
		return MatchText(track.Value(n.Field).String(), n.Value, n.Exact)
	case And:
		for _, c := range n {
			if !Match(c, track) {
				return false
			}
		}
		return true
	case Or:
		for _, c := range n {
			if Match(c, track) {
				return true
			}
		}
		return false
	}
	return false
}

// MatchText compares text case-insensitively, by substring or whole value.
func MatchText(have, want string, exact bool) bool {
	if exact {
		return strings.ToLower(have) == strings.ToLower(want)
	}
	return strings.Contains(strings.ToLower(have), strings.ToLower(want))
}
