/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package trackset implements sets of track uids over a fixed universe with
// universe / explicit / empty representations.
package trackset

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// CountUnknown is returned by Count when the exact size is not materialized.
const CountUnknown = -1

type kind uint8

const (
	kindOutstanding kind = iota
	kindEmpty
	kindUniverse
	kindExplicit
)

// Set is a set of track uids. The zero value is an outstanding set: no result is
// known yet and it matches nothing.
//
// Mutating methods change the set in place. A Set is not safe for concurrent
// mutation; use Clone to hand out read-only snapshots.
type Set struct {
	universe *Universe
	kind     kind
	bits     *roaring.Bitmap
}

// MakeUniverse returns a set matching every track of u.
func MakeUniverse(u *Universe) Set {
	return Set{universe: u, kind: kindUniverse}
}

// MakeEmpty returns a set matching no track of u.
func MakeEmpty(u *Universe) Set {
	return Set{universe: u, kind: kindEmpty}
}

// New returns MakeUniverse(u) when all is set, MakeEmpty(u) otherwise.
func New(u *Universe, all bool) Set {
	if all {
		return MakeUniverse(u)
	}
	return MakeEmpty(u)
}

// Universe returns the universe the set is defined over.
func (s Set) Universe() *Universe { return s.universe }

// IsOutstanding reports whether the set carries no result yet.
func (s Set) IsOutstanding() bool { return s.kind == kindOutstanding }

// IsEmpty reports whether the set is known to match nothing.
func (s Set) IsEmpty() bool { return s.kind == kindEmpty }

// IsUniverse reports whether the set matches everything.
func (s Set) IsUniverse() bool { return s.kind == kindUniverse }

// Contains reports whether uid is a member. A universe set contains every uid.
func (s Set) Contains(uid string) bool {
	switch s.kind {
	case kindUniverse:
		return true
	case kindExplicit:
		i, ok := s.universe.Index(uid)
		return ok && s.bits.Contains(i)
	}
	return false
}

// Count returns the number of members, or CountUnknown for outstanding and
// universe sets. The universe size is available from Universe().Size().
func (s Set) Count() int {
	switch s.kind {
	case kindEmpty:
		return 0
	case kindExplicit:
		return int(s.bits.GetCardinality())
	}
	return CountUnknown
}

// UIDs returns the members in universe order.
func (s Set) UIDs() []string {
	switch s.kind {
	case kindUniverse:
		return s.universe.UIDs()
	case kindExplicit:
		out := make([]string, 0, s.bits.GetCardinality())
		it := s.bits.Iterator()
		for it.HasNext() {
			out = append(out, s.universe.UID(it.Next()))
		}
		return out
	}
	return nil
}

// Clone returns an independent copy. Explicit bitmaps are shared copy-on-write.
func (s Set) Clone() Set {
	out := s
	if s.bits != nil {
		out.bits = s.bits.Clone()
	}
	return out
}

// Equal reports whether both sets have the same state and members.
func (s Set) Equal(o Set) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case kindUniverse:
		return s.universe == o.universe || sameUIDs(s.universe.UIDs(), o.universe.UIDs())
	case kindExplicit:
		if s.universe == o.universe {
			return s.bits.Equals(o.bits)
		}
		return sameUIDs(s.UIDs(), o.UIDs())
	}
	return true
}

// Unite adds uids to the set. Uids outside the universe are ignored.
func (s *Set) Unite(uids []string) {
	if len(uids) == 0 || s.kind == kindOutstanding || s.kind == kindUniverse {
		return
	}
	s.materialize()
	for _, uid := range uids {
		if i, ok := s.universe.Index(uid); ok {
			s.bits.Add(i)
		}
	}
	s.normalize()
}

// Subtract removes uids from the set.
func (s *Set) Subtract(uids []string) {
	if len(uids) == 0 || s.kind == kindOutstanding || s.kind == kindEmpty {
		return
	}
	s.materialize()
	for _, uid := range uids {
		if i, ok := s.universe.Index(uid); ok {
			s.bits.Remove(i)
		}
	}
	s.normalize()
}

// UniteSet adds every member of o.
func (s *Set) UniteSet(o Set) {
	if s.kind == kindOutstanding || o.kind == kindOutstanding ||
		o.kind == kindEmpty || s.kind == kindUniverse {
		return
	}
	if s.universe != o.universe {
		s.Unite(o.UIDs())
		return
	}
	if o.kind == kindUniverse {
		*s = MakeUniverse(s.universe)
		return
	}
	s.materialize()
	s.bits.Or(o.bits)
	s.normalize()
}

// SubtractSet removes every member of o.
func (s *Set) SubtractSet(o Set) {
	if s.kind == kindOutstanding || o.kind == kindOutstanding ||
		o.kind == kindEmpty || s.kind == kindEmpty {
		return
	}
	if s.universe != o.universe {
		s.Subtract(o.UIDs())
		return
	}
	if o.kind == kindUniverse {
		*s = MakeEmpty(s.universe)
		return
	}
	s.materialize()
	s.bits.AndNot(o.bits)
	s.normalize()
}

// Intersect keeps only members also contained in o. An outstanding o places no
// constraint.
func (s *Set) Intersect(o Set) {
	if s.kind == kindOutstanding || o.kind == kindOutstanding || s.kind == kindEmpty {
		return
	}
	if s.universe != o.universe {
		var keep []string
		for _, uid := range s.UIDs() {
			if o.Contains(uid) {
				keep = append(keep, uid)
			}
		}
		*s = MakeEmpty(s.universe)
		s.Unite(keep)
		return
	}
	switch {
	case o.kind == kindEmpty:
		*s = MakeEmpty(s.universe)
	case o.kind == kindUniverse:
	case s.kind == kindUniverse:
		s.kind = kindExplicit
		s.bits = o.bits.Clone()
		s.normalize()
	default:
		s.bits.And(o.bits)
		s.normalize()
	}
}

// materialize switches to the explicit representation.
func (s *Set) materialize() {
	switch s.kind {
	case kindEmpty:
		s.bits = newBitmap()
	case kindUniverse:
		s.bits = newBitmap()
		s.bits.AddRange(0, uint64(s.universe.Size()))
	default:
		return
	}
	s.kind = kindExplicit
}

// normalize picks the empty or universe representation when the explicit
// bitmap is empty or full.
func (s *Set) normalize() {
	if s.kind != kindExplicit {
		return
	}
	card := s.bits.GetCardinality()
	switch {
	case card == 0:
		s.kind, s.bits = kindEmpty, nil
	case card == uint64(s.universe.Size()):
		s.kind, s.bits = kindUniverse, nil
	}
}

func newBitmap() *roaring.Bitmap {
	b := roaring.New()
	b.SetCopyOnWrite(true)
	return b
}

func sameUIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a = append([]string(nil), a...)
	b = append([]string(nil), b...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
