/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package trackset

// Universe is the ordered candidate pool a TrackSet is defined over. Each uid
// gets a stable index used as its bit position.
type Universe struct {
	uids  []string
	index map[string]uint32
}

// NewUniverse builds a universe from uids. Duplicates and empty uids are dropped;
// the first occurrence keeps its position.
func NewUniverse(uids []string) *Universe {
	u := &Universe{
		uids:  make([]string, 0, len(uids)),
		index: make(map[string]uint32, len(uids)),
	}
	for _, uid := range uids {
		if uid == "" {
			continue
		}
		if _, seen := u.index[uid]; seen {
			continue
		}
		u.index[uid] = uint32(len(u.uids))
		u.uids = append(u.uids, uid)
	}
	return u
}

// Size returns the number of tracks in the universe.
func (u *Universe) Size() int {
	if u == nil {
		return 0
	}
	return len(u.uids)
}

// Index returns the bit position of uid.
func (u *Universe) Index(uid string) (uint32, bool) {
	if u == nil {
		return 0, false
	}
	i, ok := u.index[uid]
	return i, ok
}

// UID returns the uid at position i.
func (u *Universe) UID(i uint32) string {
	return u.uids[i]
}

// UIDs returns a copy of all uids in universe order.
func (u *Universe) UIDs() []string {
	if u == nil {
		return nil
	}
	return append([]string(nil), u.uids...)
}
