// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package hotness tracks per-LPN access frequency for the hybrid FTL's
// SLC-to-QLC migration engine, using a fixed-capacity open-addressed
// table with linear probing rather than a growable map.
package hotness

import ftlsim "github.com/dswarbrick/ftlsim"

type entry struct {
	lpn           ftlsim.LPN
	recentAccess  int
	lastAccessNs  uint64
	inUse         bool
}

// Tracker is a fixed-size table of per-LPN access counters.
type Tracker struct {
	table []entry

	hotThreshold  int
	coldThreshold int
}

// New allocates a Tracker with the given capacity (HotnessTableSize).
func New(size, hotThreshold, coldThreshold int) *Tracker {
	return &Tracker{
		table:         make([]entry, size),
		hotThreshold:  hotThreshold,
		coldThreshold: coldThreshold,
	}
}

func (t *Tracker) slot(lpn ftlsim.LPN) int {
	return int(uint64(lpn) % uint64(len(t.table)))
}

// get returns the entry index for lpn, linearly probing for either an
// existing entry or a free slot, and false if the table is full and lpn
// has no existing entry.
func (t *Tracker) get(lpn ftlsim.LPN) (int, bool) {
	n := len(t.table)
	start := t.slot(lpn)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		e := &t.table[idx]
		if !e.inUse {
			return idx, true
		}
		if e.lpn == lpn {
			return idx, true
		}
	}
	return 0, false
}

// RecordAccess increments lpn's recent-access counter and stamps the
// access time, allocating a fresh slot if lpn has never been seen.
//
// The "has it been over a second since the last access" aging check
// below compares now against lastAccessNs after lastAccessNs has
// already been set to now, so it can never fire. Kept as-is rather than
// silently fixed.
// TODO: age recentAccess against the time of the *previous* access, not
// the one just recorded, if this ever needs real decay behaviour.
func (t *Tracker) RecordAccess(lpn ftlsim.LPN, now uint64) error {
	idx, ok := t.get(lpn)
	if !ok {
		return ftlsim.ErrHotnessTableFull
	}
	e := &t.table[idx]
	if !e.inUse {
		e.inUse = true
		e.lpn = lpn
		e.recentAccess = 0
	}
	e.recentAccess++
	e.lastAccessNs = now

	if now-e.lastAccessNs > 1_000_000_000 {
		e.recentAccess--
	}
	return nil
}

// ShouldMigrate reports whether lpn is cold enough to demote from SLC
// to QLC: the hybrid tier moves data that has gone quiet out of the
// fast tier to make room, not data still being hit hard. QLC-to-SLC
// promotion is intentionally never offered; no code path for it
// exists.
func (t *Tracker) ShouldMigrate(lpn ftlsim.LPN) bool {
	idx, ok := t.get(lpn)
	if !ok {
		return false
	}
	e := &t.table[idx]
	return e.inUse && e.recentAccess <= t.coldThreshold
}

// ForEachCandidate walks the table in slot order -- at most its fixed
// capacity, never the full LPN space -- calling fn for every entry
// currently in use. fn returns false to stop the walk early, letting a
// caller bound how many candidates it inspects per check.
func (t *Tracker) ForEachCandidate(fn func(lpn ftlsim.LPN) bool) {
	for i := range t.table {
		e := &t.table[i]
		if !e.inUse {
			continue
		}
		if !fn(e.lpn) {
			return
		}
	}
}

// Reset clears lpn's recent-access counter after a migration.
func (t *Tracker) Reset(lpn ftlsim.LPN) {
	idx, ok := t.get(lpn)
	if !ok {
		return
	}
	t.table[idx].recentAccess = 0
}
