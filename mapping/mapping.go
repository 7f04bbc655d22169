// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package mapping implements the forward (LPN->PPA) and reverse
// (pgidx->LPN) translation tables that every read and write passes
// through.
package mapping

import (
	"fmt"

	ftlsim "github.com/dswarbrick/ftlsim"
)

// Table is a flat forward/reverse page mapping. It is not safe for
// concurrent use; callers serialize access the same way the rest of the
// FTL does (see writeback.Buffer for the one exception).
type Table struct {
	g *ftlsim.Params

	fwd []ftlsim.PPA // indexed by LPN
	rev []ftlsim.LPN // indexed by pgidx
}

// New allocates a Table sized for g, with every entry unmapped.
func New(g *ftlsim.Params) *Table {
	t := &Table{
		g:   g,
		fwd: make([]ftlsim.PPA, g.TotalPgs),
		rev: make([]ftlsim.LPN, g.TotalPgs),
	}
	for i := range t.fwd {
		t.fwd[i] = ftlsim.Unmapped()
	}
	for i := range t.rev {
		t.rev[i] = ftlsim.InvalidLPN
	}
	return t
}

func (t *Table) checkLPN(lpn ftlsim.LPN) {
	if uint64(lpn) >= uint64(len(t.fwd)) {
		panic(fmt.Sprintf("mapping: lpn %d out of range [0,%d)", lpn, len(t.fwd)))
	}
}

// Get returns the current PPA for lpn, or the Unmapped() sentinel.
func (t *Table) Get(lpn ftlsim.LPN) ftlsim.PPA {
	t.checkLPN(lpn)
	return t.fwd[lpn]
}

// Set installs ppa as the mapping for lpn and updates the reverse map in
// lock-step.
func (t *Table) Set(lpn ftlsim.LPN, ppa ftlsim.PPA) {
	t.checkLPN(lpn)
	t.fwd[lpn] = ppa
	t.rev[ppa.PageIndex(t.g)] = lpn
}

// ReverseGet returns the LPN currently occupying pgidx, or InvalidLPN if
// the page is free or stale.
func (t *Table) ReverseGet(pgidx uint64) ftlsim.LPN {
	if pgidx >= uint64(len(t.rev)) {
		panic(fmt.Sprintf("mapping: pgidx %d out of range [0,%d)", pgidx, len(t.rev)))
	}
	return t.rev[pgidx]
}

// Unmap clears the reverse entry for ppa without touching the forward
// map, used when a page is invalidated but its LPN has already been
// remapped elsewhere (e.g. after a GC copy-forward).
func (t *Table) Unmap(ppa ftlsim.PPA) {
	t.rev[ppa.PageIndex(t.g)] = ftlsim.InvalidLPN
}
