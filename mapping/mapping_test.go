// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ftlsim "github.com/dswarbrick/ftlsim"
)

func newTestParams() *ftlsim.Params {
	return ftlsim.NewParams(64<<20, 1, ftlsim.DefaultInput())
}

func TestTableGetSetRoundTrip(t *testing.T) {
	g := newTestParams()
	tbl := New(g)

	lpn := ftlsim.LPN(5)
	ppa := ftlsim.PPA{Channel: 1, LUN: 0, Plane: 0, Block: 2, Page: 3}

	assert.False(t, tbl.Get(lpn).IsMapped())

	tbl.Set(lpn, ppa)
	assert.Equal(t, ppa, tbl.Get(lpn))
	assert.Equal(t, lpn, tbl.ReverseGet(ppa.PageIndex(g)))
}

func TestTableUnmapClearsReverseOnly(t *testing.T) {
	g := newTestParams()
	tbl := New(g)

	lpn := ftlsim.LPN(1)
	ppa := ftlsim.PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 0}
	tbl.Set(lpn, ppa)

	tbl.Unmap(ppa)
	assert.Equal(t, ftlsim.InvalidLPN, tbl.ReverseGet(ppa.PageIndex(g)))
	// Forward mapping survives Unmap; a new Set is what replaces it.
	assert.Equal(t, ppa, tbl.Get(lpn))
}

func TestTableOverwriteMovesReverseEntry(t *testing.T) {
	g := newTestParams()
	tbl := New(g)

	lpn := ftlsim.LPN(7)
	first := ftlsim.PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 0}
	second := ftlsim.PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 1}

	tbl.Set(lpn, first)
	tbl.Set(lpn, second)

	assert.Equal(t, second, tbl.Get(lpn))
	assert.Equal(t, lpn, tbl.ReverseGet(second.PageIndex(g)))
	// Without an explicit Unmap, the stale reverse entry for `first`
	// still points at lpn -- callers are responsible for invalidating
	// the old PPA before calling Set.
	assert.Equal(t, lpn, tbl.ReverseGet(first.PageIndex(g)))
}
