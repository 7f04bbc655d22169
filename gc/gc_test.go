// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ftlsim "github.com/dswarbrick/ftlsim"
	"github.com/dswarbrick/ftlsim/line"
	"github.com/dswarbrick/ftlsim/mapping"
	"github.com/dswarbrick/ftlsim/nand"
	"github.com/dswarbrick/ftlsim/wp"
)

func setup(t *testing.T) (*ftlsim.Params, *line.Manager, *mapping.Table, *nand.Device, *wp.RoundRobin) {
	t.Helper()
	g := ftlsim.NewParams(16<<20, 1, ftlsim.DefaultInput())
	lm := line.NewManager(g, int(g.TotalLines), int(g.PgsPerLine))
	tbl := mapping.New(g)
	dev := nand.NewDevice(g, nand.NewPCIeLink(g.Input.PCIeBandwidthBps))
	rr := wp.NewRoundRobin(g, lm, 0, g.NCh)
	return g, lm, tbl, dev, rr
}

func fillOneLine(t *testing.T, g *ftlsim.Params, tbl *mapping.Table, rr *wp.RoundRobin) (ftlsim.LPN, ftlsim.PPA) {
	t.Helper()
	pagesPerLine := g.NCh * g.Input.LunsPerNANDCh * g.Input.PlnsPerLun * int(g.PgsPerBlk)

	var firstLPN ftlsim.LPN
	var firstPPA ftlsim.PPA
	for i := 0; i < pagesPerLine; i++ {
		lpn := ftlsim.LPN(i)
		ppa, l, err := rr.GetNewPage()
		require.NoError(t, err)
		tbl.Set(lpn, ppa)
		l.MarkPageValid()
		if i == 0 {
			firstLPN, firstPPA = lpn, ppa
		}
	}
	return firstLPN, firstPPA
}

func TestRunCleansVictimAndReturnsLineToFreeList(t *testing.T) {
	g, lm, tbl, dev, rr := setup(t)
	fillOneLine(t, g, tbl, rr)

	freeBefore := lm.FreeCount()

	collector := New(g, lm, tbl, dev, rr, int(g.PgsPerLine))
	_, err := collector.Run(true, 0)
	require.NoError(t, err)

	assert.Equal(t, freeBefore+1, lm.FreeCount())
}

func TestRunPreservesMappingAfterCopyForward(t *testing.T) {
	g, lm, tbl, dev, rr := setup(t)
	lpn, oldPPA := fillOneLine(t, g, tbl, rr)

	collector := New(g, lm, tbl, dev, rr, int(g.PgsPerLine))
	_, err := collector.Run(true, 0)
	require.NoError(t, err)

	newPPA := tbl.Get(lpn)
	assert.True(t, newPPA.IsMapped())
	assert.NotEqual(t, oldPPA, newPPA)
}

func TestRunWithNoVictimsReturnsError(t *testing.T) {
	g, lm, tbl, dev, rr := setup(t)
	collector := New(g, lm, tbl, dev, rr, int(g.PgsPerLine))

	_, err := collector.Run(false, 0)
	assert.ErrorIs(t, err, ftlsim.ErrNoSuitableVictim)
}
