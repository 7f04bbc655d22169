// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package nand

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ftlsim "github.com/dswarbrick/ftlsim"
)

func TestAdvanceWriteThenReadSerializesOnLUN(t *testing.T) {
	g := ftlsim.NewParams(64<<20, 1, ftlsim.DefaultInput())
	dev := NewDevice(g, NewPCIeLink(g.Input.PCIeBandwidthBps))

	ppa := ftlsim.PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 0}

	end1 := dev.Advance(Command{Type: CmdWrite, PPA: ppa, Stime: 0, Xfersize: g.PgSz})
	assert.Greater(t, end1, uint64(0))

	end2 := dev.Advance(Command{Type: CmdRead, PPA: ppa, Stime: 0, Xfersize: g.PgSz})
	assert.GreaterOrEqual(t, end2, end1, "second command on a busy LUN must not start before the first finishes")
}

func TestAdvanceDifferentLunsDoNotSerialize(t *testing.T) {
	g := ftlsim.NewParams(64<<20, 1, ftlsim.DefaultInput())
	dev := NewDevice(g, NewPCIeLink(g.Input.PCIeBandwidthBps))

	ppaA := ftlsim.PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 0}
	ppaB := ftlsim.PPA{Channel: 1, LUN: 0, Plane: 0, Block: 0, Page: 0}

	endA := dev.Advance(Command{Type: CmdWrite, PPA: ppaA, Stime: 0, Xfersize: g.PgSz})
	endB := dev.Advance(Command{Type: CmdWrite, PPA: ppaB, Stime: 0, Xfersize: g.PgSz})

	assert.Equal(t, endA, endB, "identical independent LUNs issued at the same stime finish together")
}

func TestAdvanceEraseUsesEraseLatency(t *testing.T) {
	g := ftlsim.NewParams(64<<20, 1, ftlsim.DefaultInput())
	dev := NewDevice(g, nil)

	ppa := ftlsim.PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 0}
	end := dev.Advance(Command{Type: CmdErase, PPA: ppa, Stime: 1000})
	assert.Equal(t, uint64(1000)+g.Input.BlockEraseLatencyNs, end)
}

func TestHybridReadLatencyPicksQLCBand(t *testing.T) {
	in := ftlsim.DefaultHybridInput()
	g := ftlsim.NewParams(1<<30, 1, in)
	dev := NewDevice(g, nil)

	// A channel past SLCChannels is QLC territory.
	qlcPPA := ftlsim.PPA{Channel: in.SLCChannels, LUN: 0, Plane: 0, Block: 0, Page: 0}
	end := dev.Advance(Command{Type: CmdRead, PPA: qlcPPA, Stime: 0, Xfersize: g.PgSz})
	assert.Greater(t, end, uint64(0))

	slcPPA := ftlsim.PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 0}
	slcEnd := dev.Advance(Command{Type: CmdRead, PPA: slcPPA, Stime: 0, Xfersize: g.PgSz})
	assert.Greater(t, slcEnd, uint64(0))
}

func TestNextIdleTimeTracksBusiestLUN(t *testing.T) {
	g := ftlsim.NewParams(64<<20, 1, ftlsim.DefaultInput())
	dev := NewDevice(g, nil)

	ppa := ftlsim.PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 0}
	end := dev.Advance(Command{Type: CmdWrite, PPA: ppa, Stime: 0, Xfersize: g.PgSz})

	assert.Equal(t, end, dev.NextIdleTime())
}
