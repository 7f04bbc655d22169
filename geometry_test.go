// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package ftlsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParamsConventional(t *testing.T) {
	in := DefaultInput()
	g := NewParams(256<<20, 1, in)

	require.NotNil(t, g)
	assert.Equal(t, in.NANDChannels, g.NCh)
	assert.Greater(t, g.TotalPgs, uint64(0))
	assert.Equal(t, g.TotalLuns, uint64(in.NANDChannels*in.LunsPerNANDCh))
	assert.Equal(t, g.PgsPerLine, g.BlksPerLine*g.PgsPerBlk)
}

func TestNewParamsPartitioning(t *testing.T) {
	in := DefaultInput()
	in.NANDChannels = 8
	g := NewParams(256<<20, 4, in)

	assert.Equal(t, 2, g.NCh)
}

func TestNewParamsHybridCapacitySplit(t *testing.T) {
	in := DefaultHybridInput()
	g := NewParams(1<<30, 1, in)

	require.Equal(t, ModeHybrid, g.Mode)
	assert.Greater(t, g.SLCTotalPgs, uint64(0))
	assert.Greater(t, g.QLCTotalPgs, uint64(0))
	assert.Equal(t, g.TotalPgs, g.SLCTotalPgs+g.QLCTotalPgs)

	// SLC tier gets roughly SLCChannels/(SLCChannels+QLCChannels) of the
	// channel-proportional split; QLC gets the much larger remainder.
	assert.Less(t, g.SLCTotalPgs, g.QLCTotalPgs)

	assert.Equal(t, g.SLCStartLPN, LPN(0))
	assert.Equal(t, g.SLCEndLPN, g.QLCStartLPN)
	assert.Equal(t, g.QLCEndLPN, LPN(g.TotalPgs))
}

func TestPPAPageIndexBijective(t *testing.T) {
	in := DefaultInput()
	g := NewParams(64<<20, 1, in)

	seen := make(map[uint64]PPA)
	for ch := 0; ch < g.NCh; ch++ {
		for lun := 0; lun < in.LunsPerNANDCh; lun++ {
			ppa := PPA{Channel: ch, LUN: lun, Plane: 0, Block: 0, Page: 0}
			idx := ppa.PageIndex(g)
			if other, ok := seen[idx]; ok {
				t.Fatalf("pgidx collision: %v and %v both map to %d", ppa, other, idx)
			}
			seen[idx] = ppa
		}
	}
}

func TestPPAUnmapped(t *testing.T) {
	u := Unmapped()
	assert.False(t, u.IsMapped())

	mapped := PPA{Channel: 0, LUN: 0, Plane: 0, Block: 0, Page: 0}
	assert.True(t, mapped.IsMapped())
}

func TestInvariantViolationPanics(t *testing.T) {
	assert.Panics(t, func() {
		InvariantViolation("block %d has impossible vpc %d", 3, -1)
	})
}
