// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package ftlsim

import "fmt"

// LPN is a logical page number, dense in [0, params.TotalPgs).
type LPN uint64

// InvalidLPN marks an empty reverse-map slot. It is the largest value an
// LPN can hold, far beyond any TotalPgs NewParams produces, so it never
// collides with a real LPN.
const InvalidLPN LPN = ^LPN(0)

// PPA is a physical page address: (channel, LUN, plane, block, page).
//
// The zero value is NOT unmapped -- (0,0,0,0,0) is a legitimate address.
// Use Unmapped() / IsMapped() to test for the sentinel.
type PPA struct {
	Channel int
	LUN     int
	Plane   int
	Block   int
	Page    int
}

// Unmapped returns the sentinel PPA value. It is never equal to any PPA
// produced by a write pointer, since Channel is negative there.
func Unmapped() PPA {
	return PPA{Channel: -1, LUN: -1, Plane: -1, Block: -1, Page: -1}
}

// IsMapped reports whether p is a real address, as opposed to the
// Unmapped() sentinel.
func (p PPA) IsMapped() bool {
	return p.Channel >= 0
}

func (p PPA) String() string {
	if !p.IsMapped() {
		return "ppa(unmapped)"
	}
	return fmt.Sprintf("ppa(ch=%d,lun=%d,pl=%d,blk=%d,pg=%d)", p.Channel, p.LUN, p.Plane, p.Block, p.Page)
}

// PageIndex linearizes a PPA into the unique, bijective pgidx used to key
// the NAND device model and the reverse map:
//
//	pgidx = ch*pgsPerCh + lun*pgsPerLun + pl*pgsPerPl + blk*pgsPerBlk + pg
func (p PPA) PageIndex(g *Params) uint64 {
	return uint64(p.Channel)*g.PgsPerCh +
		uint64(p.LUN)*g.PgsPerLun +
		uint64(p.Plane)*g.PgsPerPl +
		uint64(p.Block)*g.PgsPerBlk +
		uint64(p.Page)
}

// GlobalLUN returns the die-interleaving index used by the DA write
// pointer and by per-LUN line managers: glun = lun*nchs + ch.
func (p PPA) GlobalLUN(g *Params) int {
	return p.LUN*g.NCh + p.Channel
}
