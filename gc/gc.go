// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package gc implements garbage collection: victim selection, per-page
// copy-forward, and block erase.
package gc

import (
	ftlsim "github.com/dswarbrick/ftlsim"
	"github.com/dswarbrick/ftlsim/line"
	"github.com/dswarbrick/ftlsim/mapping"
	"github.com/dswarbrick/ftlsim/nand"
)

// Writer is the subset of a write pointer GC needs to copy a page
// forward: get the next free slot and the line it belongs to, so GC can
// keep that line's valid-page count correct.
type Writer interface {
	GetNewPage() (ftlsim.PPA, *line.Line, error)
}

// Collector cleans one partition's (or one hybrid tier's) lines.
type Collector struct {
	g      *ftlsim.Params
	lm     *line.Manager
	table  *mapping.Table
	dev    *nand.Device
	writer Writer

	pgsPerLine int
	nCh, lunsPerCh, plnsPerLun int

	lastVictimIPC int
}

// New builds a Collector. writer is the pointer pages are copied
// forward into -- normally the same write pointer host writes use.
func New(g *ftlsim.Params, lm *line.Manager, table *mapping.Table, dev *nand.Device, writer Writer, pgsPerLine int) *Collector {
	return &Collector{
		g: g, lm: lm, table: table, dev: dev, writer: writer,
		pgsPerLine: pgsPerLine,
		nCh:        g.NCh, lunsPerCh: g.Input.LunsPerNANDCh, plnsPerLun: g.Input.PlnsPerLun,
	}
}

// ShouldGC reports whether the free line count has dropped to the
// ordinary background-GC threshold.
func (c *Collector) ShouldGC() bool {
	return c.lm.FreeCount() <= c.g.GCThresLines
}

// ShouldGCHigh reports whether the free line count has dropped to the
// foreground (blocking) GC threshold, the more urgent of the two.
func (c *Collector) ShouldGCHigh() bool {
	return c.lm.FreeCount() <= c.g.GCThresLinesHigh
}

// Run selects a victim line (forcing selection if force is true, e.g.
// for foreground GC) and cleans it. It returns ftlsim.ErrNoSuitableVictim
// if no line meets the selection criteria. The victim's invalid-page
// count at selection time is recorded and available via LastVictimIPC,
// for a caller that refills a write-flow credit pool by that amount.
func (c *Collector) Run(force bool, now uint64) (uint64, error) {
	victim := c.lm.SelectVictim(force)
	if victim == nil {
		return now, ftlsim.ErrNoSuitableVictim
	}
	c.lastVictimIPC = victim.IPC
	return c.cleanLine(victim, now)
}

// LastVictimIPC returns the invalid-page count of the line most
// recently cleaned by Run.
func (c *Collector) LastVictimIPC() int { return c.lastVictimIPC }

// cleanLine walks every wordline position of every channel/LUN/plane
// die making up the victim line one flash page at a time, reading and
// rewriting every still-valid page in each group with a single
// aggregated NAND read, then erasing every block in the line and
// returning it to the free list.
func (c *Collector) cleanLine(victim *line.Line, now uint64) (uint64, error) {
	g := c.g
	stime := now

	groupSize := g.PgsPerFlashPg
	if groupSize == 0 {
		groupSize = 1
	}

	for pg := uint64(0); pg < g.PgsPerBlk; pg += groupSize {
		n := groupSize
		if pg+n > g.PgsPerBlk {
			n = g.PgsPerBlk - pg
		}
		for ch := 0; ch < c.nCh; ch++ {
			for lun := 0; lun < c.lunsPerCh; lun++ {
				for pl := 0; pl < c.plnsPerLun; pl++ {
					base := ftlsim.PPA{Channel: ch, LUN: lun, Plane: pl, Block: victim.ID, Page: int(pg)}
					end, err := c.cleanOneFlashPg(base, n, stime)
					if err != nil {
						return stime, err
					}
					if end > stime {
						stime = end
					}
				}
			}
		}
	}

	// Erase every block making up the line, one erase command per
	// channel/LUN/plane block; the returned time is the completion of the
	// last erase issued.
	var eraseEnd uint64
	for ch := 0; ch < c.nCh; ch++ {
		for lun := 0; lun < c.lunsPerCh; lun++ {
			for pl := 0; pl < c.plnsPerLun; pl++ {
				ppa := ftlsim.PPA{Channel: ch, LUN: lun, Plane: pl, Block: victim.ID, Page: 0}
				eraseEnd = c.dev.Advance(nand.Command{Type: nand.CmdErase, PPA: ppa, Stime: stime})
			}
		}
	}

	c.lm.PushFree(victim)
	return eraseEnd, nil
}

// cleanOneFlashPg cleans one flash-page-sized run of n pages starting
// at base: it first counts how many of them are still valid and, if
// any are, issues one NAND read sized pgsz*count for the whole group,
// then copies each valid page forward individually (the destination
// mapping update can't be batched, since each page may land on a
// different write-pointer slot). A group with no valid pages costs
// nothing -- not even a NOP -- since there is no data left to move.
func (c *Collector) cleanOneFlashPg(base ftlsim.PPA, n uint64, stime uint64) (uint64, error) {
	type validPage struct {
		ppa ftlsim.PPA
		lpn ftlsim.LPN
	}
	valid := make([]validPage, 0, n)
	for i := uint64(0); i < n; i++ {
		ppa := base
		ppa.Page = base.Page + int(i)
		lpn := c.table.ReverseGet(ppa.PageIndex(c.g))
		if lpn != ftlsim.InvalidLPN {
			valid = append(valid, validPage{ppa, lpn})
		}
	}
	if len(valid) == 0 {
		return stime, nil
	}

	readEnd := c.dev.Advance(nand.Command{
		Type: nand.CmdRead, PPA: base, Stime: stime,
		Xfersize: c.g.PgSz * uint64(len(valid)),
	})

	end := readEnd
	for _, v := range valid {
		newPPA, newLine, err := c.writer.GetNewPage()
		if err != nil {
			return stime, err
		}
		writeEnd := c.dev.Advance(nand.Command{
			Type: nand.CmdWrite, PPA: newPPA, Stime: readEnd,
			Xfersize: c.g.PgSz,
		})
		if writeEnd > end {
			end = writeEnd
		}

		c.table.Unmap(v.ppa)
		c.table.Set(v.lpn, newPPA)
		newLine.MarkPageValid()
	}

	return end, nil
}
