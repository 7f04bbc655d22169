// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package wp implements the write pointer allocator variants: the plain
// round-robin pointer used by the conventional FTL and by the hybrid
// FTL's QLC tier, and the die-interleaved (DA) pointer used by the
// hybrid FTL's SLC tier. Both hand out PPAs one page at a time and roll
// over to a fresh line when a block is exhausted.
package wp

import (
	ftlsim "github.com/dswarbrick/ftlsim"
	"github.com/dswarbrick/ftlsim/line"
)

// RoundRobin fills the pages of one oneshot page (PgsPerOneshotPg pages)
// in order, then moves to the next channel, then LUN, then plane, before
// moving to the next oneshot page (wordline) within the current line.
type RoundRobin struct {
	g        *ftlsim.Params
	lm       *line.Manager
	chLo, chHi int // [chLo, chHi) -- restricts QLC-tier RR to its channel range

	cur  ftlsim.PPA
	curLine *line.Line
}

// NewRoundRobin builds a pointer restricted to channels [chLo, chHi).
// Pass chLo=0, chHi=g.NCh for the conventional, whole-device pointer.
func NewRoundRobin(g *ftlsim.Params, lm *line.Manager, chLo, chHi int) *RoundRobin {
	p := &RoundRobin{g: g, lm: lm, chLo: chLo, chHi: chHi}
	p.curLine = lm.PopFree()
	p.cur = ftlsim.PPA{Channel: chLo, LUN: 0, Plane: 0, Block: p.curLine.ID, Page: 0}
	return p
}

// Peek returns the PPA the next GetNewPage call will hand out, without
// consuming it.
func (p *RoundRobin) Peek() ftlsim.PPA { return p.cur }

// GetNewPage returns the current PPA and the line it belongs to, then
// advances the pointer. A RoundRobin built with chLo/chHi never produces
// a PPA outside that range, by construction.
func (p *RoundRobin) GetNewPage() (ftlsim.PPA, *line.Line, error) {
	ret := p.cur
	ret.Block = p.curLine.ID
	l := p.curLine
	if err := p.advance(); err != nil {
		return ftlsim.PPA{}, nil, err
	}
	return ret, l, nil
}

func (p *RoundRobin) advance() error {
	g := p.g
	in := g.Input

	oneshot := int(g.PgsPerOneshotPg)
	if oneshot == 0 {
		oneshot = 1
	}
	p.cur.Page++
	if p.cur.Page%oneshot != 0 {
		return nil
	}
	p.cur.Page -= oneshot

	p.cur.Channel++
	if p.cur.Channel != p.chHi {
		return nil
	}
	p.cur.Channel = p.chLo

	p.cur.LUN++
	if p.cur.LUN != in.LunsPerNANDCh {
		return nil
	}
	p.cur.LUN = 0

	p.cur.Plane++
	if p.cur.Plane != in.PlnsPerLun {
		return nil
	}
	p.cur.Plane = 0

	p.cur.Page += oneshot
	if uint64(p.cur.Page) != g.PgsPerBlk {
		return nil
	}
	p.cur.Page = 0

	// Block exhausted: retire the current line and allocate a fresh one.
	p.lm.EnterVictimPool(p.curLine)
	next := p.lm.PopFree()
	if next == nil {
		return ftlsim.ErrNoFreeLines
	}
	p.curLine = next
	p.cur.Block = next.ID
	return nil
}

// DieInterleaved spreads consecutive host writes across every LUN in
// its channel range: SetLUN points the pointer at the LUN a given LPN
// hashes to before each write, so writes rotate LUN-to-LUN instead of
// filling one LUN before moving to the next. Each LUN keeps its own
// plane/page cursor and current line, since LUNs are no longer visited
// in any fixed order relative to each other.
type DieInterleaved struct {
	g  *ftlsim.Params
	ch, lun int // LUN the next GetNewPage call targets
	chLo, chHi int
	lunsPerCh  int
	nLuns      int

	lms []*line.Manager // one per LUN in range, indexed by globalLUN (lun*(chHi-chLo) + ch-chLo), not by PPA.GlobalLUN

	cur     []ftlsim.PPA // per-LUN plane/page cursor, indexed by global LUN
	curLine []*line.Line // per-LUN current line, indexed by global LUN
}

// NewDieInterleaved builds a DA pointer over the channel range
// [chLo, chHi), with one line.Manager per LUN in that range.
func NewDieInterleaved(g *ftlsim.Params, chLo, chHi int, lms []*line.Manager) *DieInterleaved {
	p := &DieInterleaved{
		g: g, chLo: chLo, chHi: chHi, lunsPerCh: g.LunsPerNANDCh,
		nLuns: len(lms),
		lms:   lms,
		ch:    chLo, lun: 0,
	}
	p.curLine = make([]*line.Line, len(lms))
	p.cur = make([]ftlsim.PPA, len(lms))
	for i, lm := range lms {
		p.curLine[i] = lm.PopFree()
	}
	return p
}

func (p *DieInterleaved) globalLUN(ch, lun int) int {
	return lun*(p.chHi-p.chLo) + (ch - p.chLo)
}

// GlobalLUNOf returns the same per-LUN index GetNewPage used to hand out
// ppa, so callers outside this package (invalidating an overwritten
// mapping, for instance) can find the right line manager.
func (p *DieInterleaved) GlobalLUNOf(ppa ftlsim.PPA) int {
	return p.globalLUN(ppa.Channel, ppa.LUN)
}

// SetLUN points the next GetNewPage call at the LUN lpn maps to --
// glun = lpn mod nLuns -- so the caller can make every host write
// rotate across the whole LUN range instead of relying on GetNewPage's
// own fallback rotation. Callers that never call SetLUN (garbage
// collection, copying a page forward) keep using that fallback.
func (p *DieInterleaved) SetLUN(lpn ftlsim.LPN) {
	glun := int(uint64(lpn) % uint64(p.nLuns))
	width := p.chHi - p.chLo
	p.lun = glun / width
	p.ch = p.chLo + glun%width
}

// GetNewPage returns the current PPA within the targeted LUN's current
// line and the line it belongs to, advances that LUN's own plane/page
// cursor (rolling its line when its block is exhausted), then advances
// the pointer's default target to the next LUN for callers that never
// call SetLUN.
func (p *DieInterleaved) GetNewPage() (ftlsim.PPA, *line.Line, error) {
	glun := p.globalLUN(p.ch, p.lun)
	cl := p.curLine[glun]
	cur := p.cur[glun]

	ret := ftlsim.PPA{Channel: p.ch, LUN: p.lun, Plane: cur.Plane, Block: cl.ID, Page: cur.Page}

	if err := p.advance(glun); err != nil {
		return ftlsim.PPA{}, nil, err
	}

	p.lun++
	if p.lun == p.lunsPerCh {
		p.lun = 0
		p.ch++
		if p.ch == p.chHi {
			p.ch = p.chLo
		}
	}
	return ret, cl, nil
}

func (p *DieInterleaved) advance(glun int) error {
	g := p.g
	in := g.Input
	cur := &p.cur[glun]

	cur.Plane++
	if cur.Plane != in.PlnsPerLun {
		return nil
	}
	cur.Plane = 0

	cur.Page++
	if uint64(cur.Page) != g.PgsPerBlk {
		return nil
	}
	cur.Page = 0

	lm := p.lms[glun]
	lm.EnterVictimPool(p.curLine[glun])
	next := lm.PopFree()
	if next == nil {
		return ftlsim.ErrNoFreeLines
	}
	p.curLine[glun] = next
	return nil
}

// CurrentLineFor returns the line a given global LUN is currently
// writing into.
func (p *DieInterleaved) CurrentLineFor(glun int) *line.Line { return p.curLine[glun] }
