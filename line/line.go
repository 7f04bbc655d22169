// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package line manages the lifecycle of lines (super-blocks striping one
// block from every LUN): a FIFO free list and a victim priority queue
// ordered by invalid page count, so garbage collection picks the line
// with the most garbage. There is no separate full list: a line the write
// pointer finishes always enters the victim queue, and the valid page
// count plays no part in victim order.
package line

import ftlsim "github.com/dswarbrick/ftlsim"

// State is the list a Line currently belongs to.
type State int

const (
	StateFree State = iota
	StateFull
	StateVictim
)

// Line is one super-block: ipc/vpc count invalid/valid pages across
// every block that makes up the line, and pos is this line's current
// index in the victim heap (-1 when not a heap member), the back
// pointer that makes ChangePriority O(log n) instead of O(n).
type Line struct {
	ID  int
	IPC int
	VPC int

	state State
	pos   int

	CurrentSec int // next free page slot, set by the write pointer on line switch
}

// Manager owns every Line for one partition (or, in DA mode, for one
// LUN) and the free/victim bookkeeping around them.
type Manager struct {
	g *ftlsim.Params

	lines     []*Line
	pgsPerLin int

	free []*Line // FIFO free list

	victims []*Line // array-backed max-heap on IPC (most garbage first)
}

// NewManager allocates n lines, all initially free.
func NewManager(g *ftlsim.Params, n int, pgsPerLine int) *Manager {
	m := &Manager{g: g, pgsPerLin: pgsPerLine}
	m.lines = make([]*Line, n)
	for i := range m.lines {
		l := &Line{ID: i, pos: -1}
		m.lines[i] = l
		m.free = append(m.free, l)
	}
	return m
}

// Line returns the line with the given id.
func (m *Manager) Line(id int) *Line { return m.lines[id] }

// Count returns the total number of lines this manager owns.
func (m *Manager) Count() int { return len(m.lines) }

// PopFree removes and returns a free line, or nil if the free list is
// exhausted -- the caller (write pointer) is expected to treat this as
// ftlsim.ErrNoFreeLines.
func (m *Manager) PopFree() *Line {
	if len(m.free) == 0 {
		return nil
	}
	l := m.free[0]
	m.free = m.free[1:]
	l.state = StateFull
	l.IPC, l.VPC, l.CurrentSec = 0, 0, 0
	return l
}

// FreeCount reports how many lines remain on the free list, used by the
// garbage collector's thresholds and by partition stats.
func (m *Manager) FreeCount() int { return len(m.free) }

// PushFree returns a fully-erased line to the free list, used after GC
// finishes erasing it.
func (m *Manager) PushFree(l *Line) {
	if l.state == StateVictim {
		m.removeFromHeap(l)
	}
	l.state = StateFree
	l.IPC, l.VPC = 0, 0
	m.free = append(m.free, l)
}

// MarkPageValid increments vpc; called when a page is written.
func (l *Line) MarkPageValid() { l.VPC++ }

// MarkPageInvalid increments ipc and decrements vpc; called when a page
// is overwritten or migrated away. If the line is already a victim-heap
// member its priority is refreshed in place.
func (m *Manager) MarkPageInvalid(l *Line) {
	l.IPC++
	l.VPC--
	if l.state == StateVictim {
		m.fixHeap(l.pos)
	}
}

// EnterVictimPool moves a full line into the victim heap once the write
// pointer finishes with it.
func (m *Manager) EnterVictimPool(l *Line) {
	l.state = StateVictim
	l.pos = len(m.victims)
	m.victims = append(m.victims, l)
	m.siftUp(l.pos)
}

// SelectVictim returns the line with the most invalid pages (the
// cheapest to clean), removing it from the heap. force bypasses the
// "worth collecting" threshold; without force, a line is only returned
// if its IPC exceeds pgsPerLine/8.
func (m *Manager) SelectVictim(force bool) *Line {
	if len(m.victims) == 0 {
		return nil
	}
	top := m.victims[0]
	if !force && top.IPC <= m.pgsPerLin/8 {
		return nil
	}
	m.removeFromHeap(top)
	top.state = StateFull
	return top
}

func (m *Manager) less(i, j int) bool { return m.victims[i].IPC > m.victims[j].IPC }

func (m *Manager) swap(i, j int) {
	m.victims[i], m.victims[j] = m.victims[j], m.victims[i]
	m.victims[i].pos = i
	m.victims[j].pos = j
}

func (m *Manager) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !m.less(i, parent) {
			break
		}
		m.swap(i, parent)
		i = parent
	}
}

func (m *Manager) siftDown(i int) {
	n := len(m.victims)
	for {
		l, r, largest := 2*i+1, 2*i+2, i
		if l < n && m.less(l, largest) {
			largest = l
		}
		if r < n && m.less(r, largest) {
			largest = r
		}
		if largest == i {
			return
		}
		m.swap(i, largest)
		i = largest
	}
}

func (m *Manager) fixHeap(i int) {
	m.siftUp(i)
	m.siftDown(i)
}

func (m *Manager) removeFromHeap(l *Line) {
	i := l.pos
	n := len(m.victims) - 1
	m.swap(i, n)
	m.victims = m.victims[:n]
	l.pos = -1
	if i < n {
		m.fixHeap(i)
	}
}
