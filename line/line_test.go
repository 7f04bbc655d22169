// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ftlsim "github.com/dswarbrick/ftlsim"
)

func newTestParams() *ftlsim.Params {
	return ftlsim.NewParams(64<<20, 1, ftlsim.DefaultInput())
}

func TestPopFreeExhaustsFreeList(t *testing.T) {
	g := newTestParams()
	m := NewManager(g, 2, 256)

	l1 := m.PopFree()
	l2 := m.PopFree()
	require.NotNil(t, l1)
	require.NotNil(t, l2)
	assert.NotEqual(t, l1.ID, l2.ID)

	assert.Nil(t, m.PopFree())
}

func TestSelectVictimPicksMostInvalid(t *testing.T) {
	g := newTestParams()
	m := NewManager(g, 3, 16) // threshold = 16/8 = 2

	lines := make([]*Line, 3)
	for i := range lines {
		lines[i] = m.PopFree()
		m.EnterVictimPool(lines[i])
	}

	// Give line 1 the most garbage.
	for i := 0; i < 5; i++ {
		m.MarkPageInvalid(lines[1])
	}
	for i := 0; i < 3; i++ {
		m.MarkPageInvalid(lines[0])
	}

	victim := m.SelectVictim(false)
	require.NotNil(t, victim)
	assert.Equal(t, lines[1].ID, victim.ID)
}

func TestSelectVictimRespectsThreshold(t *testing.T) {
	g := newTestParams()
	m := NewManager(g, 1, 256) // threshold = 256/8 = 32

	l := m.PopFree()
	m.EnterVictimPool(l)
	m.MarkPageInvalid(l) // ipc=1, well below threshold

	assert.Nil(t, m.SelectVictim(false))
	assert.NotNil(t, m.SelectVictim(true))
}

func TestPushFreeResetsLineAndRemovesFromHeap(t *testing.T) {
	g := newTestParams()
	m := NewManager(g, 2, 16)

	l := m.PopFree()
	m.EnterVictimPool(l)
	m.MarkPageInvalid(l)

	m.PushFree(l)
	assert.Equal(t, 0, l.IPC)
	assert.Equal(t, 0, l.VPC)
	assert.Equal(t, 2, m.FreeCount())

	// Heap is empty now; SelectVictim must not find a stale entry.
	assert.Nil(t, m.SelectVictim(true))
}

func TestMarkPageValidIncrements(t *testing.T) {
	l := &Line{}
	l.MarkPageValid()
	l.MarkPageValid()
	assert.Equal(t, 2, l.VPC)
}
