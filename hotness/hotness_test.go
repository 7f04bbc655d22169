// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package hotness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ftlsim "github.com/dswarbrick/ftlsim"
)

func TestRecordAccessAccumulates(t *testing.T) {
	tr := New(16, 3, 1)
	lpn := ftlsim.LPN(5)

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.RecordAccess(lpn, uint64(i)*1000))
	}
	// Three accesses put recentAccess at 3, above the cold threshold of 1,
	// so the page is no longer a demotion candidate.
	assert.False(t, tr.ShouldMigrate(lpn))
}

func TestShouldMigrateBelowThreshold(t *testing.T) {
	tr := New(16, 5, 1)
	lpn := ftlsim.LPN(5)
	require.NoError(t, tr.RecordAccess(lpn, 0))
	// One access leaves recentAccess at 1, at the cold threshold.
	assert.True(t, tr.ShouldMigrate(lpn))
}

func TestShouldMigrateUnknownLPN(t *testing.T) {
	tr := New(16, 1, 1)
	assert.False(t, tr.ShouldMigrate(ftlsim.LPN(999)))
}

func TestResetClearsCounter(t *testing.T) {
	tr := New(16, 2, 1)
	lpn := ftlsim.LPN(1)
	require.NoError(t, tr.RecordAccess(lpn, 0))
	require.NoError(t, tr.RecordAccess(lpn, 100))
	assert.False(t, tr.ShouldMigrate(lpn))

	tr.Reset(lpn)
	assert.True(t, tr.ShouldMigrate(lpn))
}

func TestTableFullReturnsError(t *testing.T) {
	tr := New(2, 1, 1)
	require.NoError(t, tr.RecordAccess(ftlsim.LPN(0), 0))
	require.NoError(t, tr.RecordAccess(ftlsim.LPN(1), 0))
	// Both slots are occupied; a third distinct LPN has nowhere to probe.
	err := tr.RecordAccess(ftlsim.LPN(2), 0)
	assert.ErrorIs(t, err, ftlsim.ErrHotnessTableFull)
}
