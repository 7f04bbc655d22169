// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleProfileYAML = `
name: test-drive
capacity_bytes: 1073741824
partitions: 2
geometry:
  nandchannels: 4
  lunspernandch: 2
  plnsperlun: 1
  blksperpln: 256
  oneshotpagesize: 4096
  flashpagesize: 16384
  writeunitsize: 4096
  opareapercent: 10
  ssdpartitions: 1
  pagereadlatencyns: 40000
  pagewritelatencyns: 200000
  blockeraselatencyns: 3000000
  maxchxfersize: 16384
  channelbandwidthbps: 800000000
  pciebandwidthbps: 4000000000
  writebuffersize: 4194304
  gcthreslines: 2
  gcthreslineshigh: 4
`

const profileListYAML = `
- ` + `name: test-drive
  capacity_bytes: 1073741824
  partitions: 2
  geometry:
    nandchannels: 4
    lunspernandch: 2
    plnsperlun: 1
    blksperpln: 256
    oneshotpagesize: 4096
    flashpagesize: 16384
    writeunitsize: 4096
    opareapercent: 10
    ssdpartitions: 1
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadSingleProfile(t *testing.T) {
	path := writeTemp(t, singleProfileYAML)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-drive", p.Name)
	assert.Equal(t, uint64(1073741824), p.CapacityBytes)
	assert.Equal(t, uint32(2), p.Partitions)
	assert.Equal(t, 4, p.Input.NANDChannels)
}

func TestLoadAllProfileList(t *testing.T) {
	path := writeTemp(t, profileListYAML)

	profiles, err := LoadAll(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "test-drive", profiles[0].Name)
	assert.Equal(t, 4, profiles[0].Input.NANDChannels)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConventionalDefaultsAreSelfConsistent(t *testing.T) {
	p := Conventional()
	assert.Equal(t, uint32(1), p.Partitions)
	assert.Greater(t, p.Input.NANDChannels, 0)
}

func TestHybridDefaultsSplitChannelsAcrossTiers(t *testing.T) {
	p := Hybrid()
	assert.Greater(t, p.Input.SLCChannels, 0)
	assert.Greater(t, p.Input.QLCChannels, 0)
	assert.Equal(t, p.Input.NANDChannels, p.Input.SLCChannels+p.Input.QLCChannels)
}
