// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package ftlsim

// Mode selects between a conventional single-tier FTL and the hybrid
// SLC/QLC FTL. It is a runtime field so a single binary can simulate
// either shape without a build-time switch.
type Mode int

const (
	// ModeConventional runs a single NAND tier with the round-robin
	// write pointer only.
	ModeConventional Mode = iota
	// ModeHybrid additionally splits channels into an SLC tier and a
	// QLC tier, and runs the DA write pointer, the QLC write pointer,
	// and the hotness/migration engine.
	ModeHybrid
)

func (m Mode) String() string {
	if m == ModeHybrid {
		return "hybrid"
	}
	return "conventional"
}

// Input carries every geometry and timing constant as a
// runtime-configurable value. A config.Profile (see the config package)
// deserializes directly into this struct from YAML.
type Input struct {
	Mode Mode

	// Base geometry.
	NANDChannels    int
	LunsPerNANDCh   int
	PlnsPerLun      int
	BlksPerPln      int // 0 means derive from BlkSizeBytes instead
	BlkSizeBytes    int // used only when BlksPerPln == 0
	OneshotPageSize int // bytes
	FlashPageSize   int // bytes
	WriteUnitSize   int
	OPAreaPercent   int
	SSDPartitions   int

	// NAND timing (conventional / non-hybrid tier).
	PageReadLatencyNs  uint64
	PageWriteLatencyNs uint64
	BlockEraseLatencyNs uint64
	MaxChXferSize       int

	// Firmware overhead.
	FW4KBReadLatencyNs uint64
	FWReadLatencyNs    uint64
	FWChXferLatencyNs  uint64
	FWWbufLatency0Ns   uint64
	FWWbufLatency1Ns   uint64

	ChannelBandwidthBps uint64
	PCIeBandwidthBps    uint64
	WriteBufferSize     uint64

	GCThresLines     int
	GCThresLinesHigh int

	// Hybrid-only fields.
	SLCChannels   int
	QLCChannels   int
	SLCLunsPerCh  int
	QLCLunsPerCh  int

	SLCPgsPerBlk        int
	SLCBlksPerPl        int
	SLCPgsPerOneshotPg  int
	SLCOneshotPgsPerBlk int

	QLCPgsPerBlk        int
	QLCBlksPerPl        int
	QLCPgsPerOneshotPg  int
	QLCOneshotPgsPerBlk int

	SLCReadLatencyNs  uint64
	SLCWriteLatencyNs uint64
	SLCEraseLatencyNs uint64

	QLCQ1ReadLatencyNs uint64
	QLCQ2ReadLatencyNs uint64
	QLCQ3ReadLatencyNs uint64
	QLCQ4ReadLatencyNs uint64
	QLCWriteLatencyNs  uint64
	QLCEraseLatencyNs  uint64

	HotnessTableSize      int
	HotThreshold          int
	ColdThreshold         int
	MigrationIntervalNs   uint64
	MaxMigrationsPerCheck int
}

// DefaultInput returns a modest conventional, single-tier geometry that
// still exercises every code path in a test or a CLI demo run.
func DefaultInput() Input {
	return Input{
		Mode:            ModeConventional,
		NANDChannels:    8,
		LunsPerNANDCh:   2,
		PlnsPerLun:      1,
		BlksPerPln:      256,
		OneshotPageSize: 4 * 1024,
		FlashPageSize:   4 * 1024 * 4,
		WriteUnitSize:   4 * 1024,
		OPAreaPercent:   7,
		SSDPartitions:   1,

		PageReadLatencyNs:   40000,
		PageWriteLatencyNs:  200000,
		BlockEraseLatencyNs: 1000000,
		MaxChXferSize:       4096 * 4,

		FW4KBReadLatencyNs: 21519,
		FWReadLatencyNs:    21519,
		FWChXferLatencyNs:  1,
		FWWbufLatency0Ns:   10000,
		FWWbufLatency1Ns:   50,

		ChannelBandwidthBps: 2560 * 1000 * 1000,
		PCIeBandwidthBps:    2000 * 1000 * 1000,
		WriteBufferSize:     128 * 1024,

		GCThresLines:     2,
		GCThresLinesHigh: 2,
	}
}

// DefaultHybridInput returns a hybrid SLC/QLC geometry built on top of
// DefaultInput, splitting its channels 2 SLC / 6 QLC.
func DefaultHybridInput() Input {
	in := DefaultInput()
	in.Mode = ModeHybrid
	in.NANDChannels = 8
	in.LunsPerNANDCh = 2

	in.SLCChannels = 2
	in.QLCChannels = 6
	in.SLCLunsPerCh = 2
	in.QLCLunsPerCh = 2

	in.HotnessTableSize = 1024 * 1024
	in.HotThreshold = 10
	in.ColdThreshold = 2
	in.MigrationIntervalNs = 1_000_000_000
	in.MaxMigrationsPerCheck = 100

	in.SLCReadLatencyNs = 30000
	in.SLCWriteLatencyNs = 80000
	in.SLCEraseLatencyNs = 0

	in.QLCQ1ReadLatencyNs = 75000
	in.QLCQ2ReadLatencyNs = 95000
	in.QLCQ3ReadLatencyNs = 130000
	in.QLCQ4ReadLatencyNs = 205000
	in.QLCWriteLatencyNs = 561000
	in.QLCEraseLatencyNs = 0

	in.SLCPgsPerBlk = 256
	in.SLCBlksPerPl = 8192
	in.SLCPgsPerOneshotPg = 1
	in.SLCOneshotPgsPerBlk = 256

	in.QLCPgsPerBlk = 1024
	in.QLCBlksPerPl = 8192
	in.QLCPgsPerOneshotPg = 4
	in.QLCOneshotPgsPerBlk = 256

	return in
}

// Params holds every derived geometry constant for one FTL partition,
// i.e. the Go analogue of `struct ssdparams`. All fields are read-only
// after NewParams returns.
type Params struct {
	Input

	SecSz     uint64
	SecsPerPg uint64
	PgSz      uint64

	NCh int // channels *per partition*, after dividing by NewParams' nparts

	PgsPerOneshotPg  uint64
	OneshotPgsPerBlk uint64
	PgsPerFlashPg    uint64
	PgsPerBlk        uint64
	BlksPerPl        uint64

	SecsPerBlk uint64
	SecsPerPl  uint64
	SecsPerLun uint64
	SecsPerCh  uint64
	TotalSecs  uint64

	PgsPerPl  uint64
	PgsPerLun uint64
	PgsPerCh  uint64
	TotalPgs  uint64

	BlksPerLun uint64
	BlksPerCh  uint64
	TotalBlks  uint64

	PlsPerCh uint64
	TotalPls uint64

	TotalLuns uint64

	BlksPerLine uint64
	PgsPerLine  uint64
	SecsPerLine uint64
	TotalLines  uint64

	// DA / per-LUN line geometry: the die-interleaved write pointer's
	// line capacity differs from the global, all-LUN line above.
	BlksPerLunLine uint64
	PgsPerLunLine  uint64
	SecsPerLunLine uint64
	TotalLunLines  uint64

	// Hybrid tier geometry, zero-valued outside ModeHybrid.
	SLCTotalPgs, SLCTotalBlks, SLCTotalLines uint64
	SLCPgsPerCh, SLCBlksPerCh                uint64
	QLCTotalPgs, QLCTotalBlks, QLCTotalLines uint64
	QLCPgsPerCh, QLCBlksPerCh                uint64

	SLCStartPPAIdx, SLCEndPPAIdx uint64
	QLCStartPPAIdx, QLCEndPPAIdx uint64
	SLCStartLPN, SLCEndLPN       LPN
	QLCStartLPN, QLCEndLPN       LPN

	PBAPercent int // (1+op_area_pcent)*100
}

func divRoundUp(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// NewParams derives a full Params from a capacity (bytes, for the whole
// namespace) and a partition count, including the hybrid
// channel-proportional capacity split.
func NewParams(capacity uint64, nparts uint32, in Input) *Params {
	if nparts == 0 {
		nparts = 1
	}
	g := &Params{Input: in}

	g.SecSz = 512
	g.SecsPerPg = 8
	g.PgSz = g.SecSz * g.SecsPerPg

	if in.NANDChannels%int(nparts) != 0 {
		InvariantViolation("nchs %d not divisible by nparts %d", in.NANDChannels, nparts)
	}
	g.NCh = in.NANDChannels / int(nparts)
	capacity /= uint64(nparts)

	blksPerPl := uint64(in.BlksPerPln)
	var blkSize uint64
	if in.BlksPerPln > 0 {
		blkSize = divRoundUp(capacity, blksPerPl*uint64(in.PlnsPerLun)*uint64(in.LunsPerNANDCh)*uint64(g.NCh))
	} else {
		blkSize = uint64(in.BlkSizeBytes)
		blksPerPl = divRoundUp(capacity, blkSize*uint64(in.PlnsPerLun)*uint64(in.LunsPerNANDCh)*uint64(g.NCh))
	}
	g.BlksPerPl = blksPerPl

	g.PgsPerOneshotPg = uint64(in.OneshotPageSize) / g.PgSz
	g.OneshotPgsPerBlk = divRoundUp(blkSize, uint64(in.OneshotPageSize))

	if in.Mode == ModeHybrid {
		g.deriveHybrid(capacity)
	}

	g.PgsPerFlashPg = uint64(in.FlashPageSize) / g.PgSz
	g.PgsPerBlk = g.PgsPerOneshotPg * g.OneshotPgsPerBlk

	g.SecsPerBlk = g.SecsPerPg * g.PgsPerBlk
	g.SecsPerPl = g.SecsPerBlk * g.BlksPerPl
	g.SecsPerLun = g.SecsPerPl * uint64(in.PlnsPerLun)
	g.SecsPerCh = g.SecsPerLun * uint64(in.LunsPerNANDCh)
	g.TotalSecs = g.SecsPerCh * uint64(g.NCh)

	g.PgsPerPl = g.PgsPerBlk * g.BlksPerPl
	g.PgsPerLun = g.PgsPerPl * uint64(in.PlnsPerLun)
	g.PgsPerCh = g.PgsPerLun * uint64(in.LunsPerNANDCh)
	g.TotalPgs = g.PgsPerCh * uint64(g.NCh)

	g.BlksPerLun = g.BlksPerPl * uint64(in.PlnsPerLun)
	g.BlksPerCh = g.BlksPerLun * uint64(in.LunsPerNANDCh)
	g.TotalBlks = g.BlksPerCh * uint64(g.NCh)

	g.PlsPerCh = uint64(in.PlnsPerLun) * uint64(in.LunsPerNANDCh)
	g.TotalPls = g.PlsPerCh * uint64(g.NCh)

	g.TotalLuns = uint64(in.LunsPerNANDCh) * uint64(g.NCh)

	// "line is special, put it at the end" -- a line stripes one block
	// from every LUN in the partition.
	g.BlksPerLine = g.TotalLuns
	g.PgsPerLine = g.BlksPerLine * g.PgsPerBlk
	g.SecsPerLine = g.PgsPerLine * g.SecsPerPg
	g.TotalLines = g.BlksPerLun

	// DA / die-interleaved per-LUN line: one block per plane of a
	// single LUN.
	g.BlksPerLunLine = uint64(in.PlnsPerLun)
	g.PgsPerLunLine = g.BlksPerLunLine * g.PgsPerBlk
	g.SecsPerLunLine = g.PgsPerLunLine * g.SecsPerPg
	g.TotalLunLines = g.BlksPerLunLine

	if in.Mode == ModeHybrid {
		g.TotalPgs = g.SLCTotalPgs + g.QLCTotalPgs
		g.SLCStartPPAIdx, g.SLCEndPPAIdx = 0, g.SLCTotalPgs
		g.QLCStartPPAIdx, g.QLCEndPPAIdx = g.SLCTotalPgs, g.TotalPgs
		g.SLCStartLPN, g.SLCEndLPN = 0, LPN(g.SLCTotalPgs)
		g.QLCStartLPN, g.QLCEndLPN = LPN(g.SLCTotalPgs), LPN(g.TotalPgs)
	}

	g.PBAPercent = (1 + in.OPAreaPercent) * 100

	return g
}

// deriveHybrid computes the channel-proportional SLC/QLC capacity split:
// each tier's share of total capacity is proportional to its channel
// count, not a flat percentage of the whole.
func (g *Params) deriveHybrid(capacity uint64) {
	in := g.Input
	totalChannels := uint64(in.SLCChannels + in.QLCChannels)
	if totalChannels == 0 {
		return
	}
	slcCapacity := capacity * uint64(in.SLCChannels) / totalChannels
	qlcCapacity := capacity * uint64(in.QLCChannels) / totalChannels

	pgSz := g.PgSz

	slcCapPerCh := slcCapacity / uint64(in.SLCChannels)
	slcCapPerLun := slcCapPerCh / uint64(in.SLCLunsPerCh)
	slcPgsPerLun := slcCapPerLun / pgSz

	g.SLCTotalPgs = uint64(in.SLCChannels) * uint64(in.SLCLunsPerCh) * slcPgsPerLun
	g.SLCTotalBlks = g.SLCTotalPgs / uint64(in.SLCPgsPerBlk)
	g.SLCTotalLines = g.SLCTotalBlks / uint64(in.SLCBlksPerPl)
	g.SLCPgsPerCh = slcPgsPerLun * uint64(in.SLCLunsPerCh)
	g.SLCBlksPerCh = g.SLCPgsPerCh / uint64(in.SLCPgsPerBlk)

	qlcCapPerCh := qlcCapacity / uint64(in.QLCChannels)
	qlcCapPerLun := qlcCapPerCh / uint64(in.QLCLunsPerCh)
	qlcPgsPerLun := qlcCapPerLun / pgSz

	g.QLCTotalPgs = uint64(in.QLCChannels) * uint64(in.QLCLunsPerCh) * qlcPgsPerLun
	g.QLCTotalBlks = g.QLCTotalPgs / uint64(in.QLCPgsPerBlk)
	g.QLCTotalLines = g.QLCTotalBlks / uint64(in.QLCBlksPerPl)
	g.QLCPgsPerCh = qlcPgsPerLun * uint64(in.QLCLunsPerCh)
	g.QLCBlksPerCh = g.QLCPgsPerCh / uint64(in.QLCPgsPerBlk)
}

// IsSLCChannel reports whether ch is one of the first SLCChannels
// channels -- the tier split is always "SLC first, QLC after".
func (g *Params) IsSLCChannel(ch int) bool {
	return g.Mode == ModeHybrid && ch < g.SLCChannels
}

// StorageTypeOf returns SLC or QLC for a PPA's channel, used by the NAND
// device model to pick a latency table.
func (g *Params) StorageTypeOf(ppa PPA) StorageType {
	if g.IsSLCChannel(ppa.Channel) {
		return StorageSLC
	}
	return StorageQLC
}

// StorageType names the hybrid tier a page belongs to.
type StorageType int

const (
	StorageSLC StorageType = iota
	StorageQLC
)

func (s StorageType) String() string {
	if s == StorageSLC {
		return "SLC"
	}
	return "QLC"
}
