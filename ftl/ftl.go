// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package ftl wires geometry, mapping, line management, write pointers,
// the write-flow controller, garbage collection, the hotness/migration
// engine and the NAND device model into the read/write/flush command
// surface a dispatcher drives.
package ftl

import (
	"fmt"
	"log"

	ftlsim "github.com/dswarbrick/ftlsim"
	"github.com/dswarbrick/ftlsim/config"
	"github.com/dswarbrick/ftlsim/flow"
	"github.com/dswarbrick/ftlsim/gc"
	"github.com/dswarbrick/ftlsim/hotness"
	"github.com/dswarbrick/ftlsim/line"
	"github.com/dswarbrick/ftlsim/mapping"
	"github.com/dswarbrick/ftlsim/nand"
	"github.com/dswarbrick/ftlsim/wp"
	"github.com/dswarbrick/ftlsim/writeback"
)

// CmdType is the host-facing operation a Partition processes.
type CmdType int

const (
	CmdWrite CmdType = iota
	CmdRead
	CmdFlush
)

// Command is one host I/O request against a Partition. Count is the
// number of consecutive logical pages starting at LPN the command
// covers; zero is treated as one page, so existing single-page callers
// don't need to set it. Only CmdRead currently acts on Count greater
// than one -- multi-page writes are still issued one page at a time by
// the dispatcher.
type Command struct {
	Type  CmdType
	LPN   ftlsim.LPN
	Count uint32
	Stime uint64
}

// Partition is one namespace partition's full FTL stack: conventional
// mode runs a single mapping table and round-robin pointer; hybrid mode
// additionally splits into an SLC tier (written via the die-interleaved
// pointer) and a QLC tier (the migration target), tied together by one
// hotness tracker.
type Partition struct {
	g     *ftlsim.Params
	table *mapping.Table
	dev   *nand.Device
	wbuf  *writeback.Buffer
	flowC *flow.Controller

	lm     *line.Manager // conventional-mode global line manager
	rrWP   *wp.RoundRobin
	gcEng  *gc.Collector

	// Hybrid-only.
	slcLMs   []*line.Manager
	daWP     *wp.DieInterleaved
	slcGCs   []*gc.Collector
	qlcLM    *line.Manager
	qlcWP    *wp.RoundRobin
	qlcGC    *gc.Collector
	hotTrack *hotness.Tracker

	lastMigrationCheck uint64

	writesServed   uint64
	readsServed    uint64
	gcRuns         uint64
	migrationsDone uint64
}

// Stats is a point-in-time snapshot of one Partition's counters, used by
// the CLI's stats dump.
type Stats struct {
	TotalPages      uint64 `toml:"total_pages"`
	WritesServed    uint64 `toml:"writes_served"`
	ReadsServed     uint64 `toml:"reads_served"`
	GCRuns          uint64 `toml:"gc_runs"`
	MigrationsDone  uint64 `toml:"migrations_done"`
	FreeLines       int    `toml:"free_lines"`
	WriteBufferUsed uint64 `toml:"write_buffer_used"`
	WriteBufferSize uint64 `toml:"write_buffer_size"`
}

// Stats snapshots the partition's counters.
func (p *Partition) Stats() Stats {
	free := 0
	if p.g.Mode == ftlsim.ModeHybrid {
		for _, lm := range p.slcLMs {
			free += lm.FreeCount()
		}
		free += p.qlcLM.FreeCount()
	} else {
		free = p.lm.FreeCount()
	}
	return Stats{
		TotalPages:      p.g.TotalPgs,
		WritesServed:    p.writesServed,
		ReadsServed:     p.readsServed,
		GCRuns:          p.gcRuns,
		MigrationsDone:  p.migrationsDone,
		FreeLines:       free,
		WriteBufferUsed: p.wbuf.Used(),
		WriteBufferSize: p.wbuf.Size(),
	}
}

// NewPartition builds one partition sharing pcie with its siblings.
func NewPartition(g *ftlsim.Params, pcie *nand.PCIeLink) *Partition {
	p := &Partition{
		g:     g,
		table: mapping.New(g),
		dev:   nand.NewDevice(g, pcie),
		wbuf:  writeback.New(g.Input.WriteBufferSize),
	}

	if g.Mode != ftlsim.ModeHybrid {
		p.lm = line.NewManager(g, int(g.TotalLines), int(g.PgsPerLine))
		p.rrWP = wp.NewRoundRobin(g, p.lm, 0, g.NCh)
		p.gcEng = gc.New(g, p.lm, p.table, p.dev, p.rrWP, int(g.PgsPerLine))
		p.flowC = flow.New(p.lm.Count())
		return p
	}

	in := g.Input
	nSLCLuns := in.SLCChannels * in.SLCLunsPerCh
	p.slcLMs = make([]*line.Manager, nSLCLuns)
	for i := range p.slcLMs {
		p.slcLMs[i] = line.NewManager(g, int(g.SLCTotalLines), int(in.SLCPgsPerBlk))
	}
	p.daWP = wp.NewDieInterleaved(g, 0, in.SLCChannels, p.slcLMs)
	// Each per-LUN line manager gets its own collector -- the DA tier
	// has no single global victim pool, so GC runs one LUN at a time.
	p.slcGCs = make([]*gc.Collector, len(p.slcLMs))
	for i, lm := range p.slcLMs {
		p.slcGCs[i] = gc.New(g, lm, p.table, p.dev, p.daWP, int(in.SLCPgsPerBlk))
	}

	p.qlcLM = line.NewManager(g, int(g.QLCTotalLines), int(g.PgsPerLine))
	p.qlcWP = wp.NewRoundRobin(g, p.qlcLM, in.SLCChannels, in.SLCChannels+in.QLCChannels)
	p.qlcGC = gc.New(g, p.qlcLM, p.table, p.dev, p.qlcWP, int(g.PgsPerLine))

	p.hotTrack = hotness.New(in.HotnessTableSize, in.HotThreshold, in.ColdThreshold)
	p.flowC = flow.New(nSLCLuns * int(g.SLCTotalLines))

	return p
}

// invalidateOld marks lpn's previous physical page (if any) invalid in
// whichever line owns it. The write-flow credit pool is not touched here.
func (p *Partition) invalidateOld(lpn ftlsim.LPN) {
	old := p.table.Get(lpn)
	if !old.IsMapped() {
		return
	}
	p.table.Unmap(old)

	if p.g.Mode != ftlsim.ModeHybrid {
		p.lm.MarkPageInvalid(p.lm.Line(old.Block))
		return
	}
	if p.g.IsSLCChannel(old.Channel) {
		idx := p.daWP.GlobalLUNOf(old)
		p.slcLMs[idx].MarkPageInvalid(p.slcLMs[idx].Line(old.Block))
	} else {
		p.qlcLM.MarkPageInvalid(p.qlcLM.Line(old.Block))
	}
}

// Write admits, times and applies one page write. Admission runs
// foreground GC and refills the write-flow credit pool if it has run
// dry, then opportunistic background GC runs afterwards.
func (p *Partition) Write(lpn ftlsim.LPN, stime uint64) (uint64, error) {
	if uint64(lpn) >= p.g.TotalPgs {
		return stime, ftlsim.ErrOutOfRange
	}

	if err := p.checkAndRefillCredit(stime); err != nil {
		return stime, err
	}

	if !p.wbuf.TryAllocate(p.g.PgSz) {
		return stime, fmt.Errorf("ftl: write buffer full for lpn %d", lpn)
	}

	p.invalidateOld(lpn)

	var ppa ftlsim.PPA
	var dstLine *line.Line
	var err error
	if p.g.Mode == ftlsim.ModeHybrid {
		p.daWP.SetLUN(lpn)
		ppa, dstLine, err = p.daWP.GetNewPage()
	} else {
		ppa, dstLine, err = p.rrWP.GetNewPage()
	}
	if err != nil {
		return stime, err
	}
	end := p.dev.Advance(nand.Command{Type: nand.CmdWrite, PPA: ppa, Stime: stime, Xfersize: p.g.PgSz})

	p.table.Set(lpn, ppa)
	dstLine.MarkPageValid()
	p.wbuf.Release(p.g.PgSz)
	p.writesServed++
	p.flowC.Admit()

	if p.g.Mode == ftlsim.ModeHybrid {
		p.afterHybridWrite(lpn, end)
	}

	p.maybeBackgroundGC(end)
	return end, nil
}

// afterHybridWrite updates the hotness tracker and, at most once per
// MigrationIntervalNs, scans for pages to move up to the QLC tier.
func (p *Partition) afterHybridWrite(lpn ftlsim.LPN, now uint64) {
	if err := p.hotTrack.RecordAccess(lpn, now); err != nil {
		log.Printf("ftl: hotness update for lpn %d dropped: %v", lpn, err)
	}

	in := p.g.Input
	if now-p.lastMigrationCheck < in.MigrationIntervalNs {
		return
	}
	p.lastMigrationCheck = now
	p.runMigrations(now)
}

// runMigrations walks the hotness table itself -- at most
// HotnessTableSize entries, never the whole SLC LPN range -- and moves
// up to MaxMigrationsPerCheck cold entries to the QLC tier. QLC-to-SLC
// promotion is never offered.
func (p *Partition) runMigrations(now uint64) {
	in := p.g.Input
	moved := 0
	p.hotTrack.ForEachCandidate(func(lpn ftlsim.LPN) bool {
		if moved >= in.MaxMigrationsPerCheck {
			return false
		}
		if !p.hotTrack.ShouldMigrate(lpn) {
			return true
		}
		old := p.table.Get(lpn)
		if !old.IsMapped() {
			return true
		}
		if !p.g.IsSLCChannel(old.Channel) {
			return true
		}
		if _, err := p.migratePage(lpn, old, now); err == nil {
			moved++
			p.migrationsDone++
		}
		return true
	})
}

func (p *Partition) migratePage(lpn ftlsim.LPN, old ftlsim.PPA, stime uint64) (uint64, error) {
	readEnd := p.dev.Advance(nand.Command{Type: nand.CmdRead, PPA: old, Stime: stime, Xfersize: p.g.PgSz})

	newPPA, dstLine, err := p.qlcWP.GetNewPage()
	if err != nil {
		return stime, err
	}
	writeEnd := p.dev.Advance(nand.Command{Type: nand.CmdWrite, PPA: newPPA, Stime: readEnd, Xfersize: p.g.PgSz})

	p.table.Unmap(old)
	p.table.Set(lpn, newPPA)
	dstLine.MarkPageValid()

	idx := p.daWP.GlobalLUNOf(old)
	p.slcLMs[idx].MarkPageInvalid(p.slcLMs[idx].Line(old.Block))

	p.hotTrack.Reset(lpn)
	return writeEnd, nil
}

// Read times and serves count consecutive LPNs starting at lpn. A
// firmware dispatch-latency floor is added up front, chosen by the
// total request size (see firmwareReadLatency), then consecutive pages that land in the same
// physical flash page are coalesced into a single NAND read sized
// pgsz*count instead of one command per page. Pages that were never
// written are skipped, the way reading an uninitialized LBA returns
// zeroed data without touching NAND; a request that resolves to no
// mapped pages at all reports ftlsim.ErrUnmapped.
func (p *Partition) Read(lpn ftlsim.LPN, count uint32, stime uint64) (uint64, error) {
	if count == 0 {
		count = 1
	}
	if uint64(lpn)+uint64(count) > p.g.TotalPgs {
		return stime, ftlsim.ErrOutOfRange
	}

	start := stime + p.firmwareReadLatency(count)
	latest := start

	var groupStart ftlsim.PPA
	groupPages := uint64(0)
	anyMapped := false

	flushGroup := func() {
		if groupPages == 0 {
			return
		}
		end := p.dev.Advance(nand.Command{
			Type: nand.CmdRead, PPA: groupStart, Stime: start,
			Xfersize: p.g.PgSz * groupPages, Interleave: true,
		})
		if end > latest {
			latest = end
		}
		groupPages = 0
	}

	for i := uint32(0); i < count; i++ {
		ppa := p.table.Get(lpn + ftlsim.LPN(i))
		if !ppa.IsMapped() {
			continue
		}
		anyMapped = true
		p.readsServed++

		if groupPages > 0 && p.sameFlashPage(groupStart, ppa) {
			groupPages++
			continue
		}
		flushGroup()
		groupStart = ppa
		groupPages = 1
	}
	flushGroup()

	if !anyMapped {
		return stime, fmt.Errorf("ftl: read of never-written lpn %d: %w", lpn, ftlsim.ErrUnmapped)
	}
	return latest, nil
}

// sameFlashPage reports whether a and b sit in the same physical flash
// page: the same die location, and a page index that falls in the same
// PgsPerFlashPg-sized group -- the granularity a single NAND read
// command can serve in one shot.
func (p *Partition) sameFlashPage(a, b ftlsim.PPA) bool {
	if a.Channel != b.Channel || a.LUN != b.LUN || a.Plane != b.Plane || a.Block != b.Block {
		return false
	}
	groupSize := p.g.PgsPerFlashPg
	if groupSize == 0 {
		groupSize = 1
	}
	return uint64(a.Page)/groupSize == uint64(b.Page)/groupSize
}

// firmwareReadLatency returns the controller dispatch overhead charged
// once per read request before it reaches the NAND pipeline: the 4KB
// fast path for a single-page request, the larger constant for anything
// bigger.
func (p *Partition) firmwareReadLatency(count uint32) uint64 {
	in := p.g.Input
	if uint64(count)*p.g.PgSz <= 4096 {
		return in.FW4KBReadLatencyNs
	}
	return in.FWReadLatencyNs
}

// Flush returns the time at which every in-flight NAND command on this
// partition will have completed.
func (p *Partition) Flush() uint64 {
	return p.dev.NextIdleTime()
}

// checkAndRefillCredit is the write-admission gate: once the flow
// controller's credit pool runs dry, it runs foreground GC and refills
// by whatever that GC pass's victim line handed back before letting the
// write through.
func (p *Partition) checkAndRefillCredit(now uint64) error {
	if p.flowC.CanAdmit() {
		return nil
	}
	if err := p.runForegroundGC(now); err != nil {
		return err
	}
	p.flowC.Refill()
	return nil
}

// runForegroundGC cleans any line still above the high-priority
// threshold and, for each one actually cleaned, records its
// invalid-page count as the write-flow controller's next refill amount
// (summed across every SLC-tier collector in hybrid mode; the QLC
// collector is not run here).
func (p *Partition) runForegroundGC(now uint64) error {
	if p.g.Mode != ftlsim.ModeHybrid {
		if p.gcEng.ShouldGCHigh() {
			if _, err := p.gcEng.Run(true, now); err != nil && err != ftlsim.ErrNoSuitableVictim {
				return err
			} else if err == nil {
				p.flowC.SetRefillAmount(p.gcEng.LastVictimIPC())
			}
		}
		return nil
	}
	refill := 0
	for _, gcEng := range p.slcGCs {
		if gcEng.ShouldGCHigh() {
			if _, err := gcEng.Run(true, now); err != nil && err != ftlsim.ErrNoSuitableVictim {
				return err
			} else if err == nil {
				refill += gcEng.LastVictimIPC()
			}
		}
	}
	if refill > 0 {
		p.flowC.SetRefillAmount(refill)
	}
	return nil
}

func (p *Partition) maybeBackgroundGC(now uint64) {
	if p.g.Mode != ftlsim.ModeHybrid {
		if p.gcEng.ShouldGC() {
			if _, err := p.gcEng.Run(false, now); err == nil {
				p.gcRuns++
			}
		}
		return
	}
	for _, gcEng := range p.slcGCs {
		if gcEng.ShouldGC() {
			if _, err := gcEng.Run(false, now); err == nil {
				p.gcRuns++
			}
		}
	}
	if p.qlcGC.ShouldGC() {
		if _, err := p.qlcGC.Run(false, now); err == nil {
			p.gcRuns++
		}
	}
}

// Namespace fans host commands out across SSDPartitions independent
// Partitions, each bound to its own slice of channels but sharing one
// PCIe link, one FTL instance per partition of an NVMe namespace.
type Namespace struct {
	g          *ftlsim.Params
	Partitions []*Partition
}

// New builds a Namespace from a config.Profile.
func New(profile config.Profile) *Namespace {
	g := ftlsim.NewParams(profile.CapacityBytes, profile.Partitions, profile.Input)
	pcie := nand.NewPCIeLink(g.Input.PCIeBandwidthBps)

	n := &Namespace{g: g}
	nparts := profile.Partitions
	if nparts == 0 {
		nparts = 1
	}
	for i := uint32(0); i < nparts; i++ {
		n.Partitions = append(n.Partitions, NewPartition(g, pcie))
	}
	return n
}

// TotalLPNs reports the addressable LPN space size, letting a caller
// generate in-range synthetic addresses.
func (n *Namespace) TotalLPNs() uint64 {
	return n.g.TotalPgs
}

// partitionFor picks the partition owning lpn, round-robin over the
// dense LPN space the way the dispatcher assigns namespace partitions.
func (n *Namespace) partitionFor(lpn ftlsim.LPN) *Partition {
	idx := int(uint64(lpn) % uint64(len(n.Partitions)))
	return n.Partitions[idx]
}

// ProcessCommand dispatches one host command to its owning partition.
// Unrecognized command types are reported back as an error rather than
// panicking, so a dispatcher loop can log-and-skip them the way an
// unrecognized NVMe opcode is handled upstream.
func (n *Namespace) ProcessCommand(cmd Command) (uint64, error) {
	part := n.partitionFor(cmd.LPN)
	switch cmd.Type {
	case CmdWrite:
		return part.Write(cmd.LPN, cmd.Stime)
	case CmdRead:
		return part.Read(cmd.LPN, cmd.Count, cmd.Stime)
	case CmdFlush:
		return part.Flush(), nil
	default:
		return cmd.Stime, fmt.Errorf("ftl: unrecognized command type %d", cmd.Type)
	}
}
