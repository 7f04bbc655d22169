// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package nand is the discrete-event device model: one LUN per die,
// grouped into channels, each channel sharing a transfer bus whose
// bandwidth chunks a command's data movement into MaxChXferSize pieces,
// optionally overlapped with the shared PCIe link. It computes command
// completion times including the hybrid SLC/QLC tier latencies and the
// QLC region-dependent read latency bands (Q1..Q4); writes and erases use
// one latency per tier.
package nand

import ftlsim "github.com/dswarbrick/ftlsim"

// CmdType names the NAND-level operation being timed.
type CmdType int

const (
	CmdRead CmdType = iota
	CmdWrite
	CmdErase
	CmdNop
)

// Command is one NAND-level operation submitted to the device model.
type Command struct {
	Type  CmdType
	PPA   ftlsim.PPA
	Stime uint64 // ns, issue time
	Xfersize uint64 // bytes actually moved over the channel (0 for erase/nop)
	// Interleave, when true, overlaps the channel transfer with the
	// shared PCIe bus the way a host-bound read does; writes never set
	// this.
	Interleave bool
}

// LUN is a single die: NextAvailTime is the only piece of mutable
// per-LUN state that matters for serializing commands on it.
type LUN struct {
	NextAvailTime uint64
}

// Channel serializes the transfer phase of every command issued to any
// LUN behind it.
type Channel struct {
	NextChFreeTime uint64
}

// Device is the full channel/LUN hierarchy for one partition, plus the
// PCIe link its channels share with every other partition.
type Device struct {
	g    *ftlsim.Params
	Chs  []Channel
	Luns []LUN // indexed by PPA.GlobalLUN

	PCIe *PCIeLink
}

// PCIeLink models the namespace-wide host transfer bus. Multiple
// partitions share one instance.
type PCIeLink struct {
	NextFreeTime uint64
	BandwidthBps uint64
}

// NewDevice allocates a Device for g, sharing pcie with sibling
// partitions.
func NewDevice(g *ftlsim.Params, pcie *PCIeLink) *Device {
	return &Device{
		g:    g,
		Chs:  make([]Channel, g.NCh),
		Luns: make([]LUN, int(g.TotalLuns)),
		PCIe: pcie,
	}
}

// NewPCIeLink builds a PCIeLink with the given bandwidth in bytes/sec.
func NewPCIeLink(bandwidthBps uint64) *PCIeLink {
	return &PCIeLink{BandwidthBps: bandwidthBps}
}

func xferTimeNs(bytes, bandwidthBps uint64) uint64 {
	if bandwidthBps == 0 {
		return 0
	}
	// bandwidthBps is bytes/sec; convert to ns directly to avoid a
	// float round-trip.
	return bytes * 1_000_000_000 / bandwidthBps
}

// fwChunkOverhead is the firmware dispatch overhead charged per channel
// transfer chunk, scaled to the chunk's size the way the real controller
// bills a fixed per-4KB-unit cost regardless of how many chunks a
// transfer is split into.
func fwChunkOverhead(chunkBytes, fwChXferLatencyNs uint64) uint64 {
	return fwChXferLatencyNs * chunkBytes / 4096
}

func (d *Device) chXfer(ch *Channel, bytes uint64, stime uint64) uint64 {
	in := d.g.Input
	maxChunk := uint64(in.MaxChXferSize)
	if maxChunk == 0 || bytes <= maxChunk {
		nandStime := stime
		if ch.NextChFreeTime > nandStime {
			nandStime = ch.NextChFreeTime
		}
		end := nandStime + xferTimeNs(bytes, in.ChannelBandwidthBps) + fwChunkOverhead(bytes, in.FWChXferLatencyNs)
		ch.NextChFreeTime = end
		return end
	}

	remaining := bytes
	cur := stime
	for remaining > 0 {
		chunk := maxChunk
		if remaining < chunk {
			chunk = remaining
		}
		nandStime := cur
		if ch.NextChFreeTime > nandStime {
			nandStime = ch.NextChFreeTime
		}
		cur = nandStime + xferTimeNs(chunk, in.ChannelBandwidthBps) + fwChunkOverhead(chunk, in.FWChXferLatencyNs)
		ch.NextChFreeTime = cur
		remaining -= chunk
	}
	return cur
}

func (d *Device) pcieXfer(bytes uint64, stime uint64) uint64 {
	if d.PCIe == nil {
		return stime
	}
	nandStime := stime
	if d.PCIe.NextFreeTime > nandStime {
		nandStime = d.PCIe.NextFreeTime
	}
	end := nandStime + xferTimeNs(bytes, d.PCIe.BandwidthBps)
	d.PCIe.NextFreeTime = end
	return end
}

// readLatency picks the page-read latency table: the fixed SLC latency,
// or one of the four QLC wordline-position latency bands (Q1..Q4).
func (d *Device) readLatency(ppa ftlsim.PPA) uint64 {
	g := d.g
	in := g.Input
	if g.Mode != ftlsim.ModeHybrid {
		return in.PageReadLatencyNs
	}
	if g.StorageTypeOf(ppa) == ftlsim.StorageSLC {
		return in.SLCReadLatencyNs
	}
	oneshotPgs := in.QLCPgsPerOneshotPg
	if oneshotPgs == 0 {
		oneshotPgs = 1
	}
	band := (ppa.Page / oneshotPgs) % 4
	switch band {
	case 0:
		return in.QLCQ1ReadLatencyNs
	case 1:
		return in.QLCQ2ReadLatencyNs
	case 2:
		return in.QLCQ3ReadLatencyNs
	default:
		return in.QLCQ4ReadLatencyNs
	}
}

func (d *Device) writeLatency(ppa ftlsim.PPA) uint64 {
	g := d.g
	in := g.Input
	if g.Mode == ftlsim.ModeHybrid && g.StorageTypeOf(ppa) == ftlsim.StorageSLC {
		return in.SLCWriteLatencyNs
	}
	if g.Mode == ftlsim.ModeHybrid {
		return in.QLCWriteLatencyNs
	}
	return in.PageWriteLatencyNs
}

func (d *Device) eraseLatency(ppa ftlsim.PPA) uint64 {
	g := d.g
	in := g.Input
	if g.Mode == ftlsim.ModeHybrid && g.StorageTypeOf(ppa) == ftlsim.StorageSLC {
		return in.SLCEraseLatencyNs
	}
	if g.Mode == ftlsim.ModeHybrid {
		return in.QLCEraseLatencyNs
	}
	return in.BlockEraseLatencyNs
}

// Advance times cmd against its LUN's and channel's current occupancy
// and returns the completion time, advancing both pieces of state.
func (d *Device) Advance(cmd Command) uint64 {
	glun := cmd.PPA.GlobalLUN(d.g)
	lun := &d.Luns[glun]
	ch := &d.Chs[cmd.PPA.Channel]

	nandStime := cmd.Stime
	if lun.NextAvailTime > nandStime {
		nandStime = lun.NextAvailTime
	}

	var end uint64
	switch cmd.Type {
	case CmdRead:
		cellTime := nandStime + d.readLatency(cmd.PPA)
		if cmd.Interleave && d.PCIe != nil {
			// Each chunk's PCIe transfer starts as soon as that chunk is
			// off the channel, overlapping the next chunk's channel
			// transfer.
			maxChunk := uint64(d.g.Input.MaxChXferSize)
			chStime := cellTime
			end = cellTime
			for remaining := cmd.Xfersize; remaining > 0; {
				chunk := remaining
				if maxChunk > 0 && chunk > maxChunk {
					chunk = maxChunk
				}
				chStime = d.chXfer(ch, chunk, chStime)
				end = d.pcieXfer(chunk, chStime)
				remaining -= chunk
			}
		} else {
			end = d.chXfer(ch, cmd.Xfersize, cellTime)
		}
	case CmdWrite:
		chEnd := d.chXfer(ch, cmd.Xfersize, nandStime)
		end = chEnd + d.writeLatency(cmd.PPA)
	case CmdErase:
		end = nandStime + d.eraseLatency(cmd.PPA)
	case CmdNop:
		end = nandStime
	}

	lun.NextAvailTime = end
	return end
}

// NextIdleTime returns the time at which every LUN in the device will
// have drained its queue, used to implement a flush command.
func (d *Device) NextIdleTime() uint64 {
	var max uint64
	for _, l := range d.Luns {
		if l.NextAvailTime > max {
			max = l.NextAvailTime
		}
	}
	return max
}
