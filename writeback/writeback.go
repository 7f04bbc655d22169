// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package writeback implements the write buffer shared between the
// dispatcher and the writeback completer: the one piece of state that
// genuinely crosses goroutine boundaries, so it is guarded by a spinlock
// rather than the ordinary single-threaded-per-namespace assumption the
// rest of the FTL relies on. No third-party spinlock package fits this
// narrow a critical section, so it is built directly on sync/atomic.
package writeback

import (
	"runtime"
	"sync/atomic"
)

// Buffer tracks how many bytes of write-buffer capacity are currently
// occupied by data waiting to be persisted to NAND.
type Buffer struct {
	locked uint32
	used   uint64
	size   uint64
}

// New allocates a Buffer with the given total size in bytes.
func New(size uint64) *Buffer {
	return &Buffer{size: size}
}

func (b *Buffer) lock() {
	var spins int
	for !atomic.CompareAndSwapUint32(&b.locked, 0, 1) {
		spins++
		if spins > 64 {
			runtime.Gosched()
			spins = 0
		}
	}
}

func (b *Buffer) unlock() {
	atomic.StoreUint32(&b.locked, 0)
}

// TryAllocate attempts to reserve n bytes of buffer space, returning
// whether it succeeded. A full buffer means the write must wait for the
// writeback completer to release space; the retry policy is the
// caller's choice.
func (b *Buffer) TryAllocate(n uint64) bool {
	b.lock()
	defer b.unlock()
	if b.used+n > b.size {
		return false
	}
	b.used += n
	return true
}

// Release returns n bytes to the pool once the writeback completer has
// flushed the corresponding page to NAND.
func (b *Buffer) Release(n uint64) {
	b.lock()
	defer b.unlock()
	if n > b.used {
		n = b.used
	}
	b.used -= n
}

// Used reports the currently occupied byte count.
func (b *Buffer) Used() uint64 {
	b.lock()
	defer b.unlock()
	return b.used
}

// Size reports total buffer capacity in bytes.
func (b *Buffer) Size() uint64 { return b.size }
