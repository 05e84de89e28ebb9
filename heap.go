// heap.go - first-fit heap allocator over a fixed 64KiB arena
//
// Block headers live inline in the arena itself and are addressed by
// offset rather than by pointer, so the rest of the kernel only ever
// holds an opaque allocation handle, never a raw pointer into the arena.
//
// License: GPLv3 or later

package luxkernel

import (
	"encoding/binary"
	"math"
	"sync"
)

const (
	heapArenaSize  = 64 * 1024
	heapHeaderSize = 16 // payloadSize(4) + prev(4) + next(4) + free(4)
	heapAlignment  = 8

	// heapNullOffset marks "no link" for prev/next and also serves as the
	// null allocation handle returned on starvation, matching the
	// all-ones INVALID convention used elsewhere in this kernel (inode
	// direct blocks, directory inode sentinel).
	heapNullOffset uint32 = 0xFFFFFFFF
)

// Handle is an opaque, arena-relative allocation handle. It is never a raw
// pointer — callers index into the heap's backing store through it.
type Handle uint32

// NullHandle is returned by Allocate/ZeroAllocate on failure.
const NullHandle Handle = Handle(heapNullOffset)

// HeapStats is the allocator's introspection contract.
type HeapStats struct {
	TotalBytes      uint32
	UsedBytes       uint32
	FreeBytes       uint32
	LargestFree     uint32
	AllocationCount uint32
	FreeBlockCount  uint32
}

type heapBlockHeader struct {
	payloadSize uint32
	prev        uint32
	next        uint32
	free        uint32
}

// Heap is the single fixed-arena first-fit allocator serving every dynamic
// allocation in the kernel.
type Heap struct {
	mu          sync.Mutex
	arena       []byte
	initialized bool
	allocCount  uint32
}

// NewHeap returns an uninitialized heap. Stats() on an uninitialized heap
// reports a virtual single free block spanning the arena; Allocate on an
// uninitialized heap fails.
func NewHeap() *Heap {
	return &Heap{}
}

// Init allocates the arena and installs the single initial free block.
// Must run before any allocation.
func (h *Heap) Init() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.arena = make([]byte, heapArenaSize)
	h.initialized = true
	h.allocCount = 0
	h.writeHeader(0, heapBlockHeader{
		payloadSize: heapArenaSize - heapHeaderSize,
		prev:        heapNullOffset,
		next:        heapNullOffset,
		free:        1,
	})
}

func (h *Heap) readHeader(off uint32) heapBlockHeader {
	b := h.arena[off : off+heapHeaderSize]
	return heapBlockHeader{
		payloadSize: binary.LittleEndian.Uint32(b[0:4]),
		prev:        binary.LittleEndian.Uint32(b[4:8]),
		next:        binary.LittleEndian.Uint32(b[8:12]),
		free:        binary.LittleEndian.Uint32(b[12:16]),
	}
}

func (h *Heap) writeHeader(off uint32, hdr heapBlockHeader) {
	b := h.arena[off : off+heapHeaderSize]
	binary.LittleEndian.PutUint32(b[0:4], hdr.payloadSize)
	binary.LittleEndian.PutUint32(b[4:8], hdr.prev)
	binary.LittleEndian.PutUint32(b[8:12], hdr.next)
	binary.LittleEndian.PutUint32(b[12:16], hdr.free)
}

func alignUp(n uint32, align uint32) uint32 {
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// Allocate returns a handle to a payload of at least n bytes, 8-byte
// aligned, or NullHandle if the arena is starved or uninitialized.
func (h *Heap) Allocate(n uint32) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocateLocked(n)
}

func (h *Heap) allocateLocked(n uint32) Handle {
	if !h.initialized {
		return NullHandle
	}
	need := alignUp(n, heapAlignment)

	off := uint32(0)
	for {
		hdr := h.readHeader(off)
		if hdr.free != 0 && hdr.payloadSize >= need {
			h.splitAndTakeLocked(off, hdr, need)
			h.allocCount++
			return Handle(off + heapHeaderSize)
		}
		if hdr.next == heapNullOffset {
			return NullHandle
		}
		off = hdr.next
	}
}

// splitAndTakeLocked marks the block at off as used, splitting a trailing
// free block off when enough residual capacity remains.
func (h *Heap) splitAndTakeLocked(off uint32, hdr heapBlockHeader, need uint32) {
	residual := hdr.payloadSize - need
	if residual >= heapHeaderSize+heapAlignment {
		newOff := off + heapHeaderSize + need
		newHdr := heapBlockHeader{
			payloadSize: residual - heapHeaderSize,
			prev:        off,
			next:        hdr.next,
			free:        1,
		}
		h.writeHeader(newOff, newHdr)
		if hdr.next != heapNullOffset {
			next := h.readHeader(hdr.next)
			next.prev = newOff
			h.writeHeader(hdr.next, next)
		}
		hdr.payloadSize = need
		hdr.next = newOff
	}
	hdr.free = 0
	h.writeHeader(off, hdr)
}

// ZeroAllocate is Allocate(count*size) with the payload zero-filled and an
// overflow guard on count*size.
func (h *Heap) ZeroAllocate(count, elemSize uint32) Handle {
	if elemSize != 0 && count > math.MaxUint32/elemSize {
		return NullHandle
	}
	n := count * elemSize
	h.mu.Lock()
	handle := h.allocateLocked(n)
	if handle != NullHandle {
		payload := h.arena[uint32(handle) : uint32(handle)+alignUp(n, heapAlignment)]
		for i := range payload {
			payload[i] = 0
		}
	}
	h.mu.Unlock()
	return handle
}

// Free releases handle. Freeing an already-free block, or a handle outside
// the arena, is a silent no-op.
func (h *Heap) Free(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.initialized {
		return
	}
	off := uint32(handle)
	if off < heapHeaderSize || off >= heapArenaSize {
		return
	}
	blockOff := off - heapHeaderSize
	hdr := h.readHeader(blockOff)
	if hdr.free != 0 {
		return
	}
	hdr.free = 1
	h.writeHeader(blockOff, hdr)
	h.allocCount--

	h.coalesceWithNextLocked(blockOff)
	if hdr2 := h.readHeader(blockOff); hdr2.prev != heapNullOffset {
		if prev := h.readHeader(hdr2.prev); prev.free != 0 {
			h.coalesceWithNextLocked(hdr2.prev)
		}
	}
}

// coalesceWithNextLocked merges the block at off with its immediate
// successor if that successor exists and is free.
func (h *Heap) coalesceWithNextLocked(off uint32) {
	hdr := h.readHeader(off)
	if hdr.next == heapNullOffset {
		return
	}
	next := h.readHeader(hdr.next)
	if next.free == 0 {
		return
	}
	hdr.payloadSize += heapHeaderSize + next.payloadSize
	hdr.next = next.next
	if next.next != heapNullOffset {
		nn := h.readHeader(next.next)
		nn.prev = off
		h.writeHeader(next.next, nn)
	}
	h.writeHeader(off, hdr)
}

// Bytes exposes the payload at handle as a slice of length n, for
// subsystems (process stacks, swap buffers) that use the heap as backing
// storage rather than a fixed-size record.
func (h *Heap) Bytes(handle Handle, n uint32) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	off := uint32(handle)
	return h.arena[off : off+n]
}

// Stats reports the allocator's current state. An uninitialized heap
// reports a virtual single free block spanning the arena.
func (h *Heap) Stats() HeapStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.initialized {
		return HeapStats{
			TotalBytes:     heapArenaSize - heapHeaderSize,
			FreeBytes:      heapArenaSize - heapHeaderSize,
			LargestFree:    heapArenaSize - heapHeaderSize,
			FreeBlockCount: 1,
		}
	}

	var stats HeapStats
	off := uint32(0)
	for {
		hdr := h.readHeader(off)
		stats.TotalBytes += hdr.payloadSize
		if hdr.free != 0 {
			stats.FreeBytes += hdr.payloadSize
			stats.FreeBlockCount++
			if hdr.payloadSize > stats.LargestFree {
				stats.LargestFree = hdr.payloadSize
			}
		} else {
			stats.UsedBytes += hdr.payloadSize
		}
		if hdr.next == heapNullOffset {
			break
		}
		off = hdr.next
	}
	stats.AllocationCount = h.allocCount
	return stats
}

// Reset discards the arena, returning the heap to its uninitialized state.
func (h *Heap) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.arena = nil
	h.initialized = false
	h.allocCount = 0
}
