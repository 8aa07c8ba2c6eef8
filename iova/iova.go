// Package iova implements a first-fit allocator that maps virtual-memory
// windows into a contiguous I/O-virtual address range.
//
// An Allocator owns two ordered lists over a single [base, base+len)
// window: free descriptors, sorted by taddr and always maximally
// coalesced, and allocated descriptors, keyed by the caller's vaddr. The
// allocator takes no internal lock — callers sharing an Allocator across
// goroutines must serialize access themselves, the same single-writer
// assumption the rest of this module makes.
package iova

import (
	"sort"

	"github.com/behrlich/go-swx/internal/constants"
	"github.com/behrlich/go-swx/internal/logging"
)

// BadIOVA is the sentinel returned by Alloc/Search on failure.
const BadIOVA = constants.BadIOVA

// desc is a single interval descriptor. vaddr is 0 for free descriptors.
type desc struct {
	vaddr uint64
	taddr uint64
	len   uint64
}

func (d desc) end() uint64 { return d.taddr + d.len }

// Config is the window an Allocator manages.
type Config struct {
	Base uint64
	Len  uint64
}

// Allocator manages the free/allocated descriptor lists for one IOVA
// window. The zero value is not usable; construct with Init.
type Allocator struct {
	base uint64
	len  uint64

	free  []desc
	alloc []desc

	logger *logging.Logger
}

// Init creates an Allocator with a single free descriptor spanning the
// whole window.
func Init(cfg Config) *Allocator {
	a := &Allocator{
		base:   cfg.Base,
		len:    cfg.Len,
		free:   make([]desc, 0, 4),
		alloc:  make([]desc, 0, 4),
		logger: logging.Default(),
	}
	a.free = append(a.free, desc{vaddr: 0, taddr: cfg.Base, len: cfg.Len})
	return a
}

// overlapsVirtual reports whether [vaddr, vaddr+len) overlaps the
// allocated descriptor's virtual range, per spec: max(starts) <= min(ends).
func overlapsVirtual(vaddr, length uint64, d desc) bool {
	start, end := vaddr, vaddr+length
	dStart, dEnd := d.vaddr, d.vaddr+d.len
	return max64(start, dStart) <= min64(end, dEnd)
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Alloc reserves len IOVA bytes for the virtual window [vaddr, vaddr+len)
// and returns the IOVA base of the reservation, or BadIOVA on failure. No
// partial state change occurs on a rejected allocation.
func (a *Allocator) Alloc(vaddr, length uint64) uint64 {
	if len(a.free) == 0 {
		a.logger.Debug("iova alloc: free list empty")
		return BadIOVA
	}

	for _, d := range a.alloc {
		if overlapsVirtual(vaddr, length, d) {
			a.logger.Debug("iova alloc: virtual overlap", "vaddr", vaddr, "len", length)
			return BadIOVA
		}
	}

	for i := range a.free {
		f := &a.free[i]
		if f.len < length {
			continue
		}

		taddr := f.taddr
		a.alloc = append(a.alloc, desc{vaddr: vaddr, taddr: taddr, len: length})

		f.taddr += length
		f.len -= length
		if f.len == 0 {
			a.free = append(a.free[:i], a.free[i+1:]...)
		}

		a.logger.Debug("iova alloc: reserved", "vaddr", vaddr, "taddr", taddr, "len", length)
		return taddr
	}

	a.logger.Debug("iova alloc: no fit", "len", length)
	return BadIOVA
}

// Free releases the allocation matching the exact (vaddr, len) pair.
// Partial frees are rejected. Returns 0 on success, -1 if no allocated
// descriptor matches.
func (a *Allocator) Free(vaddr, length uint64) int {
	idx := -1
	for i, d := range a.alloc {
		if d.vaddr == vaddr && d.len == length {
			idx = i
			break
		}
	}
	if idx == -1 {
		a.logger.Debug("iova free: no matching allocation", "vaddr", vaddr, "len", length)
		return -1
	}

	d := a.alloc[idx]
	a.foldIntoFree(d)
	a.coalesce()

	a.alloc = append(a.alloc[:idx], a.alloc[idx+1:]...)
	a.logger.Debug("iova free: released", "vaddr", vaddr, "taddr", d.taddr, "len", length)
	return 0
}

// foldIntoFree inserts d's taddr range into the free list, preferring to
// prepend/append into an adjacent free descriptor over inserting a new one.
func (a *Allocator) foldIntoFree(d desc) {
	for i := range a.free {
		f := &a.free[i]
		if f.taddr == d.end() {
			f.taddr = d.taddr
			f.len += d.len
			return
		}
	}
	for i := range a.free {
		f := &a.free[i]
		if f.end() == d.taddr {
			f.len += d.len
			return
		}
	}
	a.free = append(a.free, desc{vaddr: 0, taddr: d.taddr, len: d.len})
}

// coalesce sorts the free list by taddr, then merges adjacent descriptors
// whose ranges touch end-to-start. Bounded by list length; first-fit is
// intentionally simple since IOVA churn is low.
func (a *Allocator) coalesce() {
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].taddr < a.free[j].taddr })

	merged := a.free[:0:0]
	for _, d := range a.free {
		if n := len(merged); n > 0 && merged[n-1].end() == d.taddr {
			merged[n-1].len += d.len
			continue
		}
		merged = append(merged, d)
	}
	a.free = merged
}

// Search returns the IOVA address corresponding to vaddr, or BadIOVA if
// vaddr falls outside every allocated window.
func (a *Allocator) Search(vaddr uint64) uint64 {
	for _, d := range a.alloc {
		if vaddr >= d.vaddr && vaddr < d.vaddr+d.len {
			return d.taddr + (vaddr - d.vaddr)
		}
	}
	return BadIOVA
}

// Stats is a read-only snapshot of free/allocated list sizes, supplementing
// the original eal_common_tiova.c diagnostics the distilled spec dropped.
type Stats struct {
	FreeCount  int
	FreeBytes  uint64
	AllocCount int
	AllocBytes uint64
}

// Stats returns a point-in-time snapshot of the free and allocated lists.
func (a *Allocator) Stats() Stats {
	s := Stats{FreeCount: len(a.free), AllocCount: len(a.alloc)}
	for _, d := range a.free {
		s.FreeBytes += d.len
	}
	for _, d := range a.alloc {
		s.AllocBytes += d.len
	}
	return s
}
