// Package dup provides pooled byte buffers for the entry duplication a
// non-incremental backend's create() forces on every commit: building the
// entries ∪ pending_add ∪ pending_modify1 list means cloning every key,
// key_mask, and action_data byte slice, only to discard them again once
// the backend rebuild finishes. Pooling avoids paying that allocation on
// the hot commit path for pipelines with wide tables.
//
// Uses size-bucketed pools with power-of-2 sizes (64B, 256B, 1KB, 4KB) to
// balance memory efficiency with allocation reduction; buffers larger
// than the top bucket fall back to a plain allocation and are not pooled.
package dup

import "sync"

const (
	size64b  = 64
	size256b = 256
	size1k   = 1024
	size4k   = 4096
)

var bufPool = struct {
	p64  sync.Pool
	p256 sync.Pool
	p1k  sync.Pool
	p4k  sync.Pool
}{
	p64:  sync.Pool{New: func() any { b := make([]byte, size64b); return &b }},
	p256: sync.Pool{New: func() any { b := make([]byte, size256b); return &b }},
	p1k:  sync.Pool{New: func() any { b := make([]byte, size1k); return &b }},
	p4k:  sync.Pool{New: func() any { b := make([]byte, size4k); return &b }},
}

// Get returns a zeroed buffer of at least n bytes. Buffers over 4KB are
// not pooled; the caller gets a plain allocation it should not Put back.
func Get(n int) []byte {
	switch {
	case n <= size64b:
		b := *bufPool.p64.Get().(*[]byte)
		return clear(b[:n])
	case n <= size256b:
		b := *bufPool.p256.Get().(*[]byte)
		return clear(b[:n])
	case n <= size1k:
		b := *bufPool.p1k.Get().(*[]byte)
		return clear(b[:n])
	case n <= size4k:
		b := *bufPool.p4k.Get().(*[]byte)
		return clear(b[:n])
	default:
		return make([]byte, n)
	}
}

// Put returns a buffer obtained from Get to its pool. Buffers whose
// capacity doesn't match a bucket exactly (i.e. ones Get allocated
// directly for n > 4KB) are silently dropped.
func Put(buf []byte) {
	c := cap(buf)
	full := buf[:c]
	switch c {
	case size64b:
		bufPool.p64.Put(&full)
	case size256b:
		bufPool.p256.Put(&full)
	case size1k:
		bufPool.p1k.Put(&full)
	case size4k:
		bufPool.p4k.Put(&full)
	}
}

func clear(b []byte) []byte {
	for i := range b {
		b[i] = 0
	}
	return b
}
