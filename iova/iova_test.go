package iova

import "testing"

func TestAllocFirstFitAndCoalesce(t *testing.T) {
	a := Init(Config{Base: 0x1000_0000, Len: 0x1000})

	if got := a.Alloc(0xA000, 0x400); got != 0x1000_0000 {
		t.Fatalf("alloc A = %#x, want %#x", got, 0x1000_0000)
	}
	if got := a.Alloc(0xB000, 0x400); got != 0x1000_0400 {
		t.Fatalf("alloc B = %#x, want %#x", got, 0x1000_0400)
	}
	if got := a.Alloc(0xC000, 0x400); got != 0x1000_0800 {
		t.Fatalf("alloc C = %#x, want %#x", got, 0x1000_0800)
	}

	if rc := a.Free(0xB000, 0x400); rc != 0 {
		t.Fatalf("free B = %d, want 0", rc)
	}

	// Both the B-hole and the tail are 0x400 long; first-fit returns
	// whichever is encountered first in the (sorted) free list, the hole.
	if got := a.Alloc(0xD000, 0x400); got != 0x1000_0400 {
		t.Fatalf("alloc D = %#x, want %#x", got, 0x1000_0400)
	}

	a.Free(0xA000, 0x400)
	a.Free(0xC000, 0x400)
	a.Free(0xD000, 0x400)

	if len(a.free) != 1 {
		t.Fatalf("free list did not collapse: %+v", a.free)
	}
	if a.free[0].taddr != 0x1000_0000 || a.free[0].len != 0x1000 {
		t.Fatalf("collapsed free descriptor wrong: %+v", a.free[0])
	}
	if len(a.alloc) != 0 {
		t.Fatalf("allocated list not empty: %+v", a.alloc)
	}
}

func TestAllocOverlapRejected(t *testing.T) {
	a := Init(Config{Base: 0x2000_0000, Len: 0x10000})

	if got := a.Alloc(0x2000, 0x100); got == BadIOVA {
		t.Fatal("initial alloc unexpectedly failed")
	}
	freeBefore := append([]desc(nil), a.free...)
	allocBefore := append([]desc(nil), a.alloc...)

	if got := a.Alloc(0x20FF, 0x10); got != BadIOVA {
		t.Fatalf("overlapping alloc = %#x, want BadIOVA", got)
	}

	if !descSliceEqual(a.free, freeBefore) {
		t.Fatalf("free list mutated on rejected alloc: %+v vs %+v", a.free, freeBefore)
	}
	if !descSliceEqual(a.alloc, allocBefore) {
		t.Fatalf("alloc list mutated on rejected alloc: %+v vs %+v", a.alloc, allocBefore)
	}
}

func TestFreeNoMatchLeavesStateUnchanged(t *testing.T) {
	a := Init(Config{Base: 0, Len: 0x1000})
	a.Alloc(0x10, 0x10)

	freeBefore := append([]desc(nil), a.free...)
	allocBefore := append([]desc(nil), a.alloc...)

	if rc := a.Free(0x10, 0x20); rc != -1 {
		t.Fatalf("free with wrong length = %d, want -1", rc)
	}
	if !descSliceEqual(a.free, freeBefore) || !descSliceEqual(a.alloc, allocBefore) {
		t.Fatal("failed free mutated state")
	}
}

func TestSearch(t *testing.T) {
	a := Init(Config{Base: 0x5000_0000, Len: 0x1000})
	iova := a.Alloc(0x30, 0x100)
	if iova == BadIOVA {
		t.Fatal("alloc failed")
	}

	if got := a.Search(0x30); got != iova {
		t.Fatalf("Search(base) = %#x, want %#x", got, iova)
	}
	if got := a.Search(0x30 + 0x50); got != iova+0x50 {
		t.Fatalf("Search(mid) = %#x, want %#x", got, iova+0x50)
	}
	if got := a.Search(0x30 + 0x100); got != BadIOVA {
		t.Fatalf("Search(past end) = %#x, want BadIOVA", got)
	}
	if got := a.Search(0xDEAD); got != BadIOVA {
		t.Fatalf("Search(unknown) = %#x, want BadIOVA", got)
	}
}

func TestAllocEmptyFreeList(t *testing.T) {
	a := Init(Config{Base: 0, Len: 0x10})
	if got := a.Alloc(0, 0x10); got == BadIOVA {
		t.Fatal("first alloc of whole window unexpectedly failed")
	}
	if got := a.Alloc(0x100, 0x1); got != BadIOVA {
		t.Fatalf("alloc with exhausted free list = %#x, want BadIOVA", got)
	}
}

func TestStats(t *testing.T) {
	a := Init(Config{Base: 0, Len: 0x1000})
	a.Alloc(0x10, 0x100)
	a.Alloc(0x200, 0x100)

	s := a.Stats()
	if s.AllocCount != 2 || s.AllocBytes != 0x200 {
		t.Fatalf("alloc stats wrong: %+v", s)
	}
	if s.FreeCount != 1 || s.FreeBytes != 0x1000-0x200 {
		t.Fatalf("free stats wrong: %+v", s)
	}
}

func descSliceEqual(a, b []desc) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
