package dup

import (
	"testing"

	"github.com/behrlich/go-swx/match"
)

func TestGetSizeBuckets(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		expectCap int
	}{
		{"64B exact", 64, 64},
		{"64B smaller", 10, 64},
		{"256B bucket", 200, 256},
		{"1KB bucket", 900, 1024},
		{"4KB bucket", 4000, 4096},
		{"oversize", 5000, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Get(tt.n)
			if len(buf) != tt.n {
				t.Errorf("Get(%d) len = %d, want %d", tt.n, len(buf), tt.n)
			}
			if cap(buf) != tt.expectCap {
				t.Errorf("Get(%d) cap = %d, want %d", tt.n, cap(buf), tt.expectCap)
			}
			if tt.expectCap <= size4k {
				Put(buf)
			}
		})
	}
}

func TestGetZeroesReusedBuffer(t *testing.T) {
	buf := Get(64)
	for i := range buf {
		buf[i] = 0xFF
	}
	Put(buf)

	buf2 := Get(64)
	for i, b := range buf2 {
		if b != 0 {
			t.Fatalf("Get did not zero reused buffer at %d: %x", i, b)
		}
	}
}

func TestCloneEntryIndependent(t *testing.T) {
	e := &match.Entry{Key: []byte{1, 2, 3}, ActionData: []byte{9, 9}, KeySignature: 7}
	c := CloneEntry(e)
	c.Key[0] = 0xAB
	if e.Key[0] == 0xAB {
		t.Fatal("CloneEntry aliases source key")
	}
	if c.KeySignature != 7 {
		t.Fatal("CloneEntry lost key signature")
	}
	ReleaseEntry(c)
}
