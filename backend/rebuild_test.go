package backend

import (
	"testing"

	"github.com/behrlich/go-swx/internal/backend"
	"github.com/behrlich/go-swx/match"
)

func TestPrefixTableSortsByPriorityThenSpecificity(t *testing.T) {
	p := NewPrefixTable()
	entries := []*match.Entry{
		{Key: []byte{10, 0, 0, 0}, KeyMask: []byte{255, 0, 0, 0}, KeyPriority: 0, ActionID: 1},
		{Key: []byte{10, 0, 0, 0}, KeyMask: []byte{255, 255, 0, 0}, KeyPriority: 0, ActionID: 2},
		{Key: []byte{0, 0, 0, 0}, KeyMask: []byte{0, 0, 0, 0}, KeyPriority: 5, ActionID: 3},
	}

	obj, err := p.Create(backend.Params{KeySize: 4}, entries, 0)
	if err != nil {
		t.Fatal(err)
	}

	got, ok := LookupPrefix(obj, []byte{10, 0, 1, 1})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.ActionID != 3 {
		t.Fatalf("expected the higher-priority catch-all entry to win, got action %d", got.ActionID)
	}
}

func TestPrefixTableMoreSpecificMaskWinsAtEqualPriority(t *testing.T) {
	p := NewPrefixTable()
	entries := []*match.Entry{
		{Key: []byte{10, 0, 0, 0}, KeyMask: []byte{255, 0, 0, 0}, KeyPriority: 0, ActionID: 1},
		{Key: []byte{10, 0, 0, 0}, KeyMask: []byte{255, 255, 0, 0}, KeyPriority: 0, ActionID: 2},
	}

	obj, err := p.Create(backend.Params{KeySize: 4}, entries, 0)
	if err != nil {
		t.Fatal(err)
	}

	got, ok := LookupPrefix(obj, []byte{10, 0, 1, 1})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.ActionID != 2 {
		t.Fatalf("expected the more specific /16 entry to win over the /8, got action %d", got.ActionID)
	}
}

func TestPrefixTableLookupMiss(t *testing.T) {
	p := NewPrefixTable()
	entries := []*match.Entry{
		{Key: []byte{10, 0, 0, 0}, KeyMask: []byte{255, 0, 0, 0}, ActionID: 1},
	}
	obj, err := p.Create(backend.Params{KeySize: 4}, entries, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := LookupPrefix(obj, []byte{192, 168, 0, 1}); ok {
		t.Fatal("expected no match")
	}
}

func TestMaskWeight(t *testing.T) {
	if w := maskWeight([]byte{0xFF, 0x00}); w != 8 {
		t.Fatalf("expected 8 set bits, got %d", w)
	}
	if w := maskWeight(nil); w != 0 {
		t.Fatalf("expected 0 for nil mask, got %d", w)
	}
}
