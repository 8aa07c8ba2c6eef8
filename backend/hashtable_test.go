package backend

import (
	"testing"

	"github.com/behrlich/go-swx/internal/backend"
	"github.com/behrlich/go-swx/match"
)

func TestHashTableAddDelLookup(t *testing.T) {
	h := NewHashTable()
	obj, err := h.Create(backend.Params{KeySize: 4}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}

	e := &match.Entry{Key: []byte{1, 2, 3, 4}, ActionID: 1, ActionData: []byte{9}}
	if err := h.Add(obj, e); err != nil {
		t.Fatal(err)
	}

	got, ok := LookupExact(obj, []byte{1, 2, 3, 4})
	if !ok || got.ActionData[0] != 9 {
		t.Fatalf("lookup after add failed: %+v ok=%v", got, ok)
	}

	if err := h.Del(obj, e); err != nil {
		t.Fatal(err)
	}
	if _, ok := LookupExact(obj, []byte{1, 2, 3, 4}); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestHashTableCreateSeedsFromList(t *testing.T) {
	h := NewHashTable()
	seed := []*match.Entry{{Key: []byte{5, 5}, ActionID: 1}}
	obj, err := h.Create(backend.Params{KeySize: 2}, seed, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := LookupExact(obj, []byte{5, 5}); !ok {
		t.Fatal("expected seeded entry to be present")
	}
}
