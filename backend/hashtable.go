// Package backend provides reference table-kind implementations of
// internal/backend.Ops: an incremental exact-match hash table and a
// non-incremental sorted-prefix table rebuilt wholesale on every
// commit.
package backend

import (
	"sync"

	"github.com/behrlich/go-swx/internal/backend"
	"github.com/behrlich/go-swx/match"
)

// HashTable is an incremental exact-match table backend: a plain Go map
// keyed by the raw entry key bytes. It implements backend.Adder and
// backend.Deleter, so the commit engine mutates its live object in
// place instead of rebuilding it every commit.
type HashTable struct{}

// NewHashTable constructs an exact-match incremental backend.
func NewHashTable() *HashTable { return &HashTable{} }

type hashTableObj struct {
	mu      sync.RWMutex
	entries map[string]*match.Entry
}

func (h *HashTable) Create(params backend.Params, entries []*match.Entry, numaNode int) (any, error) {
	obj := &hashTableObj{entries: make(map[string]*match.Entry, len(entries))}
	for _, e := range entries {
		obj.entries[string(e.Key)] = e
	}
	return obj, nil
}

func (h *HashTable) Free(obj any) {}

func (h *HashTable) Add(obj any, e *match.Entry) error {
	o := obj.(*hashTableObj)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[string(e.Key)] = e
	return nil
}

func (h *HashTable) Del(obj any, e *match.Entry) error {
	o := obj.(*hashTableObj)
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, string(e.Key))
	return nil
}

// LookupExact is the dataplane-side read path: an exact-key match
// against the live object returned by Create. It takes no lock beyond
// the object's own RWMutex and is safe to call concurrently with
// Add/Del on a different (shadow) object, per the commit engine's
// single-mutator contract.
func LookupExact(obj any, key []byte) (*match.Entry, bool) {
	o := obj.(*hashTableObj)
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.entries[string(key)]
	return e, ok
}

var (
	_ backend.Ops     = (*HashTable)(nil)
	_ backend.Adder   = (*HashTable)(nil)
	_ backend.Deleter = (*HashTable)(nil)
)
