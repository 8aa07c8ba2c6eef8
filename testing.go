package swx

import (
	"sync"

	"github.com/behrlich/go-swx/internal/backend"
	"github.com/behrlich/go-swx/match"
)

// MockTableBackend is an in-memory incremental table backend for tests:
// a map keyed by the raw entry key, with call counts for verifying
// commit-engine behavior (replay counts, rollback counts, ...).
type MockTableBackend struct {
	mu sync.Mutex

	entries map[string][]*match.Entry // unused; each object's live entries are held in its mockObj.byKey

	createCalls int
	addCalls    int
	delCalls    int
	freeCalls   int

	// FailAddOn, if nonzero, makes the FailAddOn-th call to Add fail
	// (1-indexed, across the backend's lifetime) — used to exercise
	// commit rollback paths (spec Scenario S5).
	FailAddOn int
}

type mockObj struct {
	byKey map[string]*match.Entry
}

// NewMockTableBackend constructs an empty incremental mock backend.
func NewMockTableBackend() *MockTableBackend {
	return &MockTableBackend{}
}

func (b *MockTableBackend) Create(params backend.Params, entries []*match.Entry, numaNode int) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createCalls++

	obj := &mockObj{byKey: make(map[string]*match.Entry, len(entries))}
	for _, e := range entries {
		obj.byKey[string(e.Key)] = e
	}
	return obj, nil
}

func (b *MockTableBackend) Free(obj any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.freeCalls++
}

func (b *MockTableBackend) Add(obj any, e *match.Entry) error {
	b.mu.Lock()
	b.addCalls++
	fail := b.FailAddOn > 0 && b.addCalls == b.FailAddOn
	b.mu.Unlock()
	if fail {
		return ErrBackendCreate
	}
	obj.(*mockObj).byKey[string(e.Key)] = match.Clone(e)
	return nil
}

func (b *MockTableBackend) Del(obj any, e *match.Entry) error {
	b.mu.Lock()
	b.delCalls++
	b.mu.Unlock()
	delete(obj.(*mockObj).byKey, string(e.Key))
	return nil
}

// CallCounts returns how many times each operation has been invoked.
func (b *MockTableBackend) CallCounts() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]int{
		"create": b.createCalls,
		"add":    b.addCalls,
		"del":    b.delCalls,
		"free":   b.freeCalls,
	}
}

// NewCountingBackend wraps a non-incremental backend ops set and counts
// Create/Free calls without altering behavior, for asserting that a
// non-incremental commit rebuilds exactly once per successful commit.
func NewCountingBackend(ops backend.Ops) *CountingBackend {
	return &CountingBackend{ops: ops}
}

// CountingBackend decorates a backend.Ops with call counters.
type CountingBackend struct {
	mu          sync.Mutex
	ops         backend.Ops
	createCalls int
	freeCalls   int
}

func (c *CountingBackend) Create(params backend.Params, entries []*match.Entry, numaNode int) (any, error) {
	c.mu.Lock()
	c.createCalls++
	c.mu.Unlock()
	return c.ops.Create(params, entries, numaNode)
}

func (c *CountingBackend) Free(obj any) {
	c.mu.Lock()
	c.freeCalls++
	c.mu.Unlock()
	c.ops.Free(obj)
}

// Counts returns the number of Create and Free calls observed so far.
func (c *CountingBackend) Counts() (creates, frees int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createCalls, c.freeCalls
}

var (
	_ backend.Ops     = (*MockTableBackend)(nil)
	_ backend.Adder   = (*MockTableBackend)(nil)
	_ backend.Deleter = (*MockTableBackend)(nil)
	_ backend.Ops     = (*CountingBackend)(nil)
)
