// Package backend defines the operations a concrete match-action table
// implementation exposes to the commit engine. Concrete table kinds
// (hash, LPM trie, wildcard classifier, ...) are outside this module's
// scope; only the abstract operation set is defined here.
package backend

import "github.com/behrlich/go-swx/match"

// Params carries whatever a concrete table kind needs to size itself at
// create time (key size, action data size, capacity hints, ...). It is
// opaque to the commit engine.
type Params struct {
	KeySize        int
	ActionDataSize int
	Capacity       int
}

// Ops is the operation set a table backend must expose. A backend that
// implements Adder and Deleter is incremental, per spec §4.D; a backend
// that implements only Create/Free is rebuilt wholesale on every commit.
type Ops interface {
	// Create builds a table object from a fully-materialized entry list
	// (a duplicated ∪ of entries, pending_add, and pending_modify1).
	// Returns a non-nil error on failure.
	Create(params Params, entries []*match.Entry, numaNode int) (obj any, err error)

	// Free releases a table object previously returned by Create.
	Free(obj any)
}

// Adder is the optional incremental-add half of a backend.
type Adder interface {
	Add(obj any, entry *match.Entry) error
}

// Deleter is the optional incremental-delete half of a backend, always
// implemented alongside Adder.
type Deleter interface {
	Del(obj any, entry *match.Entry) error
}

// IsIncremental reports whether ops supports Add/Del directly against a
// live object instead of requiring a full rebuild on every commit.
func IsIncremental(ops Ops) bool {
	_, hasAdd := ops.(Adder)
	_, hasDel := ops.(Deleter)
	return hasAdd && hasDel
}
