package backend

import (
	"sort"

	"github.com/behrlich/go-swx/internal/backend"
	"github.com/behrlich/go-swx/match"
)

// PrefixTable is a non-incremental backend for LPM/wildcard tables: it
// has no Add/Del, so the commit engine rebuilds it wholesale from the
// full entry list on every commit that touches it.
type PrefixTable struct{}

// NewPrefixTable constructs a rebuild-on-commit LPM/wildcard backend.
func NewPrefixTable() *PrefixTable { return &PrefixTable{} }

type prefixTableObj struct {
	// entries sorted by descending key_priority, then descending mask
	// weight (more specific masks first), so the first match found by a
	// linear scan is the highest-priority, most-specific one.
	entries []*match.Entry
}

func maskWeight(mask []byte) int {
	if mask == nil {
		return 0
	}
	n := 0
	for _, b := range mask {
		for b != 0 {
			n += int(b & 1)
			b >>= 1
		}
	}
	return n
}

// entryMaskWeight is maskWeight for an entry, counting a nil KeyMask as
// all-ones over the key, the way entryMatchesCandidate applies it.
func entryMaskWeight(e *match.Entry) int {
	if e.KeyMask == nil {
		return 8 * len(e.Key)
	}
	return maskWeight(e.KeyMask)
}

func (p *PrefixTable) Create(params backend.Params, entries []*match.Entry, numaNode int) (any, error) {
	obj := &prefixTableObj{entries: append([]*match.Entry(nil), entries...)}
	sort.SliceStable(obj.entries, func(i, j int) bool {
		ei, ej := obj.entries[i], obj.entries[j]
		if ei.KeyPriority != ej.KeyPriority {
			return ei.KeyPriority > ej.KeyPriority
		}
		return entryMaskWeight(ei) > entryMaskWeight(ej)
	})
	return obj, nil
}

func (p *PrefixTable) Free(obj any) {}

// LookupPrefix finds the highest-priority entry whose (key & mask)
// matches candidate under the same mask, the dataplane-side read path
// for a rebuild-on-commit table.
func LookupPrefix(obj any, candidate []byte) (*match.Entry, bool) {
	o := obj.(*prefixTableObj)
	for _, e := range o.entries {
		if entryMatchesCandidate(e, candidate) {
			return e, true
		}
	}
	return nil, false
}

func entryMatchesCandidate(e *match.Entry, candidate []byte) bool {
	if len(candidate) != len(e.Key) {
		return false
	}
	for i := range e.Key {
		m := byte(0xFF)
		if e.KeyMask != nil && i < len(e.KeyMask) {
			m = e.KeyMask[i]
		}
		if (e.Key[i] & m) != (candidate[i] & m) {
			return false
		}
	}
	return true
}

var _ backend.Ops = (*PrefixTable)(nil)
