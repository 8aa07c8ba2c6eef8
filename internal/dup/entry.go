package dup

import "github.com/behrlich/go-swx/match"

// CloneEntry duplicates e using pooled backing buffers instead of fresh
// allocations, for the same reason match.Clone exists: ownership must
// transfer to a new list without continuing to alias the source. Pair
// with ReleaseEntry once the clone is no longer needed (after a
// non-incremental backend's Create has consumed the built list and the
// old object has been freed).
func CloneEntry(e *match.Entry) *match.Entry {
	if e == nil {
		return nil
	}
	c := &match.Entry{
		KeySignature: e.KeySignature,
		KeyPriority:  e.KeyPriority,
		ActionID:     e.ActionID,
	}
	if e.Key != nil {
		c.Key = Get(len(e.Key))
		copy(c.Key, e.Key)
	}
	if e.KeyMask != nil {
		c.KeyMask = Get(len(e.KeyMask))
		copy(c.KeyMask, e.KeyMask)
	}
	if e.ActionData != nil {
		c.ActionData = Get(len(e.ActionData))
		copy(c.ActionData, e.ActionData)
	}
	return c
}

// ReleaseEntry returns a CloneEntry result's buffers to their pools. Do
// not call this on an entry that did not originate from CloneEntry — its
// slices may not be pool-owned (wrong capacity is simply dropped by Put,
// but a slice still referenced elsewhere would be corrupted by reuse).
func ReleaseEntry(e *match.Entry) {
	if e == nil {
		return
	}
	if e.Key != nil {
		Put(e.Key)
	}
	if e.KeyMask != nil {
		Put(e.KeyMask)
	}
	if e.ActionData != nil {
		Put(e.ActionData)
	}
}
