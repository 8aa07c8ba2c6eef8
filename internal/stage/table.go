// Package stage implements the per-table staging state machine: the five
// ordered entry sets (entries, pending_add, pending_modify0,
// pending_modify1, pending_delete) plus pending_default, and the add/del
// transitions that drive entries between them ahead of a commit.
package stage

import (
	"github.com/behrlich/go-swx/internal/constants"
	"github.com/behrlich/go-swx/match"
)

// ActionInfo describes one action a table is allowed to invoke.
type ActionInfo struct {
	DataSize int
}

// Table holds a table's immutable match metadata, its allowed actions,
// and the staging sets that a commit consumes. It is not safe for
// concurrent use — the same single-writer assumption as the rest of this
// module.
type Table struct {
	Name      string
	Fields    []match.Field
	MatchType match.MatchType
	KeyOffset int
	KeySize   int
	KeyMask0  []byte
	IsStub    bool

	ActionDataSize       int // max data_size across AllowedActions
	AllowedActions       map[int]ActionInfo
	DefaultActionIsConst bool

	Entries        []*match.Entry
	PendingAdd     []*match.Entry
	PendingModify0 []*match.Entry
	PendingModify1 []*match.Entry
	PendingDelete  []*match.Entry
	PendingDefault *match.Entry // nil when no default is staged

	DefaultActionID   int
	DefaultActionData []byte
}

// New constructs a Table from its match fields and allowed-action set.
// IsStub is true iff fields is empty.
func New(name string, fields []match.Field, actions map[int]ActionInfo, defaultConst bool) *Table {
	offset, size := match.KeyExtent(fields)
	maxData := 0
	for _, a := range actions {
		if a.DataSize > maxData {
			maxData = a.DataSize
		}
	}
	return &Table{
		Name:                 name,
		Fields:               fields,
		MatchType:            match.DeriveMatchType(fields),
		KeyOffset:            offset,
		KeySize:              size,
		KeyMask0:             match.KeyMask0(fields),
		IsStub:               len(fields) == 0,
		ActionDataSize:       maxData,
		AllowedActions:       actions,
		DefaultActionIsConst: defaultConst,
		Entries:              make([]*match.Entry, 0, constants.DefaultTableCapacityHint),
	}
}

func findEntry(list []*match.Entry, e *match.Entry, km0 []byte) int {
	for i, cand := range list {
		if !match.MaybeEqual(cand, e) {
			continue
		}
		if match.Equal(cand, e, km0) {
			return i
		}
	}
	return -1
}

func removeAt(list []*match.Entry, i int) []*match.Entry {
	return append(list[:i], list[i+1:]...)
}

// Validate checks entry admissibility per spec §4.C. With forDelete set,
// only the stub/key shape is checked; the mask and action rules apply to
// adds only.
func (t *Table) Validate(e *match.Entry, forDelete bool) error {
	if t.IsStub {
		if e.Key != nil || e.KeyMask != nil {
			return ErrStubMismatch
		}
		return nil
	}
	if e.Key == nil {
		return ErrStubMismatch
	}
	if forDelete {
		return nil
	}

	if t.MatchType == match.Exact && e.KeyMask != nil {
		for i := range t.KeyMask0 {
			km := byte(0xFF)
			if i < len(e.KeyMask) {
				km = e.KeyMask[i]
			}
			if (km & t.KeyMask0[i]) != t.KeyMask0[i] {
				return ErrMaskTooNarrow
			}
		}
	}
	// LPM mask contiguity is not checked here, and neither reference
	// backend in this module checks it; wildcard masks are accepted as-is.

	info, ok := t.AllowedActions[e.ActionID]
	if !ok {
		return ErrUnknownAction
	}
	hasData := len(e.ActionData) > 0
	if hasData != (info.DataSize > 0) {
		return ErrActionDataMismatch
	}
	return nil
}

// ValidateDefault checks a staged default entry against the table's
// constant-default and action-data rules (spec §9 open question: the
// action's data_size must match action_data presence/absence exactly).
func (t *Table) ValidateDefault(e *match.Entry) error {
	if t.DefaultActionIsConst {
		return ErrDefaultIsConst
	}
	info, ok := t.AllowedActions[e.ActionID]
	if !ok {
		return ErrUnknownAction
	}
	hasData := len(e.ActionData) > 0
	if hasData != (info.DataSize > 0) {
		return ErrActionDataMismatch
	}
	return nil
}

// Add stages e per the add() transition table in spec §4.C.
func (t *Table) Add(e *match.Entry) error {
	if err := t.Validate(e, false); err != nil {
		return err
	}

	if i := findEntry(t.Entries, e, t.KeyMask0); i >= 0 {
		old := t.Entries[i]
		t.Entries = removeAt(t.Entries, i)
		t.PendingModify0 = append(t.PendingModify0, old)
		t.PendingModify1 = append(t.PendingModify1, match.Clone(e))
		return nil
	}

	if i := findEntry(t.PendingAdd, e, t.KeyMask0); i >= 0 {
		t.PendingAdd[i] = match.Clone(e)
		return nil
	}

	if i := findEntry(t.PendingModify1, e, t.KeyMask0); i >= 0 {
		t.PendingModify1[i] = match.Clone(e)
		return nil
	}

	if i := findEntry(t.PendingDelete, e, t.KeyMask0); i >= 0 {
		old := t.PendingDelete[i]
		t.PendingDelete = removeAt(t.PendingDelete, i)
		t.PendingModify0 = append(t.PendingModify0, old)
		t.PendingModify1 = append(t.PendingModify1, match.Clone(e))
		return nil
	}

	t.PendingAdd = append(t.PendingAdd, match.Clone(e))
	return nil
}

// Delete stages e's key for removal per the del() transition table in
// spec §4.C. Action data on e is ignored.
func (t *Table) Delete(e *match.Entry) error {
	if err := t.Validate(e, true); err != nil {
		return err
	}

	if i := findEntry(t.Entries, e, t.KeyMask0); i >= 0 {
		old := t.Entries[i]
		t.Entries = removeAt(t.Entries, i)
		t.PendingDelete = append(t.PendingDelete, old)
		return nil
	}

	if i := findEntry(t.PendingAdd, e, t.KeyMask0); i >= 0 {
		t.PendingAdd = removeAt(t.PendingAdd, i)
		return nil
	}

	if i := findEntry(t.PendingModify1, e, t.KeyMask0); i >= 0 {
		// pending_modify0[i]/pending_modify1[i] are paired by index.
		t.PendingModify1 = removeAt(t.PendingModify1, i)
		old0 := t.PendingModify0[i]
		t.PendingModify0 = removeAt(t.PendingModify0, i)
		t.PendingDelete = append(t.PendingDelete, old0)
		return nil
	}

	// Found in pending_delete, or not found at all: no-op.
	return nil
}

// DefaultAdd stages a replacement default action, rejecting tables whose
// default is declared constant.
func (t *Table) DefaultAdd(e *match.Entry) error {
	if err := t.ValidateDefault(e); err != nil {
		return err
	}
	t.PendingDefault = match.Clone(e)
	return nil
}

// Abort discards all staged work for this table, per spec §4.E: free
// pending_add; free pending_modify1; fold pending_modify0 and
// pending_delete back into entries; free pending_default.
func (t *Table) Abort() {
	t.PendingAdd = t.PendingAdd[:0]
	t.PendingModify1 = t.PendingModify1[:0]
	t.Entries = append(t.Entries, t.PendingModify0...)
	t.PendingModify0 = t.PendingModify0[:0]
	t.Entries = append(t.Entries, t.PendingDelete...)
	t.PendingDelete = t.PendingDelete[:0]
	t.PendingDefault = nil
}

// HasPendingWork reports whether any staging set (optionally including
// pending_default) carries work for a commit to apply.
func (t *Table) HasPendingWork(considerDefault bool) bool {
	if len(t.PendingAdd) > 0 || len(t.PendingModify1) > 0 || len(t.PendingDelete) > 0 {
		return true
	}
	return considerDefault && t.PendingDefault != nil
}
