// Package commit implements the table-state commit engine: the
// rollfwd0/rollfwd1/swap/rollfwd0'/rollfwd1'/rollfwd2 phase sequence
// that applies staged table changes to a not-yet-live state and then
// publishes it with a single pointer swap, with full rollback on
// backend failure.
package commit

import (
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/behrlich/go-swx/internal/backend"
	"github.com/behrlich/go-swx/internal/dup"
	"github.com/behrlich/go-swx/internal/logging"
	"github.com/behrlich/go-swx/internal/numa"
	"github.com/behrlich/go-swx/internal/stage"
	"github.com/behrlich/go-swx/match"
)

// State is one table's live-or-shadow slot: the backend object plus the
// default action, mirrored across ts and ts_next. ClonedEntries holds
// the dup-pooled entry list a non-incremental backend's Create built Obj
// from, if any; it travels with Obj across the ts/ts_next swap so the
// buffers can be returned to the pool at the exact point Obj is freed.
type State struct {
	Obj               any
	DefaultActionID   int
	DefaultActionData []byte
	ClonedEntries     []*match.Entry
}

// TableRuntime pairs a staging Table with the backend that implements it
// and the two State buffers (Ts, TsNext) the engine ping-pongs between
// on every successful commit.
type TableRuntime struct {
	Table    *stage.Table
	Ops      backend.Ops
	Params   backend.Params
	NumaNode int
	Ts       *State
	TsNext   *State
}

// Engine drives the commit protocol over a fixed set of tables.
type Engine struct {
	tables []*TableRuntime

	// Grace is the fixed sleep used when Quiescence is nil — a stand-in
	// for a formal reader-drain barrier (spec §5: "Grace via sleep is a
	// known imprecision").
	Grace time.Duration

	// Quiescence, if set, replaces the fixed sleep with a caller-supplied
	// wait (e.g. an RCU integration or a backoff-based poll built with
	// NewBackoffQuiescence).
	Quiescence func() error

	// NumaCPUs, if non-empty, pins the goroutine calling Commit to this
	// CPU set for the duration of the commit, so the single-writer
	// control-plane thread stays on the NUMA node its backend objects
	// were allocated on.
	NumaCPUs []int

	Logger *logging.Logger

	live atomic.Pointer[[]*State]
}

// NewEngine constructs an Engine over the given tables, defaulting Grace
// to 100 microseconds per spec §5.
func NewEngine(tables []*TableRuntime, logger *logging.Logger) *Engine {
	return &Engine{tables: tables, Grace: 100 * time.Microsecond, Logger: logger}
}

// Live returns the currently published per-table state array. Safe for
// concurrent readers; it is exactly what the dataplane dereferences.
func (e *Engine) Live() []*State {
	p := e.live.Load()
	if p == nil {
		return nil
	}
	return *p
}

type touchedTable struct {
	rt          *TableRuntime
	nAdd        int
	nModify     int
	nDelete     int
	incremental bool
}

// Commit runs the full commit protocol. On backend failure it rolls back
// every table touched so far (including the failing table's own partial
// progress) and, if abortOnFail is true, discards all staging sets
// exactly as Abort would.
func (e *Engine) Commit(abortOnFail bool) error {
	if len(e.NumaCPUs) > 0 {
		unlock, err := numa.BindCurrentThread(e.NumaCPUs)
		if err != nil {
			if e.Logger != nil {
				e.Logger.WarnPhase("*", "numa-bind", "failed to bind commit goroutine", "cpus", e.NumaCPUs, "err", err)
			}
		} else {
			defer unlock()
		}
	}

	var done []touchedTable
	var failErr error

	for _, rt := range e.tables {
		if !rt.Table.HasPendingWork(false) {
			continue
		}
		incremental := backend.IsIncremental(rt.Ops)
		nAdd, nModify, nDelete, err := applyDiff(rt, rt.TsNext, incremental)
		done = append(done, touchedTable{rt, nAdd, nModify, nDelete, incremental})
		if err != nil {
			failErr = err
			break
		}
		if e.Logger != nil {
			e.Logger.DebugPhase(rt.Table.Name, "rollfwd0", "staged diff applied",
				"add", nAdd, "modify", nModify, "delete", nDelete)
		}
	}

	if failErr != nil {
		for i := len(done) - 1; i >= 0; i-- {
			t := done[i]
			rollbackOne(t.rt, t.nAdd, t.nModify, t.nDelete, t.incremental)
			if e.Logger != nil {
				e.Logger.WarnPhase(t.rt.Table.Name, "rollback", "undid partial commit progress")
			}
		}
		if abortOnFail {
			e.AbortAll()
		}
		if e.Logger != nil {
			e.Logger.ErrorPhase("*", "rollfwd0", "commit failed", "err", failErr)
		}
		return failErr
	}

	for _, rt := range e.tables {
		applyDefault(rt.TsNext, rt.Table)
	}

	e.publish()

	for _, rt := range e.tables {
		if !rt.Table.HasPendingWork(false) {
			continue
		}
		incremental := backend.IsIncremental(rt.Ops)
		if incremental {
			adder := rt.Ops.(backend.Adder)
			deleter := rt.Ops.(backend.Deleter)
			if _, _, _, err := applyIncrementalDiff(adder, deleter, rt.TsNext, rt.Table); err != nil {
				// ts is already live; there is no spec-defined recovery
				// path for a post-swap failure on the converging shadow.
				if e.Logger != nil {
					e.Logger.ErrorPhase(rt.Table.Name, "rollfwd0-prime", "post-swap convergence failed", "err", err)
				}
			}
			continue
		}
		old := rt.TsNext.Obj
		if old != nil {
			for _, ce := range rt.TsNext.ClonedEntries {
				dup.ReleaseEntry(ce)
			}
			rt.Ops.Free(old)
		}
		rt.TsNext.Obj = rt.Ts.Obj
		rt.TsNext.ClonedEntries = rt.Ts.ClonedEntries
	}

	for _, rt := range e.tables {
		applyDefault(rt.TsNext, rt.Table)
	}

	for _, rt := range e.tables {
		tbl := rt.Table
		tbl.Entries = append(tbl.Entries, tbl.PendingAdd...)
		tbl.Entries = append(tbl.Entries, tbl.PendingModify1...)
		tbl.PendingAdd = tbl.PendingAdd[:0]
		tbl.PendingModify0 = tbl.PendingModify0[:0]
		tbl.PendingModify1 = tbl.PendingModify1[:0]
		tbl.PendingDelete = tbl.PendingDelete[:0]
		tbl.PendingDefault = nil
	}

	return nil
}

// AbortAll discards staging for every table, per Table.Abort.
func (e *Engine) AbortAll() {
	for _, rt := range e.tables {
		rt.Table.Abort()
	}
}

func applyDiff(rt *TableRuntime, target *State, incremental bool) (nAdd, nModify, nDelete int, err error) {
	if incremental {
		adder := rt.Ops.(backend.Adder)
		deleter := rt.Ops.(backend.Deleter)
		return applyIncrementalDiff(adder, deleter, target, rt.Table)
	}

	tbl := rt.Table
	total := len(tbl.Entries) + len(tbl.PendingAdd) + len(tbl.PendingModify1)
	list := make([]*match.Entry, 0, total)
	for _, e := range tbl.Entries {
		list = append(list, dup.CloneEntry(e))
	}
	for _, e := range tbl.PendingAdd {
		list = append(list, dup.CloneEntry(e))
	}
	for _, e := range tbl.PendingModify1 {
		list = append(list, dup.CloneEntry(e))
	}

	obj, cerr := rt.Ops.Create(rt.Params, list, rt.NumaNode)
	if cerr != nil {
		for _, e := range list {
			dup.ReleaseEntry(e)
		}
		return 0, 0, 0, pkgerrors.Wrapf(cerr, "commit: create failed for table %s", tbl.Name)
	}
	target.Obj = obj
	target.ClonedEntries = list
	return 0, 0, 0, nil
}

func applyIncrementalDiff(adder backend.Adder, deleter backend.Deleter, target *State, tbl *stage.Table) (nAdd, nModify, nDelete int, err error) {
	for _, e := range tbl.PendingAdd {
		if err := adder.Add(target.Obj, e); err != nil {
			return nAdd, nModify, nDelete, pkgerrors.Wrapf(err, "commit: add failed for table %s", tbl.Name)
		}
		nAdd++
	}
	for _, e := range tbl.PendingModify1 {
		if err := adder.Add(target.Obj, e); err != nil {
			return nAdd, nModify, nDelete, pkgerrors.Wrapf(err, "commit: modify-add failed for table %s", tbl.Name)
		}
		nModify++
	}
	for _, e := range tbl.PendingDelete {
		if err := deleter.Del(target.Obj, e); err != nil {
			return nAdd, nModify, nDelete, pkgerrors.Wrapf(err, "commit: delete failed for table %s", tbl.Name)
		}
		nDelete++
	}
	return nAdd, nModify, nDelete, nil
}

// rollbackOne undoes exactly the work applyDiff counted, per spec §4.E.
// Rollback calls are best-effort and never themselves abort the
// rollback: the protocol guarantees rollback cannot fail.
func rollbackOne(rt *TableRuntime, nAdd, nModify, nDelete int, incremental bool) {
	tbl := rt.Table
	if incremental {
		adder, _ := rt.Ops.(backend.Adder)
		deleter, _ := rt.Ops.(backend.Deleter)
		for i := 0; i < nDelete && i < len(tbl.PendingDelete); i++ {
			_ = adder.Add(rt.TsNext.Obj, tbl.PendingDelete[i])
		}
		for i := 0; i < nModify && i < len(tbl.PendingModify0); i++ {
			_ = adder.Add(rt.TsNext.Obj, tbl.PendingModify0[i])
		}
		for i := 0; i < nAdd && i < len(tbl.PendingAdd); i++ {
			_ = deleter.Del(rt.TsNext.Obj, tbl.PendingAdd[i])
		}
		return
	}

	// Non-incremental: free the freshly built object before reinstating
	// ts.obj, per the open-question decision in SPEC_FULL.md.
	if rt.TsNext.Obj != nil && rt.TsNext.Obj != rt.Ts.Obj {
		for _, ce := range rt.TsNext.ClonedEntries {
			dup.ReleaseEntry(ce)
		}
		rt.Ops.Free(rt.TsNext.Obj)
	}
	rt.TsNext.Obj = rt.Ts.Obj
	rt.TsNext.ClonedEntries = rt.Ts.ClonedEntries
}

func applyDefault(state *State, tbl *stage.Table) {
	if tbl.PendingDefault == nil {
		return
	}
	state.DefaultActionID = tbl.PendingDefault.ActionID
	state.DefaultActionData = append([]byte(nil), tbl.PendingDefault.ActionData...)
}

func (e *Engine) publish() {
	next := make([]*State, len(e.tables))
	for i, rt := range e.tables {
		next[i] = rt.TsNext
	}
	e.live.Store(&next)

	if e.Quiescence != nil {
		_ = e.Quiescence()
	} else {
		time.Sleep(e.Grace)
	}

	for _, rt := range e.tables {
		rt.Ts, rt.TsNext = rt.TsNext, rt.Ts
	}
}
