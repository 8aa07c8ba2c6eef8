package swx

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/behrlich/go-swx/internal/backend"
	"github.com/behrlich/go-swx/internal/codec"
	"github.com/behrlich/go-swx/internal/commit"
	"github.com/behrlich/go-swx/internal/constants"
	"github.com/behrlich/go-swx/internal/dup"
	"github.com/behrlich/go-swx/internal/logging"
	"github.com/behrlich/go-swx/internal/stage"
	"github.com/behrlich/go-swx/match"
)

// ActionSpec describes one action a table accepts: its human-readable
// name (used by the text codec) and the byte size of its action data.
type ActionSpec struct {
	Name     string
	DataSize int
}

// TableParams describes one table at pipeline_create time.
type TableParams struct {
	Name                 string
	Fields               []match.Field
	Actions              map[int]ActionSpec
	DefaultActionIsConst bool
	Ops                  backend.Ops // nil is only valid for a stub table
	Capacity             int
}

// PipelineParams is the full construction input for a Controller.
type PipelineParams struct {
	Tables   []TableParams
	NumaNode int

	// NumaCPUs, if non-empty, pins the goroutine running PipelineCommit
	// to this CPU set for the duration of the commit (rollfwd0 through
	// rollfwd2), keeping the single-writer control-plane thread on the
	// same NUMA node as NumaNode's backend objects. Nil means no pinning.
	NumaCPUs []int
}

// TableInfo is a read-only snapshot of a table's static shape, the
// SPEC_FULL.md-supplemented accessor mirrored from the original
// implementation's table introspection call.
type TableInfo struct {
	Name           string
	MatchType      match.MatchType
	IsStub         bool
	KeySize        int
	ActionDataSize int
	EntryCount     int
}

type tableHandle struct {
	params  TableParams
	runtime *commit.TableRuntime
	schema  codec.Schema
}

// Controller owns a pipeline's tables, their staging sets, and the
// commit engine that publishes them. It assumes single-writer access:
// no internal locking is performed, matching the allocator's model.
type Controller struct {
	logger   *logging.Logger
	tables   []*tableHandle
	byName   map[string]int
	engine   *commit.Engine
	observer Observer
}

// SetObserver installs obs to receive control-plane events (entry
// stages, commits, aborts). Passing nil restores the no-op default.
func (c *Controller) SetObserver(obs Observer) {
	if obs == nil {
		obs = NoOpObserver{}
	}
	c.observer = obs
}

// SetQuiescence replaces the fixed post-swap grace sleep with fn, called
// once after the ts/ts_next pointer swap and before rollfwd0' begins.
// Passing nil restores the fixed-sleep default. See
// commit.NewBackoffQuiescence for a ready-made exponential-backoff fn.
func (c *Controller) SetQuiescence(fn func() error) {
	c.engine.Quiescence = fn
}

// Create builds a pipeline from params: constructs each table's staging
// state, validates its action table eagerly, and gives every
// non-stub table an initial backend object for both ts and ts_next.
func Create(params PipelineParams) (*Controller, error) {
	ctl := &Controller{
		logger:   logging.Default(),
		byName:   make(map[string]int, len(params.Tables)),
		observer: NoOpObserver{},
	}

	runtimes := make([]*commit.TableRuntime, 0, len(params.Tables))

	for _, tp := range params.Tables {
		if _, dup := ctl.byName[tp.Name]; dup {
			ctl.freeAll(runtimes)
			return nil, newErr("pipeline_create", tp.Name, ErrCodeInvalid, "duplicate table name")
		}

		actions := make(map[int]stage.ActionInfo, len(tp.Actions))
		for id, spec := range tp.Actions {
			if spec.DataSize < 0 || spec.DataSize > constants.MaxActionDataSize {
				ctl.freeAll(runtimes)
				return nil, newErr("pipeline_create", tp.Name, ErrCodeInvalid,
					fmt.Sprintf("action %q data_size %d out of range", spec.Name, spec.DataSize))
			}
			actions[id] = stage.ActionInfo{DataSize: spec.DataSize}
		}

		tbl := stage.New(tp.Name, tp.Fields, actions, tp.DefaultActionIsConst)

		beParams := backend.Params{
			KeySize:        tbl.KeySize,
			ActionDataSize: tbl.ActionDataSize,
			Capacity:       tp.Capacity,
		}

		ts := &commit.State{}
		tsNext := &commit.State{}
		if !tbl.IsStub && tp.Ops != nil {
			obj0, err := tp.Ops.Create(beParams, nil, params.NumaNode)
			if err != nil {
				ctl.freeAll(runtimes)
				return nil, wrapErr("pipeline_create", tp.Name, ErrCodeBackend, err)
			}
			obj1, err := tp.Ops.Create(beParams, nil, params.NumaNode)
			if err != nil {
				tp.Ops.Free(obj0)
				ctl.freeAll(runtimes)
				return nil, wrapErr("pipeline_create", tp.Name, ErrCodeBackend, err)
			}
			ts.Obj = obj0
			tsNext.Obj = obj1
		}

		rt := &commit.TableRuntime{
			Table:    tbl,
			Ops:      tp.Ops,
			Params:   beParams,
			NumaNode: params.NumaNode,
			Ts:       ts,
			TsNext:   tsNext,
		}
		runtimes = append(runtimes, rt)

		ctl.byName[tp.Name] = len(ctl.tables)
		ctl.tables = append(ctl.tables, &tableHandle{
			params:  tp,
			runtime: rt,
			schema:  schemaFor(tp),
		})
	}

	ctl.engine = commit.NewEngine(runtimes, ctl.logger)
	ctl.engine.NumaCPUs = params.NumaCPUs
	return ctl, nil
}

func schemaFor(tp TableParams) codec.Schema {
	defs := make([]codec.ActionDef, 0, len(tp.Actions))
	ids := make([]int, 0, len(tp.Actions))
	for id := range tp.Actions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		spec := tp.Actions[id]
		def := codec.ActionDef{Name: spec.Name, ID: id}
		if spec.DataSize > 0 {
			def.Args = []codec.ActionArg{{Name: "data", Size: spec.DataSize}}
		}
		defs = append(defs, def)
	}
	return codec.Schema{Fields: tp.Fields, Actions: defs}
}

func (c *Controller) freeAll(runtimes []*commit.TableRuntime) {
	for _, rt := range runtimes {
		if rt.Ops == nil {
			continue
		}
		if rt.Ts.Obj != nil {
			releaseClonedEntries(rt.Ts)
			rt.Ops.Free(rt.Ts.Obj)
		}
		if rt.TsNext.Obj != nil && rt.TsNext.Obj != rt.Ts.Obj {
			releaseClonedEntries(rt.TsNext)
			rt.Ops.Free(rt.TsNext.Obj)
		}
	}
}

// releaseClonedEntries returns a non-incremental State's pooled entry
// buffers before its backend object is freed. A no-op for incremental
// backends, whose States never populate ClonedEntries.
func releaseClonedEntries(s *commit.State) {
	for _, ce := range s.ClonedEntries {
		dup.ReleaseEntry(ce)
	}
}

// Free releases every table's staging sets and backend objects. The
// Controller must not be used after Free returns.
func (c *Controller) Free() {
	for _, h := range c.tables {
		rt := h.runtime
		if rt.Ops == nil {
			continue
		}
		if rt.Ts.Obj != nil {
			releaseClonedEntries(rt.Ts)
			rt.Ops.Free(rt.Ts.Obj)
		}
		if rt.TsNext.Obj != nil && rt.TsNext.Obj != rt.Ts.Obj {
			releaseClonedEntries(rt.TsNext)
			rt.Ops.Free(rt.TsNext.Obj)
		}
	}
	c.tables = nil
	c.byName = nil
}

func (c *Controller) lookup(name string) (*tableHandle, error) {
	i, ok := c.byName[name]
	if !ok {
		return nil, ErrUnknownTable
	}
	return c.tables[i], nil
}

func translateStageErr(op, table string, err error) error {
	switch err {
	case nil:
		return nil
	case stage.ErrStubMismatch:
		return newErr(op, table, ErrCodeInvalid, ErrStubMismatch.Msg)
	case stage.ErrMaskTooNarrow:
		return newErr(op, table, ErrCodeInvalid, ErrMaskTooNarrow.Msg)
	case stage.ErrUnknownAction:
		return newErr(op, table, ErrCodeInvalid, ErrUnknownAction.Msg)
	case stage.ErrActionDataMismatch:
		return newErr(op, table, ErrCodeInvalid, ErrActionDataMismatch.Msg)
	case stage.ErrDefaultIsConst:
		return newErr(op, table, ErrCodeInvalid, ErrDefaultIsConst.Msg)
	default:
		return wrapErr(op, table, ErrCodeInvalid, err)
	}
}

// TableEntryAdd stages e for addition against tableName.
func (c *Controller) TableEntryAdd(tableName string, e *match.Entry) error {
	h, err := c.lookup(tableName)
	if err != nil {
		return err
	}
	if err := translateStageErr("table_entry_add", tableName, h.runtime.Table.Add(e)); err != nil {
		return err
	}
	c.observer.ObserveEntryAdd()
	return nil
}

// TableEntryDelete stages e's key for deletion against tableName.
func (c *Controller) TableEntryDelete(tableName string, e *match.Entry) error {
	h, err := c.lookup(tableName)
	if err != nil {
		return err
	}
	if err := translateStageErr("table_entry_delete", tableName, h.runtime.Table.Delete(e)); err != nil {
		return err
	}
	c.observer.ObserveEntryDelete()
	return nil
}

// TableDefaultEntryAdd stages a replacement default action for tableName.
func (c *Controller) TableDefaultEntryAdd(tableName string, e *match.Entry) error {
	h, err := c.lookup(tableName)
	if err != nil {
		return err
	}
	if err := translateStageErr("table_default_entry_add", tableName, h.runtime.Table.DefaultAdd(e)); err != nil {
		return err
	}
	c.observer.ObserveDefaultUpdate()
	return nil
}

// PipelineCommit runs the commit engine across all tables.
func (c *Controller) PipelineCommit(abortOnFail bool) error {
	start := time.Now()
	err := c.engine.Commit(abortOnFail)
	c.observer.ObserveCommit(uint64(time.Since(start).Nanoseconds()), err != nil, err)
	if err != nil {
		return wrapErr("pipeline_commit", "", ErrCodeBackend, err)
	}
	return nil
}

// PipelineAbort discards all staged work across every table.
func (c *Controller) PipelineAbort() {
	c.engine.AbortAll()
	c.observer.ObserveAbort()
}

// TableEntryRead returns a defensive copy of tableName's committed
// entries (the live `entries` set, not staging).
func (c *Controller) TableEntryRead(tableName string) ([]*match.Entry, error) {
	h, err := c.lookup(tableName)
	if err != nil {
		return nil, err
	}
	out := make([]*match.Entry, len(h.runtime.Table.Entries))
	for i, e := range h.runtime.Table.Entries {
		out[i] = match.Clone(e)
	}
	return out, nil
}

// TableInfo returns a read-only snapshot of tableName's static shape
// and current committed entry count.
func (c *Controller) TableInfo(tableName string) (TableInfo, error) {
	h, err := c.lookup(tableName)
	if err != nil {
		return TableInfo{}, err
	}
	tbl := h.runtime.Table
	return TableInfo{
		Name:           tbl.Name,
		MatchType:      tbl.MatchType,
		IsStub:         tbl.IsStub,
		KeySize:        tbl.KeySize,
		ActionDataSize: tbl.ActionDataSize,
		EntryCount:     len(tbl.Entries),
	}, nil
}

// TableFprintf writes tableName's entries to w in the text codec
// format, one per line. Ordering is pinned: committed entries first,
// then pending_modify0 (the pre-modification copies still logically
// live until commit), then pending_delete — matching the original
// implementation's dump order so operators see what a read currently
// observes versus what a pending commit would change.
func (c *Controller) TableFprintf(w io.Writer, tableName string) error {
	h, err := c.lookup(tableName)
	if err != nil {
		return err
	}
	tbl := h.runtime.Table

	var b strings.Builder
	for _, e := range tbl.Entries {
		b.WriteString(codec.Emit(e, h.schema))
		b.WriteByte('\n')
	}
	for _, e := range tbl.PendingModify0 {
		b.WriteString(codec.Emit(e, h.schema))
		b.WriteByte('\n')
	}
	for _, e := range tbl.PendingDelete {
		b.WriteString(codec.Emit(e, h.schema))
		b.WriteByte('\n')
	}
	_, werr := io.WriteString(w, b.String())
	return werr
}

// ParseEntry parses one text-codec line against tableName's schema.
func (c *Controller) ParseEntry(tableName, line string) (e *match.Entry, blank bool, err error) {
	h, lookupErr := c.lookup(tableName)
	if lookupErr != nil {
		return nil, false, lookupErr
	}
	e, blank, err = codec.Parse(line, h.schema)
	if err != nil {
		return nil, false, newErr("parse_entry", tableName, ErrCodeInvalid, err.Error())
	}
	return e, blank, nil
}
