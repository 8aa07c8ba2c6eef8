package commit

import (
	"testing"

	"github.com/behrlich/go-swx/internal/backend"
	"github.com/behrlich/go-swx/internal/stage"
	"github.com/behrlich/go-swx/match"
)

func TestNewBackoffQuiescenceRetriesUntilReady(t *testing.T) {
	polls := 0
	readyAt := 3
	check := NewBackoffQuiescence(func() bool {
		polls++
		return polls >= readyAt
	}, DefaultBackoff())

	if err := check(); err != nil {
		t.Fatalf("expected quiescence to settle, got %v", err)
	}
	if polls != readyAt {
		t.Fatalf("expected %d polls, got %d", readyAt, polls)
	}
}

func TestNewBackoffQuiescenceTimesOutWhenNeverReady(t *testing.T) {
	check := NewBackoffQuiescence(func() bool { return false }, DefaultBackoff())

	err := check()
	if err != ErrQuiescenceTimeout {
		t.Fatalf("expected ErrQuiescenceTimeout, got %v", err)
	}
}

func TestEngineUsesQuiescenceCallbackInsteadOfGraceSleep(t *testing.T) {
	obj := &incrementalObj{entries: map[string][]byte{}}
	fake := &incrementalFake{}
	rt := &TableRuntime{
		Table:  stage.New("t", []match.Field{{Offset: 0, Size: 4, Kind: match.FieldExact}}, map[int]stage.ActionInfo{1: {}}, false),
		Ops:    fake,
		Params: backend.Params{KeySize: 4},
		Ts:     &State{Obj: obj},
		TsNext: &State{Obj: obj},
	}

	eng := NewEngine([]*TableRuntime{rt}, nil)
	polls := 0
	eng.Quiescence = NewBackoffQuiescence(func() bool {
		polls++
		return true
	}, DefaultBackoff())

	if err := rt.Table.Add(&match.Entry{Key: []byte{1, 2, 3, 4}, ActionID: 1}); err != nil {
		t.Fatalf("stage add: %v", err)
	}
	if err := eng.Commit(false); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if polls == 0 {
		t.Fatal("expected the quiescence callback to be polled during commit")
	}
}
