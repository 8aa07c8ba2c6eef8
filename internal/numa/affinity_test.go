package numa

import "testing"

func TestBindCurrentThreadNoCPUsIsNoop(t *testing.T) {
	unlock, err := BindCurrentThread(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unlock()
}
