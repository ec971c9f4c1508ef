package httpclient

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// pendingEntry is the abort handle of one in-flight request chain.
// Entries are compared by pointer so a reused id never releases a newer chain.
type pendingEntry struct {
	cancel context.CancelCauseFunc
}

// registry tracks in-flight request chains by id. Each entry is removed exactly
// once: either by cancel or by release when the chain completes.
type registry struct {
	entries sync.Map // string -> *pendingEntry
	size    atomic.Int64
	seq     atomic.Uint64
}

// register records cancel under id, replacing any entry still pending under the same id
func (r *registry) register(id string, cancel context.CancelCauseFunc) *pendingEntry {
	e := &pendingEntry{cancel: cancel}
	if _, replaced := r.entries.Swap(id, e); !replaced {
		r.size.Add(1)
	}
	return e
}

// cancel aborts and removes the entry under id. Unknown ids are a no-op.
func (r *registry) cancel(id string) bool {
	v, ok := r.entries.LoadAndDelete(id)
	if !ok {
		return false
	}
	r.size.Add(-1)
	v.(*pendingEntry).cancel(ErrRequestCancelled)
	return true
}

// release removes e if it is still the entry registered under id
func (r *registry) release(id string, e *pendingEntry) {
	if r.entries.CompareAndDelete(id, e) {
		r.size.Add(-1)
	}
}

func (r *registry) len() int {
	return int(r.size.Load())
}

// newID derives an identifier from method, path and the current time.
// The sequence suffix keeps ids unique on coarse clocks.
func (r *registry) newID(method, path string) string {
	return method + " " + path + " " + strconv.FormatInt(time.Now().UnixNano(), 10) +
		"-" + strconv.FormatUint(r.seq.Add(1), 10)
}
