// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Contains ProgressRegistry, the process-wide map from upload id to
// byte-level progress counters (§4.A).

package upload

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrDuplicateUpload is returned by ProgressRegistry.Insert when the
// given id is already present.
var ErrDuplicateUpload = errors.New("duplicate upload id")

// ErrProgressNotFound is returned by ProgressRegistry.Snapshot when the
// id is unknown, including after it has been removed.
var ErrProgressNotFound = errors.New("no progress for this id")

// ProgressCounter tracks one upload's byte-level progress.
// Uploaded is monotonically nondecreasing and may slightly exceed Total
// because HTTP framing bytes are counted alongside body bytes.
type ProgressCounter struct {
	Uploaded int64
	Total    int64
}

// Handle is a borrowed reference into a live ProgressRegistry entry,
// returned by Insert and consumed by Bump.
type Handle struct {
	counter *ProgressCounter
}

// ProgressRegistry is the single synchronization point between
// request-processing goroutines (which bump counters) and the
// read-only progress endpoint (which snapshots them). A mutex guards
// map membership; individual counter updates are lock-free atomic
// adds, matching the coarse-grained-lock semantics §5 requires.
type ProgressRegistry struct {
	mu      sync.Mutex
	entries map[string]*ProgressCounter
	log     zerolog.Logger
}

// NewProgressRegistry creates an empty registry.
func NewProgressRegistry(log zerolog.Logger) *ProgressRegistry {
	return &ProgressRegistry{
		entries: make(map[string]*ProgressCounter),
		log:     log,
	}
}

// Insert allocates a counter for id with the given total, failing if id
// is already present.
func (r *ProgressRegistry) Insert(id string, total int64) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return Handle{}, errors.Wrapf(ErrDuplicateUpload, "id %q", id)
	}

	c := &ProgressCounter{Total: total}
	r.entries[id] = c
	r.log.Debug().Str("progress_id", id).Int64("total", total).Int("live", len(r.entries)).Msg("progress registered")
	return Handle{counter: c}, nil
}

// Bump atomically adds delta to the counter's Uploaded field.
func (r *ProgressRegistry) Bump(h Handle, delta int64) {
	if h.counter == nil {
		return
	}
	atomic.AddInt64(&h.counter.Uploaded, delta)
}

// Snapshot copies the current values for id.
func (r *ProgressRegistry) Snapshot(id string) (ProgressCounter, error) {
	r.mu.Lock()
	c, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return ProgressCounter{}, errors.Wrapf(ErrProgressNotFound, "id %q", id)
	}
	return ProgressCounter{
		Uploaded: atomic.LoadInt64(&c.Uploaded),
		Total:    atomic.LoadInt64(&c.Total),
	}, nil
}

// Remove drops id from the registry. Safe to call even if id is
// already absent.
func (r *ProgressRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}
