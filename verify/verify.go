package verify

import (
	"context"
	"sync"
	"time"

	"github.com/bluemods/go-stabber/node"
)

// Append-only log of the stanzas received from the client.
//
// Verification calls block until a matching stanza arrives, the
// timeout elapses, the context ends or the store is shut down.
type Store struct {
	records []*node.Stanza
	// Closed and replaced every time a record is appended
	changed chan struct{}
	// Closed by Shutdown
	done   chan struct{}
	closed bool
	mutex  *sync.Mutex
}

func NewStore() *Store {
	return &Store{
		changed: make(chan struct{}),
		done:    make(chan struct{}),
		mutex:   &sync.Mutex{},
	}
}

// Stores a copy of s and wakes every pending verification.
func (v *Store) Record(s *node.Stanza) {
	cp := s.Copy()
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.records = append(v.records, cp)
	close(v.changed)
	v.changed = make(chan struct{})
}

// Reports whether the most recently received stanza matches target,
// waiting up to timeout for one that does.
func (v *Store) VerifyLast(ctx context.Context, target *node.Stanza, exact bool, timeout time.Duration) bool {
	return v.await(ctx, timeout, func(records []*node.Stanza) bool {
		return len(records) > 0 && records[len(records)-1].Matches(target, exact)
	})
}

// Reports whether any received stanza matches target,
// waiting up to timeout for one that does.
func (v *Store) VerifyAny(ctx context.Context, target *node.Stanza, exact bool, timeout time.Duration) bool {
	return v.await(ctx, timeout, func(records []*node.Stanza) bool {
		for _, s := range records {
			if s.Matches(target, exact) {
				return true
			}
		}
		return false
	})
}

func (v *Store) await(ctx context.Context, timeout time.Duration, check func([]*node.Stanza) bool) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		v.mutex.Lock()
		if v.closed {
			v.mutex.Unlock()
			return false
		}
		ok := check(v.records)
		changed, done := v.changed, v.done
		v.mutex.Unlock()

		if ok {
			return true
		}
		select {
		case <-changed:
		case <-done:
			return false
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// Fails every pending and future verification. Safe to call more than once.
func (v *Store) Shutdown() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if !v.closed {
		v.closed = true
		close(v.done)
	}
}

// Number of stanzas recorded so far.
func (v *Store) Len() int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return len(v.records)
}

// Returns a copy of the most recent stanza, or nil if nothing was received.
func (v *Store) Last() *node.Stanza {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if len(v.records) == 0 {
		return nil
	}
	return v.records[len(v.records)-1].Copy()
}

// Forgets every record and reopens a store that was shut down.
func (v *Store) Reset() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.records = nil
	if v.closed {
		v.closed = false
		v.done = make(chan struct{})
	}
}
