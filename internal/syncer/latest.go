// Package syncer keeps the render timeline, the gesture timeline and the
// asynchronous load timeline apart: the camera publishes into last-value-wins
// boxes, committed states drive regeneration, and a fixed-cadence loop reads
// whatever is newest.
package syncer

import "sync/atomic"

// Latest is a last-value-wins box for one writer and any number of readers.
// Load never allocates.
type Latest[T any] struct {
	p atomic.Pointer[T]
}

func (l *Latest[T]) Store(v T) { l.p.Store(&v) }

// Load returns the newest value; ok is false before the first Store.
func (l *Latest[T]) Load() (v T, ok bool) {
	p := l.p.Load()
	if p == nil {
		return v, false
	}
	return *p, true
}

// Clear drops the value.
func (l *Latest[T]) Clear() { l.p.Store(nil) }
