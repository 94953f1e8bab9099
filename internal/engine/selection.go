package engine

import (
	"sync"

	"globemap/internal/geom"
)

// Selection is the current country. Transitioning is set while the camera
// flies to it after a programmatic zoom.
type Selection struct {
	ISO           string
	Feature       *geom.Feature
	Transitioning bool
}

type selector struct {
	mu        sync.Mutex
	cur       *Selection
	callbacks []func(*geom.Feature)
}

func (s *selector) onSelect(fn func(*geom.Feature)) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
}

func (s *selector) get() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return Selection{}, false
	}
	return *s.cur, true
}

func (s *selector) code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.ISO
}

// set replaces the selection (nil clears it) and notifies callbacks.
func (s *selector) set(sel *Selection) {
	s.mu.Lock()
	s.cur = sel
	fns := make([]func(*geom.Feature), len(s.callbacks))
	copy(fns, s.callbacks)
	s.mu.Unlock()

	var f *geom.Feature
	if sel != nil {
		f = sel.Feature
	}
	for _, fn := range fns {
		fn(f)
	}
}

// settle clears the transitioning flag.
func (s *selector) settle() {
	s.mu.Lock()
	if s.cur != nil {
		s.cur.Transitioning = false
	}
	s.mu.Unlock()
}
