package engine

import (
	"strings"
	"sync"

	"globemap/internal/isocode"
)

// Color is a "#RRGGBB" string.
type Color string

// Palette picks fills. Selection beats status, status beats visited.
type Palette struct {
	Default  Color
	Selected Color
	Visited  Color
	Status   map[Status]Color
}

func DefaultPalette() Palette {
	return Palette{
		Default:  "#3B4A5A",
		Selected: "#7C3AED",
		Visited:  "#22C55E",
		Status: map[Status]Color{
			StatusWishlist: "#F59E0B",
			StatusPlanned:  "#38BDF8",
			StatusVisited:  "#22C55E",
			StatusLived:    "#EC4899",
		},
	}
}

// colorBook holds the data-layer inputs used for color selection. Codes
// are stored as alpha-3 where the table knows them.
type colorBook struct {
	palette Palette
	table   *isocode.Table

	mu       sync.RWMutex
	statuses map[string]Status
	visited  map[string]struct{}
}

func newColorBook(p Palette, t *isocode.Table) *colorBook {
	if t == nil {
		t = isocode.Default()
	}
	return &colorBook{
		palette:  p,
		table:    t,
		statuses: make(map[string]Status),
		visited:  make(map[string]struct{}),
	}
}

func (b *colorBook) key(code string) string {
	if c, ok := b.table.ByCode(code); ok {
		return c.Alpha3
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

func (b *colorBook) setStatuses(m map[string]Status) {
	next := make(map[string]Status, len(m))
	for code, st := range m {
		next[b.key(code)] = st
	}
	b.mu.Lock()
	b.statuses = next
	b.mu.Unlock()
}

func (b *colorBook) setVisited(codes []string) {
	next := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		next[b.key(code)] = struct{}{}
	}
	b.mu.Lock()
	b.visited = next
	b.mu.Unlock()
}

func (b *colorBook) status(code string) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.statuses[b.key(code)]
}

func (b *colorBook) colorFor(code, selected string) Color {
	if code == "" {
		return b.palette.Default
	}
	k := b.key(code)
	if selected != "" && k == b.key(selected) {
		return b.palette.Selected
	}
	b.mu.RLock()
	st := b.statuses[k]
	_, visited := b.visited[k]
	b.mu.RUnlock()
	if c, ok := b.palette.Status[st]; ok && st != StatusNone {
		return c
	}
	if visited {
		return b.palette.Visited
	}
	return b.palette.Default
}
