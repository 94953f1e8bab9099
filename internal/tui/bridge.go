package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"globemap/internal/engine"
)

type frameMsg struct{ frame engine.Frame }

// Bridge is the engine renderer for a tea.Program. Frames produced before
// a program is attached are dropped.
type Bridge struct {
	p atomic.Pointer[tea.Program]
}

func (b *Bridge) Attach(p *tea.Program) { b.p.Store(p) }

// Render hands the frame to the program's event loop. It blocks until the
// loop accepts it or the program has exited.
func (b *Bridge) Render(f engine.Frame) {
	if p := b.p.Load(); p != nil {
		p.Send(frameMsg{frame: f})
	}
}
