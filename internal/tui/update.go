package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"globemap/internal/engine"
	"globemap/internal/gesture"
	"globemap/internal/logging"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case loadedMsg:
		if msg.err != nil {
			m.loadErr[msg.mode] = msg.err
			m.status = fmt.Sprintf("%s load error: %v (R to retry)", msg.mode, msg.err)
			logging.Error().Err(msg.err).Str("mode", msg.mode.String()).Msg("boundary load failed")
			return m, nil
		}
		m.loadErr[msg.mode] = nil
		m.loaded[msg.mode] = true
		if msg.mode == m.mode {
			m.refreshCountries()
			m.status = fmt.Sprintf("%d countries", len(m.items))
		}
		return m, nil
	case assetReloadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("globe asset error: %v (R to retry)", msg.err)
			logging.Warn().Err(msg.err).Msg("globe asset reload failed")
		} else {
			m.status = "globe asset reloaded"
		}
		return m, nil
	case frameMsg:
		m.frames[msg.frame.Mode] = msg.frame
		if msg.frame.Mode == m.mode {
			m.trackSelection(msg.frame)
		}
		return m, nil
	case tea.KeyMsg:
		// If list is visible and filtering, send keys to list and ignore global commands
		if m.showSidebar && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.gotoMode {
			return m.updateGoto(msg)
		}
		return m.updateKey(msg)
	case tea.MouseMsg:
		m.updateMouse(msg)
		return m, nil
	}
	// Pass messages to list when visible
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateGoto(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.gotoMode = false
		m.ta.Blur()
		return m, nil
	case "enter":
		in := strings.TrimSpace(m.ta.Value())
		if in == "" {
			m.status = "goto: empty"
			return m, nil
		}
		m.gotoMode = false
		m.ta.Blur()
		m.zoomTo(m.resolveGoto(in))
		return m, nil
	}
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.view()
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "+", "=":
		v.ZoomBy(m.zstep)
	case "-", "_":
		v.ZoomBy(1 / m.zstep)
	case "r":
		v.ResetView()
		m.status = "view reset"
	case "R":
		cmd := m.retry()
		return m, cmd
	case "g":
		m.toggleMode()
	case "tab":
		m.showSidebar = !m.showSidebar
		m.resize()
	case "/":
		m.gotoMode = true
		m.ta.SetValue("")
		m.ta.Focus()
		m.status = "goto"
	case "h":
		m.helpVisible = !m.helpVisible
	case "a":
		m.showAttrs = !m.showAttrs
		if m.showAttrs {
			sel, ok := v.Selection()
			m.refreshAttrs(sel, ok)
		}
	case "esc":
		m.showAttrs = false
	case "enter":
		if m.showSidebar {
			if it, ok := m.l.SelectedItem().(countryItem); ok {
				m.zoomTo(it.code)
			}
		}
	case "up", "down":
		if m.showAttrs {
			var cmd tea.Cmd
			m.tbl, cmd = m.tbl.Update(msg)
			return m, cmd
		}
		if m.showSidebar {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if msg.String() == "up" {
			v.Nudge(0, -m.nudge)
		} else {
			v.Nudge(0, m.nudge)
		}
	case "left":
		v.Nudge(-m.nudge, 0)
	case "right":
		v.Nudge(m.nudge, 0)
	default:
		if m.showSidebar {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// updateMouse drives the gesture recognizer: left press/drag/release are
// one pointer, the wheel zooms about the cursor, and plain motion updates
// the hover readout.
func (m *Model) updateMouse(msg tea.MouseMsg) {
	if m.showAttrs || m.gotoMode {
		return
	}
	lo := m.layout()
	x, y, inside := lo.pixel(msg.X, msg.Y)
	v := m.view()
	now := time.Now()

	switch {
	case msg.Button == tea.MouseButtonWheelUp && inside:
		v.Scroll(x, y, 1)
	case msg.Button == tea.MouseButtonWheelDown && inside:
		v.Scroll(x, y, -1)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && inside:
		m.pressed = true
		v.Pointer(gesture.Event{Kind: gesture.Down, X: x, Y: y, Time: now})
	case msg.Action == tea.MouseActionMotion && m.pressed:
		v.Pointer(gesture.Event{Kind: gesture.Move, X: x, Y: y, Time: now})
	case msg.Action == tea.MouseActionRelease && m.pressed:
		m.pressed = false
		v.Pointer(gesture.Event{Kind: gesture.Up, X: x, Y: y, Time: now})
	}

	m.hoverHasGeo = false
	if inside {
		m.hoverLon, m.hoverLat, m.hoverHasGeo = v.Locate(x, y)
	}
}

// resize hands the canvas size, in micro-pixels, to both engines.
func (m *Model) resize() {
	lo := m.layout()
	if m.showSidebar {
		m.l.SetSize(sidebarWidth-2, lo.mapH-2)
	}
	w, h := float64(lo.mapW*2), float64(lo.mapH*4)
	for _, v := range m.views {
		if v != nil {
			v.SetViewport(w, h)
		}
	}
}

// toggleMode switches between map and globe, carrying the selection over.
func (m *Model) toggleMode() {
	next := engine.ModeGlobe
	if m.mode == engine.ModeGlobe {
		next = engine.ModeMap
	}
	if m.views[next] == nil {
		m.status = fmt.Sprintf("%s view unavailable", next)
		return
	}
	sel, had := m.view().Selection()
	m.mode = next
	m.selISO = ""
	m.pressed = false
	m.hoverHasGeo = false
	if m.loaded[next] {
		m.refreshCountries()
	}
	m.status = next.String()
	if had && m.loaded[next] {
		m.zoomTo(sel.ISO)
	}
}

func (m *Model) zoomTo(code string) {
	err := m.view().ZoomToCountry(code)
	switch {
	case err == nil:
		m.status = "→ " + code
	case errors.Is(err, engine.ErrUnknownCode):
		m.status = fmt.Sprintf("unknown country %q", code)
	case errors.Is(err, engine.ErrNotLoaded):
		m.status = "boundaries still loading"
	default:
		m.status = "goto error: " + err.Error()
	}
}

// trackSelection refreshes the attribute table when the frame's selection
// differs from the last one seen.
func (m *Model) trackSelection(f engine.Frame) {
	iso := ""
	if f.HasSelection {
		iso = f.Selection.ISO
	}
	if iso == m.selISO {
		return
	}
	m.selISO = iso
	m.refreshAttrs(f.Selection, f.HasSelection)
	if f.HasSelection && f.Selection.Feature != nil {
		m.status = fmt.Sprintf("%s (%s)", f.Selection.Feature.Name, iso)
	} else if iso == "" {
		m.status = "selection cleared"
	}
}
