// Package tui is the terminal front-end: a bubbletea program that draws
// engine frames on a braille canvas and feeds mouse input to the gesture
// recognizer.
package tui

import (
	"context"
	"fmt"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"globemap/internal/engine"
	"globemap/internal/geom"
	"globemap/internal/gesture"
)

// Engine is what the model needs from a map or globe view. *engine.Map
// and *engine.Globe both satisfy it.
type Engine interface {
	Load(ctx context.Context) error
	SetViewport(width, height float64)
	Pointer(ev gesture.Event)
	Scroll(x, y float64, steps int)
	ZoomToCountry(code string) error
	ResetView()
	Nudge(dx, dy float64)
	ZoomBy(factor float64)
	CurrentZoom() float64
	Locate(x, y float64) (lon, lat float64, ok bool)
	Features() *geom.FeatureCollection
	Selection() (engine.Selection, bool)
	Status(code string) engine.Status
}

// Options wires the model to its engines.
type Options struct {
	Map   Engine
	Globe Engine
	// Mode is the view shown first.
	Mode engine.Mode
	// NudgePixels is how far one arrow key pans, in micro-pixels.
	NudgePixels float64
	// ZoomStep is the factor applied by + and -.
	ZoomStep float64
}

type Model struct {
	ctx context.Context

	width  int
	height int

	showSidebar bool
	helpVisible bool

	status string

	views  [2]Engine
	mode   engine.Mode
	frames [2]engine.Frame
	loaded [2]bool
	// loadErr holds the last boundary load failure per mode until a retry.
	loadErr [2]error
	nudge   float64
	zstep   float64

	// Country list
	l     list.Model
	items []list.Item

	// goto mode
	gotoMode bool
	ta       textarea.Model

	// pointer state
	pressed bool

	// hover state
	hoverHasGeo bool
	hoverLon    float64
	hoverLat    float64

	// attributes table
	showAttrs bool
	tbl       table.Model
	selISO    string
}

func New(ctx context.Context, opts Options) Model {
	if opts.NudgePixels <= 0 {
		opts.NudgePixels = 16
	}
	if opts.ZoomStep <= 1 {
		opts.ZoomStep = 1.2
	}
	m := Model{
		ctx:         ctx,
		helpVisible: true,
		status:      "loading boundaries…",
		views:       [2]Engine{opts.Map, opts.Globe},
		mode:        opts.Mode,
		nudge:       opts.NudgePixels,
		zstep:       opts.ZoomStep,
	}
	// list setup
	d := list.NewDefaultDelegate()
	d.ShowDescription = true
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Countries"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)
	// textarea setup
	m.ta = textarea.New()
	m.ta.Placeholder = "ISO code or country name. Enter to fly there; Esc to cancel."
	m.ta.CharLimit = 64
	m.ta.ShowLineNumbers = false
	m.ta.SetWidth(50)
	m.ta.SetHeight(1)
	// attributes table setup
	m.tbl = table.New(table.WithFocused(true), table.WithColumns(attrColumns))
	m.tbl.SetHeight(12)
	return m
}

func (m Model) view() Engine { return m.views[m.mode] }

type loadedMsg struct {
	mode engine.Mode
	err  error
}

func (m Model) load(mode engine.Mode) tea.Cmd {
	v := m.views[mode]
	if v == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		return loadedMsg{mode: mode, err: v.Load(ctx)}
	}
}

// assetReloader is implemented by views whose mesh asset can be loaded
// again, i.e. *engine.Globe.
type assetReloader interface {
	ReloadAsset(ctx context.Context) error
}

type assetReloadedMsg struct {
	err error
}

func (m Model) reloadAsset() tea.Cmd {
	r, ok := m.views[engine.ModeGlobe].(assetReloader)
	if !ok {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		return assetReloadedMsg{err: r.ReloadAsset(ctx)}
	}
}

// retry re-issues whatever failed for the current mode: the boundary load
// first, then the globe asset.
func (m *Model) retry() tea.Cmd {
	if m.loadErr[m.mode] != nil {
		m.loadErr[m.mode] = nil
		m.status = fmt.Sprintf("reloading %s boundaries…", m.mode)
		return m.load(m.mode)
	}
	if m.mode == engine.ModeGlobe && m.frames[engine.ModeGlobe].AssetErr != nil {
		if cmd := m.reloadAsset(); cmd != nil {
			m.status = "reloading globe asset…"
			return cmd
		}
	}
	m.status = "nothing to retry"
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(engine.ModeMap), m.load(engine.ModeGlobe))
}
