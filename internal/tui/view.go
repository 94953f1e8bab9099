package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"globemap/internal/engine"
)

const (
	sidebarWidth = 28
	headerHeight = 1
	footerHeight = 2
)

// layout is the screen split shared by View and mouse handling.
type layout struct {
	width      int
	sidebarW   int
	mapX, mapY int
	mapW, mapH int
}

func (m Model) layout() layout {
	lo := layout{width: max(10, m.width)}
	contentHeight := max(4, m.height-headerHeight-footerHeight)
	if m.showSidebar {
		lo.sidebarW = sidebarWidth
		lo.mapX = sidebarWidth + 1
	}
	lo.mapY = headerHeight
	lo.mapW = max(10, lo.width-lo.sidebarW-1)
	lo.mapH = contentHeight
	return lo
}

// pixel converts a terminal cell to engine micro-pixels, at the centre of
// the cell's 2x4 block.
func (lo layout) pixel(cx, cy int) (x, y float64, inside bool) {
	x = float64(cx-lo.mapX)*2 + 1
	y = float64(cy-lo.mapY)*4 + 2
	inside = cx >= lo.mapX && cx < lo.mapX+lo.mapW && cy >= lo.mapY && cy < lo.mapY+lo.mapH
	return x, y, inside
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	lo := m.layout()

	// Header
	header := titleStyle.Render(fmt.Sprintf(" globemap ─ %s ", m.mode))
	header = lipgloss.NewStyle().Width(lo.width).Padding(0).Render(header)

	// Sidebar
	var sidebar string
	if m.showSidebar {
		sidebar = lipgloss.NewStyle().Width(lo.sidebarW).Render(m.l.View())
	}

	var mapView string
	switch {
	case m.showAttrs:
		tbl := m.tbl
		w := 0
		for _, c := range tbl.Columns() {
			w += c.Width + 3
		}
		maxW := min(lo.mapW, max(32, w))
		tbl.SetWidth(maxW - 4)
		tbl.SetHeight(min(lo.mapH-2, 20))
		body := tbl.View()
		if len(tbl.Rows()) == 0 {
			body = dimStyle.Render("no country selected")
		}
		attrsBox := boxStyle.Width(maxW).Render(body)
		mapView = lipgloss.Place(lo.mapW, lo.mapH, lipgloss.Center, lipgloss.Center, attrsBox)
	default:
		canvas := renderFrame(m.frames[m.mode], lo.mapW, lo.mapH)
		if m.gotoMode {
			ta := m.ta
			ta.SetWidth(min(lo.mapW-4, 60))
			box := boxStyle.Render(ta.View())
			canvas = lipgloss.Place(lo.mapW, lo.mapH, lipgloss.Center, lipgloss.Top, box)
		}
		mapView = lipgloss.NewStyle().Width(lo.mapW).Height(lo.mapH).Render(canvas)
	}

	var body string
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", mapView)
	} else {
		body = mapView
	}

	// Footer / help
	status := dimStyle.Render(" " + m.status + " ")
	left := lipgloss.JoinHorizontal(lipgloss.Bottom, status, m.renderHelp())
	right := m.readout()
	spacerW := max(0, lo.width-lipgloss.Width(left)-lipgloss.Width(right))
	readout := lipgloss.Place(spacerW+lipgloss.Width(right), 1, lipgloss.Right, lipgloss.Center, right)
	footer := lipgloss.NewStyle().Width(lo.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, left, readout))

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return appStyle.Width(lo.width).Height(m.height).Render(ui)
}

// readout is the zoom level plus the hovered lon/lat.
func (m Model) readout() string {
	parts := []string{}
	if v := m.view(); v != nil {
		parts = append(parts, fmt.Sprintf("zoom %.2fx", v.CurrentZoom()))
	}
	if m.hoverHasGeo {
		parts = append(parts, fmt.Sprintf("lon=%.4f lat=%.4f", m.hoverLon, m.hoverLat))
	}
	if m.loadErr[m.mode] != nil {
		parts = append(parts, "load failed, press R to retry")
	} else if f := m.frames[m.mode]; f.Mode == engine.ModeGlobe && f.AssetErr != nil {
		parts = append(parts, "globe asset unavailable, press R to retry")
	}
	return dimStyle.Render("  " + strings.Join(parts, "  ") + "  ")
}

func (m Model) renderHelp() string {
	if !m.helpVisible {
		return ""
	}
	keys := []string{
		"↑↓←→ pan",
		"+/- zoom",
		"r reset",
		"R retry",
		"g 2D/3D",
		"Tab list",
		"/ goto",
		"a attrs",
		"h help",
		"q quit",
	}
	return dimStyle.Render("  " + strings.Join(keys, "  "))
}
