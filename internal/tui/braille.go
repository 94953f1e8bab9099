package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"globemap/internal/engine"
)

// brailleBuf is a cell grid where each cell holds a 2x4 micro-pixel mask
// and the color of the last shape drawn into it.
type brailleBuf struct {
	w, h int       // in cells
	m    [][]uint8 // per-cell 8-bit mask
	c    [][]engine.Color
}

func newBrailleBuf(w, h int) *brailleBuf {
	m := make([][]uint8, h)
	c := make([][]engine.Color, h)
	for i := range m {
		m[i] = make([]uint8, w)
		c[i] = make([]engine.Color, w)
	}
	return &brailleBuf{w: w, h: h, m: m, c: c}
}

// dot bits indexed by [column][row] inside a cell.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// setPixel sets a micro-pixel at micro coords (2x4 per cell)
func (b *brailleBuf) setPixel(mx, my int, col engine.Color) {
	if mx < 0 || my < 0 {
		return
	}
	cx, rx := mx/2, mx%2
	cy, ry := my/4, my%4
	if cy >= b.h || cx >= b.w {
		return
	}
	b.m[cy][cx] |= brailleBits[rx][ry]
	if col != "" {
		b.c[cy][cx] = col
	}
}

// drawLineMicro draws a line on the microgrid using Bresenham
func (b *brailleBuf) drawLineMicro(x0, y0, x1, y1 int, col engine.Color) {
	// both ends off the same side: nothing to draw
	wm, hm := b.w*2, b.h*4
	if (x0 < 0 && x1 < 0) || (y0 < 0 && y1 < 0) || (x0 >= wm && x1 >= wm) || (y0 >= hm && y1 >= hm) {
		return
	}
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.setPixel(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawRing outlines a closed ring.
func (b *brailleBuf) drawRing(r [][2]int, col engine.Color) {
	for i := 0; i+1 < len(r); i++ {
		b.drawLineMicro(r[i][0], r[i][1], r[i+1][0], r[i+1][1], col)
	}
}

// shadeRings fills the interior of rings with the even-odd rule, so holes
// stay open. Only every other micro-pixel is set to keep borders readable.
func (b *brailleBuf) shadeRings(rings [][][2]int, col engine.Color) {
	minY, maxY := b.h*4, -1
	for _, r := range rings {
		for _, p := range r {
			minY = min(minY, p[1])
			maxY = max(maxY, p[1])
		}
	}
	minY = max(minY, 0)
	maxY = min(maxY, b.h*4-1)
	var xs []int
	for y := minY; y <= maxY; y++ {
		xs = xs[:0]
		for _, r := range rings {
			for i := 0; i+1 < len(r); i++ {
				a, c := r[i], r[i+1]
				if a[1] == c[1] { // horizontal edge: skip
					continue
				}
				if (y >= a[1] && y < c[1]) || (y >= c[1] && y < a[1]) {
					t := float64(y-a[1]) / float64(c[1]-a[1])
					xs = append(xs, int(float64(a[0])+t*float64(c[0]-a[0])))
				}
			}
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			b.shadeSpan(xs[i], xs[i+1], y, col)
		}
	}
}

// shadeTriangle fills a projected triangle with the same pattern as
// shadeRings.
func (b *brailleBuf) shadeTriangle(t [3][2]int, col engine.Color) {
	ring := [][2]int{t[0], t[1], t[2], t[0]}
	b.shadeRings([][][2]int{ring}, col)
}

func (b *brailleBuf) shadeSpan(x0, x1, y int, col engine.Color) {
	x0 = max(x0, 0)
	x1 = min(x1, b.w*2-1)
	for x := x0; x <= x1; x++ {
		if (x+y)%2 == 0 {
			b.setPixel(x, y, col)
		}
	}
}

// toLines renders the grid, one styled run per color change.
func (b *brailleBuf) toLines() []string {
	styles := map[engine.Color]lipgloss.Style{}
	out := make([]string, b.h)
	for y := 0; y < b.h; y++ {
		var sb strings.Builder
		var run []rune
		var runCol engine.Color
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runCol == "" {
				sb.WriteString(string(run))
			} else {
				st, ok := styles[runCol]
				if !ok {
					st = lipgloss.NewStyle().Foreground(lipgloss.Color(string(runCol)))
					styles[runCol] = st
				}
				sb.WriteString(st.Render(string(run)))
			}
			run = run[:0]
		}
		for x := 0; x < b.w; x++ {
			mask := b.m[y][x]
			r, col := ' ', engine.Color("")
			if mask != 0 {
				r, col = rune(0x2800+int(mask)), b.c[y][x]
			}
			if col != runCol {
				flush()
				runCol = col
			}
			run = append(run, r)
		}
		flush()
		out[y] = sb.String()
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
