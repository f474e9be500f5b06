// ABOUTME: Terminal waveform renderer using block characters and lipgloss styles
// ABOUTME: Shares peak extraction and overlay geometry with the raster renderer
package render

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	blockChar    = "█"
	midChar      = "·"
	playheadChar = "│"
)

// TerminalRenderer draws frames as a grid of styled cells
type TerminalRenderer struct {
	Wave      lipgloss.Style
	WaveLow   lipgloss.Style
	Mid       lipgloss.Style
	Selection lipgloss.Style
	Playhead  lipgloss.Style
}

// NewTerminalRenderer returns a renderer using the waveform palette
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{
		Wave:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5ad1ff")),
		WaveLow:   lipgloss.NewStyle().Foreground(lipgloss.Color("#1f9cff")),
		Mid:       lipgloss.NewStyle().Foreground(lipgloss.Color("#2a5d73")),
		Selection: lipgloss.NewStyle().Background(lipgloss.Color("#0f3a4d")),
		Playhead:  lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true),
	}
}

type cellKind int

const (
	cellEmpty cellKind = iota
	cellMid
	cellWaveTop
	cellWaveBottom
	cellPlayhead
)

type cell struct {
	kind     cellKind
	selected bool
}

// Render draws frame into a cols x rows block of text
func (t *TerminalRenderer) Render(frame Frame, cols, rows int) (string, Result) {
	if len(frame.Samples) == 0 {
		return "", Result{}
	}
	res := Result{HasWaveform: true}
	if cols < 2 || rows < 2 {
		return "", res
	}
	res.Drawn = true

	grid := t.layout(frame, cols, rows, &res)

	var b strings.Builder
	for r, row := range grid {
		if r > 0 {
			b.WriteByte('\n')
		}
		t.writeRow(&b, row)
	}
	return b.String(), res
}

func (t *TerminalRenderer) layout(frame Frame, cols, rows int, res *Result) [][]cell {
	heights := NormalizedHeights(frame.Samples, cols)
	mid := float64(rows) / 2
	midRow := rows / 2

	grid := make([][]cell, rows)
	for r := range grid {
		grid[r] = make([]cell, cols)
		y := float64(r) + 0.5
		for c, h := range heights {
			switch {
			case math.Abs(y-mid) < h*mid+0.5 && h > 0:
				if y < mid {
					grid[r][c].kind = cellWaveTop
				} else {
					grid[r][c].kind = cellWaveBottom
				}
			case r == midRow:
				grid[r][c].kind = cellMid
			}
		}
	}

	if left, right, ok := frame.SelectionSpan(float64(cols)); ok {
		res.SelectionVisible = true
		res.SelectionLeft = left
		res.SelectionRight = right
		for c := int(math.Floor(left)); c < int(math.Ceil(right)) && c < cols; c++ {
			for r := range grid {
				grid[r][c].selected = true
			}
		}
	}

	if x, ok := frame.PlayheadPosition(float64(cols)); ok {
		res.PlayheadVisible = true
		res.PlayheadX = x
		col := int(math.Floor(x))
		if col >= cols {
			col = cols - 1
		}
		for r := range grid {
			grid[r][col].kind = cellPlayhead
		}
	}

	return grid
}

// writeRow renders runs of identical cells with a single style call each
func (t *TerminalRenderer) writeRow(b *strings.Builder, row []cell) {
	start := 0
	for i := 1; i <= len(row); i++ {
		if i < len(row) && row[i] == row[start] {
			continue
		}
		b.WriteString(t.styleFor(row[start]).Render(strings.Repeat(t.glyph(row[start].kind), i-start)))
		start = i
	}
}

func (t *TerminalRenderer) glyph(k cellKind) string {
	switch k {
	case cellWaveTop, cellWaveBottom:
		return blockChar
	case cellMid:
		return midChar
	case cellPlayhead:
		return playheadChar
	default:
		return " "
	}
}

func (t *TerminalRenderer) styleFor(c cell) lipgloss.Style {
	var s lipgloss.Style
	switch c.kind {
	case cellWaveTop:
		s = t.Wave
	case cellWaveBottom:
		s = t.WaveLow
	case cellMid:
		s = t.Mid
	case cellPlayhead:
		s = t.Playhead
	default:
		s = lipgloss.NewStyle()
	}
	if c.selected {
		s = s.Inherit(t.Selection)
	}
	return s
}
