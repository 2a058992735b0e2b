package dispatch

import (
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/roach88/nimbus/internal/wheel"
)

// Terminal scrolls a generated document on a tcell screen. It is the
// output half of `nimbus preview`.
//
// Offsets are kept in native wheel units; UnitsPerLine converts them to
// rows and columns. Positive vertical deltas scroll toward the top, like
// the native wheel.
type Terminal struct {
	mu           sync.Mutex
	screen       tcell.Screen
	lines        []string
	unitsPerLine float64
	offsetY      float64
	offsetX      float64
	status       string
}

// NewTerminal creates a viewport over lines. unitsPerLine <= 0 uses 40,
// i.e. three lines per native notch.
func NewTerminal(screen tcell.Screen, lines []string, unitsPerLine float64) *Terminal {
	if unitsPerLine <= 0 {
		unitsPerLine = wheel.NativeNotch / 3
	}
	return &Terminal{
		screen:       screen,
		lines:        lines,
		unitsPerLine: unitsPerLine,
	}
}

// SampleDocument returns n numbered lines for previewing.
func SampleDocument(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%5d  the quick brown fox jumps over the lazy dog %s", i+1, ruler(i))
	}
	return lines
}

func ruler(i int) string {
	const marks = "|....:....|....:....|....:....|"
	return marks[:10+i%20]
}

// Dispatch moves the viewport and redraws.
func (t *Terminal) Dispatch(tick wheel.OutputTick) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch tick.Axis {
	case wheel.Vertical:
		t.offsetY -= float64(tick.Delta)
	case wheel.Horizontal:
		t.offsetX += float64(tick.Delta)
	default:
		return &Failure{Tick: tick, Err: fmt.Errorf("unknown axis %d", tick.Axis)}
	}
	t.clamp()
	t.draw()
	return nil
}

// SetStatus sets the bottom status line and redraws.
func (t *Terminal) SetStatus(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	t.draw()
}

// TopLine returns the index of the first visible line.
func (t *Terminal) TopLine() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.offsetY / t.unitsPerLine)
}

// Redraw repaints the screen, e.g. after a resize.
func (t *Terminal) Redraw() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clamp()
	t.draw()
}

func (t *Terminal) clamp() {
	_, h := t.screen.Size()
	maxY := float64(len(t.lines)-h+1) * t.unitsPerLine
	t.offsetY = math.Max(0, math.Min(t.offsetY, math.Max(0, maxY)))
	t.offsetX = math.Max(0, math.Min(t.offsetX, 200*t.unitsPerLine))
}

func (t *Terminal) draw() {
	w, h := t.screen.Size()
	t.screen.Clear()

	top := int(t.offsetY / t.unitsPerLine)
	left := int(t.offsetX / t.unitsPerLine)
	text := tcell.StyleDefault
	for row := 0; row < h-1; row++ {
		idx := top + row
		if idx >= len(t.lines) {
			break
		}
		line := []rune(t.lines[idx])
		for col := 0; col < w && left+col < len(line); col++ {
			t.screen.SetContent(col, row, line[left+col], nil, text)
		}
	}

	bar := tcell.StyleDefault.Reverse(true)
	status := []rune(t.status)
	for col := 0; col < w; col++ {
		r := ' '
		if col < len(status) {
			r = status[col]
		}
		t.screen.SetContent(col, h-1, r, nil, bar)
	}
	t.screen.Show()
}
