package source

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/roach88/nimbus/internal/wheel"
)

// KeyHandler receives key events from a Terminal source. Returning true
// stops the source.
type KeyHandler func(ev *tcell.EventKey) (stop bool)

// cellCounts is the drag motion, in counts, of one terminal cell.
const cellCounts = wheel.DragCountsPerNotch

// Terminal reads wheel events from a tcell screen. Each wheel report is
// one notch, and moving the pointer with the middle button held drags one
// notch per cell. The screen must already be initialised with mouse
// reporting enabled.
type Terminal struct {
	screen tcell.Screen
	clock  Clock
	keys   KeyHandler
	resize func()
	drag   dragger
}

// NewTerminal creates a source over screen. keys may be nil, in which case
// Escape, Ctrl-C and q stop the source.
func NewTerminal(screen tcell.Screen, keys KeyHandler, opts ...Option) *Terminal {
	o := buildOptions(opts)
	if keys == nil {
		keys = QuitKeys
	}
	return &Terminal{screen: screen, clock: o.clock, keys: keys}
}

// OnResize registers fn to run on terminal resize.
func (t *Terminal) OnResize(fn func()) {
	t.resize = fn
}

// QuitKeys stops on Escape, Ctrl-C and q.
func QuitKeys(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}

// Run forwards wheel events until ctx is done, a key handler asks to stop,
// or the screen is finalised.
func (t *Terminal) Run(ctx context.Context, sink Sink, gate Gate) error {
	t.drag.reset()
	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(events)
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventMouse:
				if gate.Paused() {
					t.drag.reset()
					continue
				}
				for _, imp := range t.mouseImpulses(ev, t.clock.Now()) {
					sink.Offer(imp)
				}
			case *tcell.EventKey:
				if t.keys(ev) {
					return nil
				}
			case *tcell.EventResize:
				if t.resize != nil {
					t.resize()
				}
			}
		}
	}
}

const wheelButtons = tcell.WheelUp | tcell.WheelDown | tcell.WheelLeft | tcell.WheelRight

// mouseImpulses maps one mouse report to wheel and drag impulses.
func (t *Terminal) mouseImpulses(ev *tcell.EventMouse, at time.Time) []wheel.Impulse {
	buttons := ev.Buttons()
	out := wheelImpulses(buttons, at)

	x, y := ev.Position()
	x, y = x*cellCounts, y*cellCounts
	switch held := buttons&tcell.ButtonMiddle != 0; {
	case held && !t.drag.active:
		t.drag.press(x, y)
	case held:
		out = append(out, t.drag.move(x, y, at)...)
	case buttons&wheelButtons == 0:
		out = append(out, t.drag.release(at)...)
	}
	return out
}

// wheelImpulses maps tcell wheel buttons to impulses. Up and right are
// positive.
func wheelImpulses(buttons tcell.ButtonMask, at time.Time) []wheel.Impulse {
	var out []wheel.Impulse
	if buttons&tcell.WheelUp != 0 {
		out = append(out, wheel.Impulse{Axis: wheel.Vertical, Delta: 1, At: at})
	}
	if buttons&tcell.WheelDown != 0 {
		out = append(out, wheel.Impulse{Axis: wheel.Vertical, Delta: -1, At: at})
	}
	if buttons&tcell.WheelLeft != 0 {
		out = append(out, wheel.Impulse{Axis: wheel.Horizontal, Delta: -1, At: at})
	}
	if buttons&tcell.WheelRight != 0 {
		out = append(out, wheel.Impulse{Axis: wheel.Horizontal, Delta: 1, At: at})
	}
	return out
}
