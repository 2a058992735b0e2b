package source

import (
	"time"

	"github.com/roach88/nimbus/internal/wheel"
)

// dragger turns middle-button drags into drag impulses.
//
// Pointer motion while the button is held is reported in counts: down and
// right are positive, so pulling the pointer down scrolls like rolling the
// wheel up. An anchored dragger measures every move against the press
// position, for sources whose pointer is held in place while dragging.
type dragger struct {
	anchored bool
	active   bool
	moved    bool
	x, y     int
}

func (d *dragger) press(x, y int) {
	d.active = true
	d.moved = false
	d.x, d.y = x, y
}

// move returns the impulses for a pointer move to x, y.
func (d *dragger) move(x, y int, at time.Time) []wheel.Impulse {
	if !d.active {
		return nil
	}
	dx, dy := x-d.x, y-d.y
	if !d.anchored {
		d.x, d.y = x, y
	}
	var out []wheel.Impulse
	if dy != 0 {
		out = append(out, wheel.Impulse{Axis: wheel.Vertical, Delta: dy, At: at, Kind: wheel.KindDrag})
	}
	if dx != 0 {
		out = append(out, wheel.Impulse{Axis: wheel.Horizontal, Delta: dx, At: at, Kind: wheel.KindDrag})
	}
	if len(out) > 0 {
		d.moved = true
	}
	return out
}

// release ends the drag. It returns a release impulse per axis, or nil if
// no drag was active.
func (d *dragger) release(at time.Time) []wheel.Impulse {
	if !d.active {
		return nil
	}
	d.active = false
	out := make([]wheel.Impulse, 0, len(wheel.Axes))
	for _, a := range wheel.Axes {
		out = append(out, wheel.Impulse{Axis: a, At: at, Kind: wheel.KindRelease})
	}
	return out
}

// reset drops any drag in progress without releasing it.
func (d *dragger) reset() {
	d.active = false
	d.moved = false
}
