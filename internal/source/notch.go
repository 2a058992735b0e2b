package source

import "github.com/roach88/nimbus/internal/wheel"

// notches converts native wheel units into whole notches per axis.
//
// High-resolution wheels report fractions of a notch. The remainder is
// kept until it adds up to a notch and is discarded when the direction
// changes.
type notches struct {
	rem [len(wheel.Axes)]int
}

func (n *notches) add(a wheel.Axis, units int) int {
	if (units > 0 && n.rem[a] < 0) || (units < 0 && n.rem[a] > 0) {
		n.rem[a] = 0
	}
	n.rem[a] += units
	whole := n.rem[a] / wheel.NativeNotch
	n.rem[a] -= whole * wheel.NativeNotch
	return whole
}

func (n *notches) reset() {
	n.rem = [len(wheel.Axes)]int{}
}
