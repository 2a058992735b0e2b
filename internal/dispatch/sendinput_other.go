//go:build !windows

package dispatch

// NewSystem returns the platform dispatcher. Only Windows can inject wheel
// events; elsewhere use the terminal preview.
func NewSystem() (Dispatcher, error) {
	return nil, ErrUnsupported
}
