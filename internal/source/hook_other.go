//go:build !windows

package source

// NewSystem returns the platform wheel source. Only Windows offers a
// global wheel hook; elsewhere use the terminal preview.
func NewSystem(opts ...Option) (Source, error) {
	return nil, &HookRegistrationError{Hook: "wheel", Err: ErrUnsupportedPlatform}
}
