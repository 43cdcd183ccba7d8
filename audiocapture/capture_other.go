//go:build !darwin

package audiocapture

// New returns ErrUnsupported on non-macOS platforms.
func New() (Capturer, error) {
	return nil, ErrUnsupported
}
