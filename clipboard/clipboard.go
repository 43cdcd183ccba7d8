// Package clipboard wraps the system pasteboard.
package clipboard

// Read returns the current clipboard text. ok is false when the
// clipboard holds no text.
func Read() (text string, ok bool, err error) {
	return readText()
}

// Write replaces the clipboard contents with text.
func Write(text string) error {
	return writeText(text)
}

// Clear empties the clipboard.
func Clear() error {
	return clearText()
}

// System is the package-level implementation behind the Read/Write/Clear
// functions, usable where an injectable clipboard is needed.
type System struct{}

func (System) Read() (string, bool, error) { return Read() }
func (System) Write(text string) error     { return Write(text) }
func (System) Clear() error                { return Clear() }
