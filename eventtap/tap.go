// Package eventtap provides a global keyboard event stream with the
// ability to consume individual events before they reach the foreground
// application.
package eventtap

import (
	"errors"
	"strings"
	"time"
)

// ErrUnsupported is returned on platforms without an event tap implementation.
var ErrUnsupported = errors.New("eventtap: not supported on this platform")

// ErrRunning is returned when trying to start a tap that is already running.
var ErrRunning = errors.New("eventtap: already running")

// ErrPermission is returned when the process lacks the accessibility /
// input-monitoring permission required to install a global tap.
var ErrPermission = errors.New("eventtap: accessibility permission not granted")

// Type identifies the kind of keyboard event.
type Type int

const (
	KeyDown Type = iota
	KeyUp
	FlagsChanged
)

func (t Type) String() string {
	switch t {
	case KeyDown:
		return "keyDown"
	case KeyUp:
		return "keyUp"
	case FlagsChanged:
		return "flagsChanged"
	}
	return "unknown"
}

// ModMask is a bitset of held modifier keys.
type ModMask uint8

const (
	ModShift ModMask = 1 << iota
	ModControl
	ModOption
	ModCommand
)

// Has reports whether all bits in m2 are set in m.
func (m ModMask) Has(m2 ModMask) bool { return m&m2 == m2 }

func (m ModMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m.Has(ModShift) {
		parts = append(parts, "shift")
	}
	if m.Has(ModControl) {
		parts = append(parts, "control")
	}
	if m.Has(ModOption) {
		parts = append(parts, "option")
	}
	if m.Has(ModCommand) {
		parts = append(parts, "command")
	}
	return strings.Join(parts, "+")
}

// Event is a single raw keyboard event as delivered by the system tap.
type Event struct {
	Type    Type
	KeyCode uint16
	Mods    ModMask
	When    time.Time
}

// Verdict tells the tap what to do with the event just handled.
type Verdict int

const (
	// PassThrough lets the event propagate to the foreground application.
	PassThrough Verdict = iota
	// Consume swallows the event.
	Consume
)

// Handler processes one raw event and decides its fate. It runs on the
// tap's listener thread and must return promptly; it is in the delivery
// path of every system keystroke.
type Handler func(Event) Verdict

// Tap is a running global keyboard event source.
type Tap interface {
	// Start installs the tap and begins delivering events to handler.
	// It returns once the tap is installed; delivery happens on a
	// dedicated listener goroutine.
	Start(handler Handler) error

	// Stop tears the tap down. Safe to call multiple times.
	Stop() error
}

// PermissionGranted reports whether the process may install a global tap.
func PermissionGranted() bool { return permissionGranted() }
