// Package hotkey recognizes the configured press-hold-release shortcut
// gesture in the raw global keyboard event stream and turns it into
// trigger signals for the recording session.
package hotkey

import (
	"errors"
	"fmt"

	"go.kwisper.app/kwisper/eventtap"
)

// ErrNoModifier is returned when an interactively configured chord has no
// modifier keys. A bare key would be ambiguous with normal typing.
var ErrNoModifier = errors.New("hotkey: chord requires at least one modifier")

// Key codes for keys with fixed roles (macOS virtual key codes; the
// gohook fallback maps its raw codes before classification).
const (
	KeyCodeSpace       uint16 = 49
	KeyCodeEscape      uint16 = 53
	KeyCodeLeftOption  uint16 = 58
	KeyCodeRightOption uint16 = 61
)

// Chord is a key code plus the exact modifier set that together define
// the configured shortcut. Immutable; reconfiguration replaces the whole
// value.
type Chord struct {
	KeyCode   uint16          `json:"key_code"`
	Modifiers eventtap.ModMask `json:"modifiers"`
}

// Default returns the out-of-the-box chord: hold the right Option key.
// The key is itself a modifier, so the at-least-one-modifier rule holds.
func Default() Chord {
	return Chord{KeyCode: KeyCodeRightOption, Modifiers: eventtap.ModOption}
}

// Validate enforces the interactive-configuration rule. Chords persisted
// before the rule existed load without passing through here.
func (c Chord) Validate() error {
	if c.Modifiers == 0 {
		return ErrNoModifier
	}
	if c.KeyCode == KeyCodeEscape {
		return fmt.Errorf("hotkey: key code %d is reserved for cancel", c.KeyCode)
	}
	return nil
}

func (c Chord) String() string {
	return fmt.Sprintf("%s+key(%d)", c.Modifiers, c.KeyCode)
}

// isModifierKey reports whether the chord's key is itself a modifier key,
// in which case its press and release arrive as flagsChanged events.
func (c Chord) isModifierKey() bool {
	switch c.KeyCode {
	case KeyCodeLeftOption, KeyCodeRightOption,
		54, 55, // command
		56, 60, // shift
		59, 62: // control
		return true
	}
	return false
}
