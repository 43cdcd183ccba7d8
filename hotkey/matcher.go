package hotkey

import (
	"sync"
	"time"

	"go.kwisper.app/kwisper/eventtap"
)

// Class is the matcher's verdict on a single raw event.
type Class int

const (
	// IsUnrelated means the event has nothing to do with the chord or
	// the cancel key and must pass through untouched.
	IsUnrelated Class = iota
	// MatchesPress is the chord's press edge.
	MatchesPress
	// MatchesRelease is the chord's release edge.
	MatchesRelease
	// IsCancelKey is the cancel key, recognized regardless of modifiers
	// and with priority over chord matching.
	IsCancelKey
)

func (c Class) String() string {
	switch c {
	case MatchesPress:
		return "press"
	case MatchesRelease:
		return "release"
	case IsCancelKey:
		return "cancel"
	}
	return "unrelated"
}

// Match is the result of classifying one event.
type Match struct {
	Class Class
	// Debounced marks a press edge that arrived inside the debounce
	// window of the previous one (hardware or OS key repeat). The event
	// still belongs to the chord and must be consumed, but it must not
	// arm a new gesture. Releases are never debounced.
	Debounced bool
}

// DefaultDebounce is the window within which a repeated press edge is
// treated as key repeat rather than a new gesture.
const DefaultDebounce = time.Second

// Matcher classifies raw events against a configured chord. It holds no
// state beyond the chord and the debounce clock.
//
// Key codes are compared for exact equality and modifiers for exact-set
// equality. Physically identical keys can report different codes on
// non-US layouts; we deliberately keep strict logical matching and rely
// on the chord being captured through the same event source that later
// matches it, so the stored code is whatever the user's layout reports.
type Matcher struct {
	mu        sync.Mutex
	chord     Chord
	debounce  time.Duration
	lastPress time.Time
}

// NewMatcher creates a matcher for the given chord with the default
// debounce window.
func NewMatcher(chord Chord) *Matcher {
	return &Matcher{chord: chord, debounce: DefaultDebounce}
}

// Chord returns the currently configured chord.
func (m *Matcher) Chord() Chord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chord
}

// SetChord atomically replaces the chord. The debounce clock carries
// over so a swap cannot defeat key-repeat suppression.
func (m *Matcher) SetChord(c Chord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chord = c
}

// Classify maps one raw event to its classification against the chord.
// The event's own timestamp drives the debounce clock.
func (m *Matcher) Classify(ev eventtap.Event) Match {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.KeyCode == KeyCodeEscape && ev.Type == eventtap.KeyDown {
		return Match{Class: IsCancelKey}
	}

	c := m.chord
	if ev.KeyCode != c.KeyCode {
		return Match{Class: IsUnrelated}
	}

	switch ev.Type {
	case eventtap.KeyDown:
		if c.isModifierKey() || ev.Mods != c.Modifiers {
			return Match{Class: IsUnrelated}
		}
		return m.press(ev.When)

	case eventtap.KeyUp:
		if c.isModifierKey() {
			return Match{Class: IsUnrelated}
		}
		// The user may drop the modifiers before the key itself;
		// a release edge matches on key code alone.
		return Match{Class: MatchesRelease}

	case eventtap.FlagsChanged:
		if !c.isModifierKey() {
			return Match{Class: IsUnrelated}
		}
		// A modifier-key chord presses and releases via flag changes:
		// the exact chord modifier set appearing is the press edge, its
		// bit disappearing is the release edge.
		if ev.Mods == c.Modifiers {
			return m.press(ev.When)
		}
		if !ev.Mods.Has(c.Modifiers) {
			return Match{Class: MatchesRelease}
		}
		return Match{Class: IsUnrelated}
	}

	return Match{Class: IsUnrelated}
}

// press applies the debounce clock to a press edge. Caller holds mu.
func (m *Matcher) press(at time.Time) Match {
	if !m.lastPress.IsZero() && at.Sub(m.lastPress) < m.debounce {
		return Match{Class: MatchesPress, Debounced: true}
	}
	m.lastPress = at
	return Match{Class: MatchesPress}
}
