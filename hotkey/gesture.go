package hotkey

import (
	"log/slog"
	"sync"
	"time"

	"go.kwisper.app/kwisper/eventtap"
)

// state of the gesture machine.
type state int

const (
	stateIdle state = iota
	// stateArmed means the chord is currently held and TriggerStart has
	// already been signaled.
	stateArmed
)

// Signals carries the three semantic outputs of the gesture machine.
// The callbacks run on the tap's listener goroutine and must not block.
type Signals struct {
	TriggerStart func()
	TriggerStop  func()
	Cancel       func()
}

// Engine converts the raw keyboard event stream into trigger signals.
//
// The chord is re-read from the source at every arming, so configuration
// changes apply to the next gesture without a restart; a swap while a
// gesture is in flight does not affect that gesture.
type Engine struct {
	matcher *Matcher
	chord   func() Chord
	// busy reports whether the session is recording or transcribing.
	// The cancel key is consumed only while a gesture or session is in
	// flight; an idle Escape belongs to the foreground application.
	busy    func() bool
	signals Signals

	mu            sync.Mutex
	state         state
	cooldownUntil time.Time
}

// NewEngine creates a gesture engine. chord supplies the live configured
// chord; busy may be nil.
func NewEngine(chord func() Chord, busy func() bool, signals Signals) *Engine {
	if busy == nil {
		busy = func() bool { return false }
	}
	return &Engine{
		matcher: NewMatcher(chord()),
		chord:   chord,
		busy:    busy,
		signals: signals,
	}
}

// Armed reports whether a gesture is currently held.
func (e *Engine) Armed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateArmed
}

// Reset returns the machine to idle without emitting signals. Called when
// the event source restarts.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateIdle
	e.cooldownUntil = time.Time{}
}

// Handle processes one raw event and returns the verdict for the tap.
// Chord and cancel-key events are consumed so the shortcut never leaks
// into the foreground application; everything else passes through.
func (e *Engine) Handle(ev eventtap.Event) eventtap.Verdict {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Pick up chord changes only between gestures.
	if e.state == stateIdle {
		if c := e.chord(); c != e.matcher.Chord() {
			e.matcher.SetChord(c)
			slog.Info("shortcut chord updated", "chord", c)
		}
	}

	m := e.matcher.Classify(ev)

	switch m.Class {
	case IsCancelKey:
		armed := e.state == stateArmed
		if !armed && !e.busy() {
			return eventtap.PassThrough
		}
		if cb := e.signals.Cancel; cb != nil {
			cb()
		}
		return eventtap.Consume

	case MatchesPress:
		if m.Debounced {
			// Key repeat of the held chord; swallow silently.
			return eventtap.Consume
		}
		if e.state == stateArmed {
			// Duplicate press while armed is ignored, never queued.
			return eventtap.Consume
		}
		if ev.When.Before(e.cooldownUntil) {
			// Key-up/key-down jitter of a single physical release.
			return eventtap.Consume
		}
		e.state = stateArmed
		if cb := e.signals.TriggerStart; cb != nil {
			cb()
		}
		return eventtap.Consume

	case MatchesRelease:
		if e.state != stateArmed {
			// Not our gesture; a bare key-up of the chord key can be
			// ordinary typing and must reach the foreground app.
			return eventtap.PassThrough
		}
		e.state = stateIdle
		e.cooldownUntil = ev.When.Add(DefaultDebounce / 2)
		if cb := e.signals.TriggerStop; cb != nil {
			cb()
		}
		return eventtap.Consume
	}

	// Option+Space would insert a stray character in some text-editing
	// contexts even when it is not the configured chord; swallow both
	// edges of that combination.
	if ev.KeyCode == KeyCodeSpace && ev.Mods == eventtap.ModOption &&
		(ev.Type == eventtap.KeyDown || ev.Type == eventtap.KeyUp) {
		return eventtap.Consume
	}

	return eventtap.PassThrough
}
