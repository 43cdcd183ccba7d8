package hotkey

import (
	"sync"
	"testing"
	"time"

	"go.kwisper.app/kwisper/eventtap"
)

// recorder collects emitted signals in order.
type recorder struct {
	mu      sync.Mutex
	signals []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.signals...)
}

func newTestEngine(chord func() Chord, busy func() bool) (*Engine, *recorder) {
	rec := &recorder{}
	e := NewEngine(chord, busy, Signals{
		TriggerStart: func() { rec.add("start") },
		TriggerStop:  func() { rec.add("stop") },
		Cancel:       func() { rec.add("cancel") },
	})
	return e, rec
}

func optionDown(at time.Time) eventtap.Event {
	return ev(eventtap.FlagsChanged, KeyCodeRightOption, eventtap.ModOption, at)
}

func optionUp(at time.Time) eventtap.Event {
	return ev(eventtap.FlagsChanged, KeyCodeRightOption, 0, at)
}

func TestEngine_PressHoldRelease(t *testing.T) {
	e, rec := newTestEngine(Default, nil)

	if v := e.Handle(optionDown(t0)); v != eventtap.Consume {
		t.Errorf("press verdict = %v, want consume", v)
	}
	if !e.Armed() {
		t.Fatal("engine not armed after press")
	}
	if v := e.Handle(optionUp(t0.Add(800 * time.Millisecond))); v != eventtap.Consume {
		t.Errorf("release verdict = %v, want consume", v)
	}
	if e.Armed() {
		t.Fatal("engine still armed after release")
	}

	want := []string{"start", "stop"}
	got := rec.got()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("signals = %v, want %v", got, want)
	}
}

// TestEngine_NeverDoubleStarts feeds event sequences and checks that two
// TriggerStarts never occur without an intervening TriggerStop.
func TestEngine_NeverDoubleStarts(t *testing.T) {
	e, rec := newTestEngine(Default, nil)

	at := t0
	events := []eventtap.Event{
		optionDown(at),
		optionDown(at.Add(100 * time.Millisecond)), // key repeat
		optionDown(at.Add(300 * time.Millisecond)), // key repeat
		optionUp(at.Add(1200 * time.Millisecond)),
		optionDown(at.Add(1300 * time.Millisecond)), // inside cool-down
		optionDown(at.Add(3 * time.Second)),
		optionUp(at.Add(4 * time.Second)),
	}
	for _, event := range events {
		e.Handle(event)
	}

	starts := 0
	for _, s := range rec.got() {
		switch s {
		case "start":
			starts++
			if starts > 1 {
				t.Fatalf("two consecutive starts without stop: %v", rec.got())
			}
		case "stop":
			starts = 0
		}
	}
}

func TestEngine_DebouncedPressDropped(t *testing.T) {
	e, rec := newTestEngine(Default, nil)

	e.Handle(optionDown(t0))
	e.Handle(optionUp(t0.Add(100 * time.Millisecond)))
	// Within the debounce window of the first press: consumed, no start.
	if v := e.Handle(optionDown(t0.Add(400 * time.Millisecond))); v != eventtap.Consume {
		t.Errorf("debounced press verdict = %v, want consume", v)
	}

	got := rec.got()
	if len(got) != 2 || got[0] != "start" || got[1] != "stop" {
		t.Errorf("signals = %v, want [start stop]", got)
	}
}

func TestEngine_CancelKey(t *testing.T) {
	t.Run("armed", func(t *testing.T) {
		e, rec := newTestEngine(Default, nil)
		e.Handle(optionDown(t0))

		if v := e.Handle(ev(eventtap.KeyDown, KeyCodeEscape, 0, t0.Add(time.Second))); v != eventtap.Consume {
			t.Errorf("escape while armed: verdict = %v, want consume", v)
		}
		got := rec.got()
		if len(got) != 2 || got[1] != "cancel" {
			t.Errorf("signals = %v, want [start cancel]", got)
		}
		if !e.Armed() {
			t.Error("cancel must not disarm; the physical release does that")
		}
	})

	t.Run("idle and session busy", func(t *testing.T) {
		e, rec := newTestEngine(Default, func() bool { return true })
		if v := e.Handle(ev(eventtap.KeyDown, KeyCodeEscape, 0, t0)); v != eventtap.Consume {
			t.Errorf("escape while busy: verdict = %v, want consume", v)
		}
		if got := rec.got(); len(got) != 1 || got[0] != "cancel" {
			t.Errorf("signals = %v, want [cancel]", got)
		}
	})

	t.Run("idle and session idle", func(t *testing.T) {
		e, rec := newTestEngine(Default, func() bool { return false })
		if v := e.Handle(ev(eventtap.KeyDown, KeyCodeEscape, 0, t0)); v != eventtap.PassThrough {
			t.Errorf("idle escape: verdict = %v, want pass through", v)
		}
		if got := rec.got(); len(got) != 0 {
			t.Errorf("signals = %v, want none", got)
		}
	})
}

func TestEngine_UnrelatedPassesThrough(t *testing.T) {
	e, _ := newTestEngine(Default, nil)

	if v := e.Handle(ev(eventtap.KeyDown, 4, 0, t0)); v != eventtap.PassThrough {
		t.Errorf("plain typing verdict = %v, want pass through", v)
	}
	e.Handle(optionDown(t0.Add(time.Second)))
	if v := e.Handle(ev(eventtap.KeyDown, 4, eventtap.ModOption, t0.Add(1100*time.Millisecond))); v != eventtap.PassThrough {
		t.Errorf("unrelated key while armed: verdict = %v, want pass through", v)
	}
}

func TestEngine_OptionSpaceSuppressed(t *testing.T) {
	e, rec := newTestEngine(Default, nil)

	down := ev(eventtap.KeyDown, KeyCodeSpace, eventtap.ModOption, t0)
	up := ev(eventtap.KeyUp, KeyCodeSpace, eventtap.ModOption, t0.Add(50*time.Millisecond))

	if v := e.Handle(down); v != eventtap.Consume {
		t.Errorf("option+space down: verdict = %v, want consume", v)
	}
	if v := e.Handle(up); v != eventtap.Consume {
		t.Errorf("option+space up: verdict = %v, want consume", v)
	}
	if got := rec.got(); len(got) != 0 {
		t.Errorf("option+space emitted signals: %v", got)
	}
}

func TestEngine_ChordSwapMidGesture(t *testing.T) {
	var mu sync.Mutex
	chord := Default()
	chordFn := func() Chord {
		mu.Lock()
		defer mu.Unlock()
		return chord
	}

	e, rec := newTestEngine(chordFn, nil)
	e.Handle(optionDown(t0))

	// Reconfigure while armed.
	mu.Lock()
	chord = Chord{KeyCode: KeyCodeSpace, Modifiers: eventtap.ModCommand}
	mu.Unlock()

	// The in-flight gesture still matches the old chord.
	if v := e.Handle(optionUp(t0.Add(time.Second))); v != eventtap.Consume {
		t.Errorf("old chord release after swap: verdict = %v, want consume", v)
	}
	if got := rec.got(); len(got) != 2 || got[1] != "stop" {
		t.Fatalf("signals = %v, want [start stop]", got)
	}

	// The next gesture uses the new chord.
	e.Handle(ev(eventtap.KeyDown, KeyCodeSpace, eventtap.ModCommand, t0.Add(3*time.Second)))
	if got := rec.got(); len(got) != 3 || got[2] != "start" {
		t.Errorf("signals = %v, want trailing start from new chord", got)
	}
	if v := e.Handle(optionDown(t0.Add(5 * time.Second))); v != eventtap.PassThrough {
		t.Errorf("old chord after swap: verdict = %v, want pass through", v)
	}
}
