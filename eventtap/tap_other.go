//go:build !darwin

package eventtap

import (
	"log/slog"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// tap is the portable implementation backed by robotn/gohook. It can
// observe the global keyboard stream but cannot swallow events, so
// Consume verdicts are honored only on darwin; here they are counted and
// logged once.
type tap struct {
	mu      sync.Mutex
	running bool
	done    chan struct{}
	once    sync.Once
}

// New creates a listen-only Tap backed by gohook.
func New() (Tap, error) {
	return &tap{}, nil
}

func modsFromMask(mask uint16) ModMask {
	// gohook mask bits: shift, ctrl, meta, alt (left/right pairs).
	var m ModMask
	if mask&(1<<0) != 0 || mask&(1<<4) != 0 {
		m |= ModShift
	}
	if mask&(1<<1) != 0 || mask&(1<<5) != 0 {
		m |= ModControl
	}
	if mask&(1<<2) != 0 || mask&(1<<6) != 0 {
		m |= ModCommand
	}
	if mask&(1<<3) != 0 || mask&(1<<7) != 0 {
		m |= ModOption
	}
	return m
}

func (t *tap) Start(handler Handler) error {
	if handler == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrRunning
	}

	t.done = make(chan struct{})
	events := hook.Start()

	go func(done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}

				var typ Type
				switch ev.Kind {
				case hook.KeyDown, hook.KeyHold:
					typ = KeyDown
				case hook.KeyUp:
					typ = KeyUp
				default:
					continue
				}

				v := handler(Event{
					Type:    typ,
					KeyCode: ev.Rawcode,
					Mods:    modsFromMask(ev.Mask),
					When:    time.Now(),
				})
				if v == Consume {
					t.once.Do(func() {
						slog.Warn("event consumption not supported on this platform; shortcut events will leak through")
					})
				}
			}
		}
	}(t.done)

	t.running = true
	return nil
}

func (t *tap) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	close(t.done)
	hook.End()
	t.running = false
	return nil
}

func permissionGranted() bool { return true }
