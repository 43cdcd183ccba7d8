//go:build darwin

package eventtap

/*
#cgo CFLAGS: -mmacosx-version-min=13.0
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation

#include <stdint.h>

extern int startEventTap(void);
extern void stopEventTap(void);
extern int tapPermissionGranted(int prompt);
*/
import "C"

import (
	"log/slog"
	"sync"
	"time"
)

// Global handler for the CGO callback. Only one tap at a time.
var (
	globalHandler   Handler
	globalHandlerMu sync.RWMutex
)

// CGEventFlags modifier bits.
const (
	cgFlagShift   = 1 << 17
	cgFlagControl = 1 << 18
	cgFlagOption  = 1 << 19
	cgFlagCommand = 1 << 20
)

func modsFromFlags(flags uint64) ModMask {
	var m ModMask
	if flags&cgFlagShift != 0 {
		m |= ModShift
	}
	if flags&cgFlagControl != 0 {
		m |= ModControl
	}
	if flags&cgFlagOption != 0 {
		m |= ModOption
	}
	if flags&cgFlagCommand != 0 {
		m |= ModCommand
	}
	return m
}

//export goTapEvent
func goTapEvent(typ C.int, keycode C.int64_t, flags C.uint64_t) C.int {
	globalHandlerMu.RLock()
	h := globalHandler
	globalHandlerMu.RUnlock()

	if h == nil {
		return 0
	}

	ev := Event{
		Type:    Type(typ),
		KeyCode: uint16(keycode),
		Mods:    modsFromFlags(uint64(flags)),
		When:    time.Now(),
	}
	if h(ev) == Consume {
		return 1
	}
	return 0
}

// tap is the macOS implementation backed by a CGEventTap.
type tap struct {
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// New creates a Tap for macOS. Start fails with ErrPermission when the
// process is not trusted for accessibility.
func New() (Tap, error) {
	return &tap{}, nil
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
	if C.tapPermissionGranted(1) == 0 {
		return ErrPermission
	}

	globalHandlerMu.Lock()
	globalHandler = handler
	globalHandlerMu.Unlock()

	t.done = make(chan struct{})
	started := make(chan error, 1)

	// The tap needs its own run loop; park a goroutine in CFRunLoopRun
	// for the lifetime of the tap.
	go func(done chan struct{}) {
		rc := C.startEventTap()
		var err error
		if rc != 0 {
			err = ErrPermission
		}
		started <- err
		close(done)

		if err == nil {
			// Run loop ended via stopEventTap; Stop owns the cleanup.
			return
		}

		// The tap failed after Start's fast-fail window had passed.
		// Release the handler and the running flag so a later Start can
		// install a fresh tap.
		t.mu.Lock()
		if t.running {
			t.running = false
			globalHandlerMu.Lock()
			globalHandler = nil
			globalHandlerMu.Unlock()
			slog.Error("event tap terminated unexpectedly", "error", err)
		}
		t.mu.Unlock()
	}(t.done)

	// startEventTap only returns on failure or after stopEventTap; give
	// installation a moment to fail fast.
	select {
	case err := <-started:
		if err != nil {
			globalHandlerMu.Lock()
			globalHandler = nil
			globalHandlerMu.Unlock()
			return err
		}
	case <-time.After(100 * time.Millisecond):
	}

	t.running = true
	return nil
}

func (t *tap) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	C.stopEventTap()
	<-t.done

	globalHandlerMu.Lock()
	globalHandler = nil
	globalHandlerMu.Unlock()

	t.running = false
	return nil
}

func permissionGranted() bool {
	return C.tapPermissionGranted(0) != 0
}
