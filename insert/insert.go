// Package insert performs the non-destructive clipboard substitution:
// snapshot the clipboard, write the transcribed text, optionally paste it
// into the previously active application, and restore the snapshot.
package insert

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.kwisper.app/kwisper/frontapp"
	"go.kwisper.app/kwisper/internal/types"
)

// Clipboard is the pasteboard surface the inserter needs.
type Clipboard interface {
	Read() (text string, ok bool, err error)
	Write(text string) error
	Clear() error
}

// AppControl reactivates the target application and synthesizes the
// paste keystroke.
type AppControl interface {
	Activate(frontapp.App) error
	SynthesizePaste() error
}

// systemAppControl backs AppControl with the frontapp package.
type systemAppControl struct{}

func (systemAppControl) Activate(a frontapp.App) error { return frontapp.Activate(a) }
func (systemAppControl) SynthesizePaste() error        { return frontapp.SynthesizePaste() }

// SystemAppControl returns the real implementation.
func SystemAppControl() AppControl { return systemAppControl{} }

// Config holds the inserter's delays.
type Config struct {
	// SettleDelay is the pause between reactivating the target app and
	// synthesizing the paste keystroke.
	SettleDelay time.Duration
	// PasteRestoreDelay is how long after a synthesized paste the
	// snapshot is restored.
	PasteRestoreDelay time.Duration
	// TrayRestoreDelay is how long a tray-triggered insertion stays on
	// the clipboard before the snapshot is restored; the user pastes
	// manually in that window.
	TrayRestoreDelay time.Duration
	// RestoreSnapshot disables restoration entirely when false; the
	// transcript simply stays on the clipboard.
	RestoreSnapshot bool
}

// DefaultConfig returns the default delays.
func DefaultConfig() Config {
	return Config{
		SettleDelay:       300 * time.Millisecond,
		PasteRestoreDelay: 500 * time.Millisecond,
		TrayRestoreDelay:  10 * time.Second,
		RestoreSnapshot:   true,
	}
}

// snapshot is the clipboard state captured before a write, consumed
// exactly once by restoration.
type snapshot struct {
	text    string
	present bool
}

// Inserter owns clipboard substitution for one insertion at a time. A
// newer insertion invalidates the pending restore timer of the previous
// one.
type Inserter struct {
	clip    Clipboard
	apps    AppControl
	hideApp func()
	cfg     func() Config

	mu           sync.Mutex
	restoreTimer *time.Timer
}

// New creates an Inserter. cfg is read at each insertion so delay
// changes apply without a restart; hideApp may be nil.
func New(clip Clipboard, apps AppControl, hideApp func(), cfg func() Config) *Inserter {
	if hideApp == nil {
		hideApp = func() {}
	}
	return &Inserter{clip: clip, apps: apps, hideApp: hideApp, cfg: cfg}
}

// Insert writes text to the clipboard and arranges its delivery
// according to the originating trigger source. target is the application
// that was frontmost when the session started; nil means none could be
// identified.
func (in *Inserter) Insert(text string, source types.TriggerSource, target *frontapp.App) error {
	cfg := in.cfg()

	snap, err := in.takeSnapshot()
	if err != nil {
		// Insertion still proceeds; restoration just has nothing to put back.
		slog.Warn("clipboard snapshot failed", "error", err)
	}

	if err := in.clip.Write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}

	if source != types.SourceKeyboard {
		in.scheduleRestore(snap, cfg, cfg.TrayRestoreDelay)
		return nil
	}

	in.hideApp()
	if target != nil {
		if err := in.apps.Activate(*target); err != nil {
			slog.Warn("reactivate previous app", "app", target.Name, "error", err)
		}
		time.Sleep(cfg.SettleDelay)
		if err := in.apps.SynthesizePaste(); err != nil {
			slog.Error("synthesize paste", "error", err)
		}
	} else {
		slog.Info("no previous app to paste into; transcript left on clipboard")
	}
	in.scheduleRestore(snap, cfg, cfg.PasteRestoreDelay)
	return nil
}

// takeSnapshot captures the current clipboard text.
func (in *Inserter) takeSnapshot() (snapshot, error) {
	text, ok, err := in.clip.Read()
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{text: text, present: ok}, nil
}

// scheduleRestore arms the restore timer, invalidating any pending one
// from an earlier insertion.
func (in *Inserter) scheduleRestore(snap snapshot, cfg Config, delay time.Duration) {
	if !cfg.RestoreSnapshot {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if in.restoreTimer != nil {
		in.restoreTimer.Stop()
	}
	in.restoreTimer = time.AfterFunc(delay, func() {
		in.restore(snap)
	})
}

// restore puts the snapshot back. An absent snapshot leaves the
// clipboard cleared rather than inventing a placeholder.
func (in *Inserter) restore(snap snapshot) {
	var err error
	if snap.present {
		err = in.clip.Write(snap.text)
	} else {
		err = in.clip.Clear()
	}
	if err != nil {
		slog.Warn("restore clipboard", "error", err)
	}
}
