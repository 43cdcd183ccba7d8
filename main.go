package main

import (
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"go.kwisper.app/kwisper/audiocapture"
	"go.kwisper.app/kwisper/clipboard"
	"go.kwisper.app/kwisper/config"
	"go.kwisper.app/kwisper/eventtap"
	"go.kwisper.app/kwisper/history"
	"go.kwisper.app/kwisper/hotkey"
	"go.kwisper.app/kwisper/insert"
	"go.kwisper.app/kwisper/internal/types"
	"go.kwisper.app/kwisper/langdetect"
	"go.kwisper.app/kwisper/session"
	"go.kwisper.app/kwisper/stt"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Tray labels per session state.
const (
	trayIdle         = "🎤"
	trayRecording    = "🔴"
	trayTranscribing = "✨"
)

// App is the main application service bound to Wails.
type App struct {
	app    *application.App
	window application.Window
	tray   *application.SystemTray

	store      *config.Store
	hist       *history.Store
	registry   *stt.Registry
	tap        eventtap.Tap
	engine     *hotkey.Engine
	controller *session.Controller
	inserter   *insert.Inserter

	providerMu sync.RWMutex
	provider   stt.Provider

	// signalQueue carries gesture signals from the tap thread to the
	// single dispatcher worker, preserving per-gesture order.
	signalQueue chan func()

	// capturingShortcut routes keyboard events to shortcut configuration
	// instead of the gesture engine.
	capturingShortcut atomic.Bool
	// captureMu guards the modifiers accumulated during capture.
	captureMu   sync.Mutex
	captureMods eventtap.ModMask
	captureKey  uint16
}

func NewApp() *App {
	return &App{}
}

// ─────────────────────────────────────────────────────────────────────────────
// Initialization (called from main)
// ─────────────────────────────────────────────────────────────────────────────

// Init initializes the service with references to app and window.
func (a *App) Init(app *application.App, window application.Window) {
	a.app = app
	a.window = window

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = &config.Config{}
	}
	a.store = config.NewStore(cfg)

	a.setupHistory()
	a.setupSTT()
	a.setupSession()
	a.setupEventTap()
}

// Shutdown cleans up resources.
func (a *App) Shutdown() {
	if a.tap != nil {
		if err := a.tap.Stop(); err != nil {
			slog.Error("stop event tap", "error", err)
		}
	}
	if a.controller != nil {
		a.controller.RequestCancel(types.SourceTray)
	}
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			slog.Error("close stt providers", "error", err)
		}
	}
	if a.hist != nil {
		if err := a.hist.Close(); err != nil {
			slog.Error("close history", "error", err)
		}
	}
}

func (a *App) setupHistory() {
	dir, err := config.HistoryDir()
	if err != nil {
		slog.Error("get history dir", "error", err)
		return
	}
	h, err := history.Open(dir)
	if err != nil {
		slog.Error("open history", "error", err)
		return
	}
	h.SetRetention(a.store.Get().Retention())
	a.hist = h
	slog.Info("history initialized", "path", dir)
}

func (a *App) setupSTT() {
	a.registry = stt.NewRegistry()
	a.rebuildProvider()
}

// rebuildProvider recreates the API provider from the current settings.
func (a *App) rebuildProvider() {
	cfg := a.store.Get()
	p := stt.NewOpenAI(stt.OpenAIConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	a.registry.Register(p)

	a.providerMu.Lock()
	a.provider = p
	a.providerMu.Unlock()

	if p.IsReady() {
		slog.Info("transcription provider configured", "model", cfg.Model)
	} else {
		slog.Warn("no API key configured; transcription will fail until one is set")
	}
}

func (a *App) transcriber() session.Transcriber {
	a.providerMu.RLock()
	defer a.providerMu.RUnlock()
	return a.provider
}

func (a *App) setupSession() {
	capture, err := audiocapture.New()
	if err != nil {
		slog.Error("init audio capture", "error", err)
		return
	}

	a.inserter = insert.New(
		&clipboard.System{},
		insert.SystemAppControl(),
		func() {
			if a.window != nil {
				a.window.Hide()
			}
		},
		func() insert.Config {
			c := a.store.Get()
			return c.Insert()
		},
	)

	a.controller = session.NewController(
		func() session.Config {
			c := a.store.Get()
			return c.Session()
		},
		capture,
		a.transcriber,
		a.inserter,
		session.WithStateListener(a.onSessionState),
		session.WithResultListener(a.onTranscript),
	)
}

// onSessionState mirrors the session state onto the tray and the UI.
func (a *App) onSessionState(s session.State) {
	if a.tray != nil {
		switch s {
		case session.StateRecording:
			a.tray.SetLabel(trayRecording)
		case session.StateTranscribing:
			a.tray.SetLabel(trayTranscribing)
		default:
			a.tray.SetLabel(trayIdle)
		}
	}
	if a.app != nil {
		a.app.Event.Emit("session-state", s.String())
	}
}

// onTranscript annotates and records a completed transcription.
func (a *App) onTranscript(r session.Result) {
	code, name := langdetect.Detect(r.Text)
	if code != "" {
		slog.Debug("language detected", "code", code, "name", name)
	}

	if a.hist != nil {
		err := a.hist.Append(history.Entry{
			ID:       r.ID,
			Text:     r.Text,
			Language: code,
			Duration: r.Duration,
			Source:   r.Source,
		})
		if err != nil {
			slog.Warn("record transcript", "error", err)
		}
	}

	if a.app != nil {
		a.app.Event.Emit("transcript", map[string]any{
			"id":       r.ID,
			"text":     r.Text,
			"language": code,
		})
	}
}

func (a *App) setupEventTap() {
	if a.controller == nil {
		return
	}

	a.startSignalDispatcher()
	a.engine = hotkey.NewEngine(
		func() hotkey.Chord { return a.store.Get().Shortcut },
		a.controller.Busy,
		a.gestureSignals(),
	)

	tap, err := eventtap.New()
	if err != nil {
		slog.Error("init event tap", "error", err)
		return
	}
	a.tap = tap

	if !eventtap.PermissionGranted() {
		slog.Warn("accessibility permission not granted; the shortcut will not work until it is")
	}
	if err := a.tap.Start(a.handleEvent); err != nil {
		slog.Error("start event tap", "error", err)
		return
	}
	slog.Info("global shortcut active", "chord", a.store.Get().Shortcut)
}

// startSignalDispatcher runs the single worker that executes gesture
// signals in arrival order. Controller transitions must not run on the
// tap's listener goroutine, but a stop executing before its start would
// no-op and leave the recording running unattended, so the hop off the
// tap thread has to preserve per-gesture order.
func (a *App) startSignalDispatcher() {
	a.signalQueue = make(chan func(), 16)
	go func() {
		for fn := range a.signalQueue {
			fn()
		}
	}()
}

func (a *App) dispatchSignal(fn func()) {
	select {
	case a.signalQueue <- fn:
	default:
		slog.Warn("gesture signal dropped, dispatcher backlog full")
	}
}

// gestureSignals routes the three gesture outputs through the serialized
// dispatcher into the controller.
func (a *App) gestureSignals() hotkey.Signals {
	return hotkey.Signals{
		TriggerStart: func() {
			a.dispatchSignal(func() { a.controller.RequestStart(types.SourceKeyboard) })
		},
		TriggerStop: func() {
			a.dispatchSignal(func() { a.controller.RequestStop(types.SourceKeyboard, false) })
		},
		Cancel: func() {
			a.dispatchSignal(func() { a.controller.RequestCancel(types.SourceKeyboard) })
		},
	}
}

// handleEvent is the tap handler: shortcut-capture mode intercepts the
// stream, otherwise the gesture engine decides.
func (a *App) handleEvent(ev eventtap.Event) eventtap.Verdict {
	if a.capturingShortcut.Load() {
		return a.handleCaptureEvent(ev)
	}
	return a.engine.Handle(ev)
}

// handleCaptureEvent consumes events until they form a chord or Escape
// aborts. Modifier presses arrive as flagsChanged events and are only
// chord-in-progress: a plain key-down while modifiers are held completes
// a key+modifier chord, and releasing the held modifier completes a
// modifier-only chord. Completing on the first flagsChanged would make
// every key+modifier chord unreachable.
func (a *App) handleCaptureEvent(ev eventtap.Event) eventtap.Verdict {
	switch ev.Type {
	case eventtap.KeyDown:
		if ev.KeyCode == hotkey.KeyCodeEscape {
			a.finishCapture(hotkey.Chord{}, false)
			return eventtap.Consume
		}
		chord := hotkey.Chord{KeyCode: ev.KeyCode, Modifiers: ev.Mods}
		if chord.Validate() != nil {
			// No modifier held yet; keep listening.
			return eventtap.Consume
		}
		a.finishCapture(chord, true)

	case eventtap.FlagsChanged:
		a.captureMu.Lock()
		prev := a.captureMods
		switch {
		case ev.Mods != prev && ev.Mods.Has(prev):
			// Modifier added; remember its key in case the chord ends up
			// modifier-only.
			a.captureMods = ev.Mods
			a.captureKey = ev.KeyCode
			a.captureMu.Unlock()
		case !ev.Mods.Has(prev):
			key := a.captureKey
			a.captureMods = ev.Mods
			a.captureMu.Unlock()
			if prev != 0 && ev.KeyCode == key {
				a.finishCapture(hotkey.Chord{KeyCode: key, Modifiers: prev}, true)
			}
		default:
			a.captureMu.Unlock()
		}
	}

	return eventtap.Consume
}

// finishCapture leaves capture mode and, on success, installs the chord.
func (a *App) finishCapture(chord hotkey.Chord, ok bool) {
	a.capturingShortcut.Store(false)
	a.captureMu.Lock()
	a.captureMods = 0
	a.captureKey = 0
	a.captureMu.Unlock()

	if !ok {
		a.emit("shortcut-capture-cancelled", nil)
		return
	}
	if err := a.store.SetShortcut(chord); err != nil {
		slog.Error("save captured shortcut", "error", err)
		a.emit("shortcut-capture-cancelled", nil)
		return
	}
	slog.Info("shortcut captured", "chord", chord)
	a.emit("shortcut-captured", chord)
}

func (a *App) emit(name string, data any) {
	if a.app != nil {
		a.app.Event.Emit(name, data)
	}
}

// CaptureShortcut puts the tap into capture mode; the next completed
// chord becomes the configured shortcut. Escape aborts.
func (a *App) CaptureShortcut() {
	a.captureMu.Lock()
	a.captureMods = 0
	a.captureKey = 0
	a.captureMu.Unlock()
	a.capturingShortcut.Store(true)
}

// ─────────────────────────────────────────────────────────────────────────────
// Session Control (tray and UI entry points)
// ─────────────────────────────────────────────────────────────────────────────

// TriggerDown mirrors the shortcut press for the tray's press-and-hold
// trigger.
func (a *App) TriggerDown() {
	if a.controller != nil {
		a.controller.RequestStart(types.SourceTray)
	}
}

// TriggerUp mirrors the shortcut release.
func (a *App) TriggerUp() {
	if a.controller != nil {
		a.controller.RequestStop(types.SourceTray, false)
	}
}

// TriggerCancel mirrors the cancel key.
func (a *App) TriggerCancel() {
	if a.controller != nil {
		a.controller.RequestCancel(types.SourceTray)
	}
}

// ToggleRecording starts or stops a recording from the tray.
func (a *App) ToggleRecording() {
	if a.controller == nil {
		return
	}
	if a.controller.State() == session.StateRecording {
		a.controller.RequestStop(types.SourceTray, false)
	} else {
		a.controller.RequestStart(types.SourceTray)
	}
}

// CancelSession aborts the in-flight recording or transcription.
func (a *App) CancelSession() {
	if a.controller == nil {
		return
	}
	a.controller.RequestCancel(types.SourceTray)
}

// GetStatus returns the session status for the UI.
func (a *App) GetStatus() types.Status {
	cfg := a.store.Get()
	st := types.Status{
		State:       session.StateIdle.String(),
		Chord:       cfg.Shortcut.String(),
		HasTapPerm:  eventtap.PermissionGranted(),
		ProviderSet: cfg.APIKey != "",
	}
	if a.controller != nil {
		st.State = a.controller.State().String()
	}
	return st
}

// ─────────────────────────────────────────────────────────────────────────────
// History
// ─────────────────────────────────────────────────────────────────────────────

// RecentTranscripts returns the latest history entries, newest first.
func (a *App) RecentTranscripts(n int) ([]types.TranscriptInfo, error) {
	if a.hist == nil {
		return nil, fmt.Errorf("history not available")
	}
	entries, err := a.hist.Recent(n)
	if err != nil {
		return nil, err
	}
	infos := make([]types.TranscriptInfo, len(entries))
	for i, e := range entries {
		infos[i] = types.TranscriptInfo{
			ID:        e.ID,
			Text:      e.Text,
			Language:  e.Language,
			Seconds:   e.Duration.Seconds(),
			Source:    string(e.Source),
			CreatedAt: e.CreatedAt.UnixMilli(),
		}
	}
	return infos, nil
}

// ClearHistory deletes every recorded transcript.
func (a *App) ClearHistory() error {
	if a.hist == nil {
		return fmt.Errorf("history not available")
	}
	return a.hist.Clear()
}

// CopyTranscript puts a past transcript back on the clipboard. No
// snapshot/restore dance; re-copying is an explicit user action.
func (a *App) CopyTranscript(text string) error {
	var clip clipboard.System
	return clip.Write(text)
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// GetSettings returns the current configuration.
func (a *App) GetSettings() config.Config {
	return a.store.Get()
}

// UpdateSettings replaces the editable settings and persists them. The
// shortcut goes through SetShortcut so its validation applies.
func (a *App) UpdateSettings(updated config.Config) error {
	err := a.store.Update(func(c *config.Config) {
		c.Model = updated.Model
		c.Language = langdetect.NormalizeTag(updated.Language)
		c.Prompt = updated.Prompt
		c.APIKey = updated.APIKey
		c.BaseURL = updated.BaseURL
		c.MinDurationMS = updated.MinDurationMS
		c.MaxDurationS = updated.MaxDurationS
		c.RestoreClipboard = updated.RestoreClipboard
		c.PasteRestoreDelayMS = updated.PasteRestoreDelayMS
		c.TrayRestoreDelayS = updated.TrayRestoreDelayS
	})
	if err != nil {
		return err
	}
	a.rebuildProvider()
	return nil
}

// SetShortcut validates and installs a new chord. It applies from the
// next press; a gesture already in flight finishes on the old chord.
func (a *App) SetShortcut(chord hotkey.Chord) error {
	return a.store.SetShortcut(chord)
}

// GetAccessibilityPermission reports whether the global shortcut can work.
func (a *App) GetAccessibilityPermission() bool {
	return eventtap.PermissionGranted()
}

func (a *App) GetVersion() string {
	return version
}

func (a *App) showWindow() {
	if a.window != nil {
		a.window.Show()
		a.window.Focus()
	}
}

// truncate shortens a string for menu display, cutting on rune
// boundaries so multi-byte text is never split mid-character.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// ─────────────────────────────────────────────────────────────────────────────
// Main Entry
// ─────────────────────────────────────────────────────────────────────────────

func main() {
	// Best effort; the environment usually carries the API key already.
	_ = godotenv.Load()

	slog.Info("starting app", "version", version, "commit", commit, "date", date)
	appService := NewApp()

	app := application.New(application.Options{
		Name:        "Kwisper",
		Description: "Hold a key, speak, release. Your words appear at the cursor.",
		Services: []application.Service{
			application.NewService(appService),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		Mac: application.MacOptions{
			// Menu-bar app; no dock icon, no quit on window close.
			ActivationPolicy: application.ActivationPolicyAccessory,
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	// Settings window, hidden until asked for.
	settingsWindow := app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:  "Kwisper",
		Width:  520,
		Height: 640,
		URL:    "/",
		Hidden: true,
		Mac: application.MacWindow{
			TitleBar: application.MacTitleBarHiddenInset,
		},
	})

	// Intercept window close: hide instead of destroy so tray can reopen
	settingsWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		settingsWindow.Hide()
	})

	appService.Init(app, settingsWindow)

	// Setup system tray
	systemTray := app.SystemTray.New()
	systemTray.SetLabel(trayIdle)
	appService.tray = systemTray

	trayMenu := app.NewMenu()
	trayMenu.Add("Start/Stop Recording").OnClick(func(ctx *application.Context) {
		go appService.ToggleRecording()
	})
	trayMenu.Add("Cancel").OnClick(func(ctx *application.Context) {
		go appService.CancelSession()
	})
	trayMenu.AddSeparator()

	// Recent transcripts, re-copyable. Built at startup like the rest of
	// the menu; the settings window shows the live list.
	recentMenu := trayMenu.AddSubmenu("Recent Transcripts")
	if recents, err := appService.RecentTranscripts(10); err == nil && len(recents) > 0 {
		for _, r := range recents {
			entry := r
			recentMenu.Add(truncate(entry.Text, 48)).OnClick(func(ctx *application.Context) {
				if err := appService.CopyTranscript(entry.Text); err != nil {
					slog.Error("copy transcript", "error", err)
				}
			})
		}
	} else {
		recentMenu.Add("No transcripts yet").SetEnabled(false)
	}

	trayMenu.AddSeparator()
	trayMenu.Add("Settings…").OnClick(func(ctx *application.Context) {
		appService.showWindow()
	})
	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			appService.Shutdown()
			app.Quit()
		})

	systemTray.SetMenu(trayMenu)

	// Run application
	if err := app.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
}
