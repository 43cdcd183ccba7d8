// Package session owns the recording/transcription lifecycle. Exactly
// one session exists process-wide; every state change goes through the
// Controller's serialized entry points, driven by the keyboard gesture
// and the menu-bar trigger alike.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.kwisper.app/kwisper/audiocapture"
	"go.kwisper.app/kwisper/frontapp"
	"go.kwisper.app/kwisper/internal/types"
	"go.kwisper.app/kwisper/stt"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	}
	return "idle"
}

// Transcriber is the transcription capability the pipeline submits to.
type Transcriber interface {
	Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error)
}

// Inserter delivers the transcribed text.
type Inserter interface {
	Insert(text string, source types.TriggerSource, target *frontapp.App) error
}

// Result describes one completed transcription, for history/telemetry.
type Result struct {
	ID       string
	Text     string
	Duration time.Duration
	Source   types.TriggerSource
}

// Config holds the live duration bounds and transcription hints. It is
// re-read at the transitions that use it, so changes apply to the next
// recording without a restart.
type Config struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	Language    string
	Prompt      string
}

// DefaultConfig returns the default bounds.
func DefaultConfig() Config {
	return Config{
		MinDuration: 500 * time.Millisecond,
		MaxDuration: 120 * time.Second,
	}
}

// Controller serializes the Idle -> Recording -> Transcribing -> Idle
// lifecycle across both trigger sources.
type Controller struct {
	cfg        func() Config
	capture    audiocapture.Capturer
	transcribe func() Transcriber
	insert     Inserter

	// onState runs on every state change; onResult after a successful
	// insertion. Both may be nil and must not block for long.
	onState  func(State)
	onResult func(Result)

	// startMu and stopMu each serialize one operation; a concurrent
	// duplicate is dropped, never queued.
	startMu sync.Mutex
	stopMu  sync.Mutex

	// mu guards everything below. No other component touches these.
	mu        sync.Mutex
	state     State
	take      *audiocapture.Take
	startedAt time.Time
	source    types.TriggerSource
	target    *frontapp.App
	maxTimer  *time.Timer
	jobCancel context.CancelFunc

	lastStartErr string
}

// Option configures a Controller.
type Option func(*Controller)

// WithStateListener registers the state-change callback.
func WithStateListener(fn func(State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// WithResultListener registers the completed-transcription callback.
func WithResultListener(fn func(Result)) Option {
	return func(c *Controller) { c.onResult = fn }
}

// NewController creates the session controller. cfg and transcriber are
// getters so configuration changes apply live.
func NewController(cfg func() Config, capture audiocapture.Capturer, transcriber func() Transcriber, inserter Inserter, opts ...Option) *Controller {
	c := &Controller{
		cfg:        cfg,
		capture:    capture,
		transcribe: transcriber,
		insert:     inserter,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a recording or transcription is in flight.
func (c *Controller) Busy() bool {
	return c.State() != StateIdle
}

// RequestStart begins a recording. While a transcription is in flight
// the same gesture means "cancel it" instead; while already recording it
// is a duplicate-start no-op.
func (c *Controller) RequestStart(source types.TriggerSource) {
	if !c.startMu.TryLock() {
		slog.Warn("concurrent start dropped", "source", source)
		return
	}
	defer c.startMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateTranscribing:
		slog.Info("start while transcribing cancels the job", "source", source)
		c.cancelJobLocked()
		return
	case StateRecording:
		slog.Debug("duplicate start ignored", "source", source)
		return
	}

	cfg := c.cfg()
	take := audiocapture.NewTake(cfg.MaxDuration)
	if err := c.capture.Start(take.Append); err != nil {
		c.reportStartError(err)
		return
	}
	c.lastStartErr = ""

	var target *frontapp.App
	if app, ok := frontapp.Frontmost(); ok {
		target = &app
	}

	c.state = StateRecording
	c.take = take
	c.startedAt = time.Now()
	c.source = source
	c.target = target
	c.maxTimer = time.AfterFunc(cfg.MaxDuration, func() {
		c.RequestStop(types.SourceTimer, false)
	})

	slog.Info("recording started", "source", source)
	c.notifyState(StateRecording)
}

// reportStartError logs a capture/permission failure, loudly the first
// time and quietly on repeats until the error changes. Caller holds mu.
func (c *Controller) reportStartError(err error) {
	if err.Error() == c.lastStartErr {
		slog.Debug("recording start still failing", "error", err)
		return
	}
	c.lastStartErr = err.Error()
	slog.Error("cannot start recording", "error", err)
}

// RequestStop ends the recording. cancel discards the take; so does a
// captured duration under the configured minimum. Otherwise the take is
// handed to the transcription pipeline.
func (c *Controller) RequestStop(source types.TriggerSource, cancel bool) {
	if !c.stopMu.TryLock() {
		slog.Warn("concurrent stop dropped", "source", source)
		return
	}
	defer c.stopMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return
	}

	if err := c.capture.Stop(); err != nil {
		slog.Error("stop audio capture", "error", err)
	}
	if c.maxTimer != nil {
		c.maxTimer.Stop()
		c.maxTimer = nil
	}

	take := c.take
	c.take = nil
	dur := take.Duration()
	cfg := c.cfg()

	if cancel || dur < cfg.MinDuration {
		if cancel {
			slog.Info("recording cancelled", "source", source, "duration", dur)
		} else {
			slog.Info("recording below minimum, discarded", "duration", dur, "min", cfg.MinDuration)
		}
		c.toIdleLocked()
		return
	}

	wavPath, err := writeTempWAV(take.Samples())
	if err != nil {
		slog.Error("persist recording", "error", err)
		c.toIdleLocked()
		return
	}

	ctx, jobCancel := context.WithCancel(context.Background())
	c.state = StateTranscribing
	c.jobCancel = jobCancel

	j := &job{
		id:       uuid.NewString(),
		wavPath:  wavPath,
		duration: dur,
		source:   c.source,
		target:   c.target,
		language: cfg.Language,
		prompt:   cfg.Prompt,
	}

	slog.Info("transcription started", "job", j.id, "duration", dur, "source", j.source)
	c.notifyState(StateTranscribing)

	go c.runJob(ctx, j)
}

// RequestCancel aborts whatever is in flight: a transcription job, or
// the current recording (equivalent to a cancelling stop). Idle is a
// no-op.
func (c *Controller) RequestCancel(source types.TriggerSource) {
	c.mu.Lock()
	state := c.state
	if state == StateTranscribing {
		c.cancelJobLocked()
	}
	c.mu.Unlock()

	if state == StateRecording {
		c.RequestStop(source, true)
	}
}

// cancelJobLocked signals the in-flight job. The job's own teardown
// moves the session back to idle. Caller holds mu.
func (c *Controller) cancelJobLocked() {
	if c.jobCancel != nil {
		c.jobCancel()
	}
}

// toIdleLocked resets to idle and notifies. Caller holds mu.
func (c *Controller) toIdleLocked() {
	c.state = StateIdle
	c.take = nil
	c.target = nil
	c.jobCancel = nil
	c.notifyState(StateIdle)
}

// notifyState invokes the state listener. It runs with mu held, so the
// listener must be quick and must not reenter the controller.
func (c *Controller) notifyState(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}

// writeTempWAV encodes the take into a temporary WAV file. The returned
// path is owned by the transcription job from here on.
func writeTempWAV(samples []float32) (string, error) {
	f, err := os.CreateTemp("", "kwisper-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp audio: %w", err)
	}
	if _, err := f.Write(stt.EncodeWAV(samples, audiocapture.SampleRate)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp audio: %w", err)
	}
	return f.Name(), nil
}
