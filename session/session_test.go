package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.kwisper.app/kwisper/audiocapture"
	"go.kwisper.app/kwisper/frontapp"
	"go.kwisper.app/kwisper/internal/types"
	"go.kwisper.app/kwisper/stt"
)

// fakeCapture feeds a fixed number of samples into the take on Start.
type fakeCapture struct {
	mu       sync.Mutex
	feed     []float32
	startErr error
	running  bool
}

func (f *fakeCapture) Start(h audiocapture.AudioHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	if len(f.feed) > 0 {
		h(f.feed)
	}
	return nil
}

func (f *fakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return nil
}

func (f *fakeCapture) isRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func samplesFor(d time.Duration) []float32 {
	return make([]float32, int(d.Seconds()*audiocapture.SampleRate))
}

// fakeTranscriber blocks until released or cancelled.
type fakeTranscriber struct {
	mu      sync.Mutex
	calls   int
	text    string
	err     error
	release chan struct{} // nil means return immediately
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	text, err := f.text, f.err
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &stt.Result{Text: text}, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeInserter records insertions.
type fakeInserter struct {
	mu      sync.Mutex
	inserts []string
	sources []types.TriggerSource
}

func (f *fakeInserter) Insert(text string, source types.TriggerSource, _ *frontapp.App) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, text)
	f.sources = append(f.sources, source)
	return nil
}

func (f *fakeInserter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserts)
}

func testController(capture *fakeCapture, tr Transcriber, ins Inserter, cfg Config) *Controller {
	return NewController(
		func() Config { return cfg },
		capture,
		func() Transcriber { return tr },
		ins,
	)
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}

func TestController_FullLifecycle(t *testing.T) {
	capture := &fakeCapture{feed: samplesFor(time.Second)}
	tr := &fakeTranscriber{text: "hello world"}
	ins := &fakeInserter{}
	c := testController(capture, tr, ins, DefaultConfig())

	c.RequestStart(types.SourceKeyboard)
	if got := c.State(); got != StateRecording {
		t.Fatalf("state after start = %v, want recording", got)
	}

	c.RequestStop(types.SourceKeyboard, false)
	waitForState(t, c, StateIdle)

	if got := ins.count(); got != 1 {
		t.Fatalf("insert count = %d, want 1", got)
	}
	ins.mu.Lock()
	defer ins.mu.Unlock()
	if ins.inserts[0] != "hello world" || ins.sources[0] != types.SourceKeyboard {
		t.Errorf("inserted %q via %q", ins.inserts[0], ins.sources[0])
	}
}

func TestController_MinimumDuration(t *testing.T) {
	tests := []struct {
		name      string
		duration  time.Duration
		wantCalls int
	}{
		{"0.4s discarded", 400 * time.Millisecond, 0},
		{"0.6s transcribed", 600 * time.Millisecond, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture := &fakeCapture{feed: samplesFor(tt.duration)}
			tr := &fakeTranscriber{text: "ok"}
			c := testController(capture, tr, &fakeInserter{}, DefaultConfig())

			c.RequestStart(types.SourceKeyboard)
			c.RequestStop(types.SourceKeyboard, false)
			waitForState(t, c, StateIdle)

			if got := tr.callCount(); got != tt.wantCalls {
				t.Errorf("transcribe calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestController_CancelDiscardsRecording(t *testing.T) {
	capture := &fakeCapture{feed: samplesFor(3 * time.Second)}
	tr := &fakeTranscriber{text: "ignored"}
	c := testController(capture, tr, &fakeInserter{}, DefaultConfig())

	c.RequestStart(types.SourceKeyboard)
	c.RequestStop(types.SourceKeyboard, true)

	if got := c.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
	if got := tr.callCount(); got != 0 {
		t.Errorf("transcribe calls = %d, want 0", got)
	}
}

func TestController_StartWhileTranscribingCancels(t *testing.T) {
	capture := &fakeCapture{feed: samplesFor(time.Second)}
	tr := &fakeTranscriber{text: "slow", release: make(chan struct{})}
	ins := &fakeInserter{}
	c := testController(capture, tr, ins, DefaultConfig())

	c.RequestStart(types.SourceKeyboard)
	c.RequestStop(types.SourceKeyboard, false)
	waitForState(t, c, StateTranscribing)

	// Pressing the shortcut again cancels; it never starts a recording.
	c.RequestStart(types.SourceKeyboard)
	waitForState(t, c, StateIdle)

	if capture.isRunning() {
		t.Error("capture restarted by cancelling start")
	}
	if got := ins.count(); got != 0 {
		t.Errorf("insert count = %d, want 0 after cancellation", got)
	}
}

func TestController_CancelAfterSubmission(t *testing.T) {
	capture := &fakeCapture{feed: samplesFor(time.Second)}
	tr := &fakeTranscriber{text: "discarded", release: make(chan struct{})}
	ins := &fakeInserter{}
	c := testController(capture, tr, ins, DefaultConfig())

	c.RequestStart(types.SourceTray)
	c.RequestStop(types.SourceTray, false)
	waitForState(t, c, StateTranscribing)

	// The job is mid-flight on the remote call.
	deadline := time.Now().Add(2 * time.Second)
	for tr.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	c.RequestCancel(types.SourceTray)
	waitForState(t, c, StateIdle)

	if got := ins.count(); got != 0 {
		t.Errorf("insert count = %d, want 0; clipboard must stay untouched", got)
	}
	if leftovers := tempWAVs(t); len(leftovers) != 0 {
		t.Errorf("temp audio not deleted: %v", leftovers)
	}
}

func TestController_TranscriptionFailureReturnsToIdle(t *testing.T) {
	capture := &fakeCapture{feed: samplesFor(time.Second)}
	tr := &fakeTranscriber{err: &stt.Failure{Class: stt.FailureServer, Err: os.ErrDeadlineExceeded}}
	ins := &fakeInserter{}
	c := testController(capture, tr, ins, DefaultConfig())

	c.RequestStart(types.SourceKeyboard)
	c.RequestStop(types.SourceKeyboard, false)
	waitForState(t, c, StateIdle)

	if got := ins.count(); got != 0 {
		t.Errorf("insert count = %d, want 0 on failure", got)
	}
	if leftovers := tempWAVs(t); len(leftovers) != 0 {
		t.Errorf("temp audio not deleted: %v", leftovers)
	}
}

func TestController_ConcurrentStartsOneWinner(t *testing.T) {
	capture := &fakeCapture{feed: samplesFor(time.Second)}
	tr := &fakeTranscriber{text: "ok"}
	c := testController(capture, tr, &fakeInserter{}, DefaultConfig())

	var starts int
	var mu sync.Mutex
	c.onState = func(s State) {
		if s == StateRecording {
			mu.Lock()
			starts++
			mu.Unlock()
		}
	}

	var wg sync.WaitGroup
	for _, src := range []types.TriggerSource{types.SourceKeyboard, types.SourceTray} {
		wg.Add(1)
		go func(src types.TriggerSource) {
			defer wg.Done()
			c.RequestStart(src)
		}(src)
	}
	wg.Wait()

	if got := c.State(); got != StateRecording {
		t.Fatalf("state = %v, want recording", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if starts != 1 {
		t.Errorf("recording transitions = %d, want exactly 1", starts)
	}
}

func TestController_CaptureFailureStaysIdle(t *testing.T) {
	capture := &fakeCapture{startErr: os.ErrPermission}
	c := testController(capture, &fakeTranscriber{}, &fakeInserter{}, DefaultConfig())

	c.RequestStart(types.SourceKeyboard)

	if got := c.State(); got != StateIdle {
		t.Errorf("state = %v, want idle after capture failure", got)
	}
}

func TestController_MaxDurationStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDuration = 50 * time.Millisecond
	cfg.MinDuration = time.Millisecond

	capture := &fakeCapture{feed: samplesFor(time.Second)}
	tr := &fakeTranscriber{text: "timed out"}
	ins := &fakeInserter{}
	c := testController(capture, tr, ins, cfg)

	c.RequestStart(types.SourceKeyboard)

	// The max-duration timer behaves like a plain stop: the take goes to
	// transcription and comes back idle.
	waitForState(t, c, StateIdle)
	if got := ins.count(); got != 1 {
		t.Errorf("insert count = %d, want 1 after max-duration stop", got)
	}
}

// tempWAVs lists leftover recording files in the temp dir.
func tempWAVs(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "kwisper-*.wav"))
	if err != nil {
		t.Fatalf("glob temp dir: %v", err)
	}
	return matches
}
