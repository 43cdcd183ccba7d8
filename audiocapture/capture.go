// Package audiocapture provides microphone capture as float32 PCM.
package audiocapture

import (
	"errors"
	"sync"
	"time"
)

// ErrUnsupported is returned on platforms without a capture implementation.
var ErrUnsupported = errors.New("audiocapture: not supported on this platform")

// ErrRunning is returned when trying to start capture while already capturing.
var ErrRunning = errors.New("audiocapture: already capturing")

// SampleRate is the fixed capture rate. Whisper expects 16 kHz mono.
const SampleRate = 16000

// AudioHandler receives float32 samples in the range [-1, 1].
type AudioHandler func(samples []float32)

// Capturer records from the default input device.
type Capturer interface {
	// Start begins capture, delivering samples to handler from the
	// capture thread. Fails when the microphone permission is missing
	// or the device is busy.
	Start(handler AudioHandler) error

	// Stop ends capture. Safe to call when not capturing.
	Stop() error
}

// Take accumulates the samples of one recording up to a fixed cap.
// The capture callback appends while other goroutines read the duration,
// so access is mutex-guarded.
type Take struct {
	mu      sync.Mutex
	samples []float32
	max     int
}

// NewTake creates a take buffer capped at the given duration.
func NewTake(maxDur time.Duration) *Take {
	maxSamples := int(maxDur.Seconds() * SampleRate)
	initial := maxSamples
	if initial > 10*SampleRate {
		initial = 10 * SampleRate
	}
	return &Take{
		samples: make([]float32, 0, initial),
		max:     maxSamples,
	}
}

// Append adds samples, silently dropping anything past the cap.
func (t *Take) Append(samples []float32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.max - len(t.samples)
	if room <= 0 {
		return
	}
	if len(samples) > room {
		samples = samples[:room]
	}
	t.samples = append(t.samples, samples...)
}

// Samples returns the accumulated audio. Ownership passes to the caller;
// the take is not reused afterwards.
func (t *Take) Samples() []float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samples
}

// Duration derives the captured duration from the sample count. The
// minimum-length rule runs against this post-hoc value.
func (t *Take) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(float64(len(t.samples)) / SampleRate * float64(time.Second))
}
