package audiocapture

import (
	"testing"
	"time"
)

func TestTake_AppendAndDuration(t *testing.T) {
	take := NewTake(10 * time.Second)

	// One second of audio in several chunks.
	chunk := make([]float32, SampleRate/4)
	for i := 0; i < 4; i++ {
		take.Append(chunk)
	}

	if got := take.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
	if got := len(take.Samples()); got != SampleRate {
		t.Errorf("len(Samples()) = %d, want %d", got, SampleRate)
	}
}

func TestTake_CapsAtMaxDuration(t *testing.T) {
	take := NewTake(time.Second)

	// Two seconds offered, one second kept.
	take.Append(make([]float32, 2*SampleRate))

	if got := len(take.Samples()); got != SampleRate {
		t.Errorf("len(Samples()) = %d, want cap %d", got, SampleRate)
	}
	if got := take.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}

	// Further appends are dropped.
	take.Append(make([]float32, 100))
	if got := len(take.Samples()); got != SampleRate {
		t.Errorf("after overflow append: len = %d, want %d", got, SampleRate)
	}
}

func TestTake_Empty(t *testing.T) {
	take := NewTake(time.Second)
	if got := take.Duration(); got != 0 {
		t.Errorf("Duration() = %v, want 0", got)
	}
	if got := take.Samples(); len(got) != 0 {
		t.Errorf("Samples() = %d samples, want none", len(got))
	}
}
