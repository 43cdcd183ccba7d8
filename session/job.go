package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"go.kwisper.app/kwisper/frontapp"
	"go.kwisper.app/kwisper/internal/types"
	"go.kwisper.app/kwisper/stt"
)

// job is one transcription of one finished take. Exactly one may be
// outstanding; it owns the temporary WAV file.
type job struct {
	id       string
	wavPath  string
	duration time.Duration
	source   types.TriggerSource
	target   *frontapp.App
	language string
	prompt   string
}

// runJob submits the take and delivers the result. The cancellation
// token is checked before submission and before insertion; a remote call
// already issued runs out on its own and its result is discarded. On
// every exit path the temp WAV is deleted once and the session returns
// to idle.
func (c *Controller) runJob(ctx context.Context, j *job) {
	defer func() {
		if err := os.Remove(j.wavPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove temp audio", "job", j.id, "error", err)
		}

		c.mu.Lock()
		c.toIdleLocked()
		c.mu.Unlock()
	}()

	if ctx.Err() != nil {
		slog.Info("transcription cancelled before submission", "job", j.id)
		return
	}

	result, err := c.transcribe().Transcribe(ctx, stt.Request{
		AudioPath: j.wavPath,
		Language:  j.language,
		Prompt:    j.prompt,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("transcription cancelled", "job", j.id)
			return
		}
		var failure *stt.Failure
		if errors.As(err, &failure) {
			slog.Error("transcription failed", "job", j.id, "class", failure.Class.String(), "error", err)
		} else {
			slog.Error("transcription failed", "job", j.id, "error", err)
		}
		// No retry; the user re-records.
		return
	}

	if ctx.Err() != nil {
		slog.Info("transcription cancelled, result discarded", "job", j.id)
		return
	}

	if result.Text == "" {
		slog.Info("empty transcription, nothing to insert", "job", j.id)
		return
	}

	if err := c.insert.Insert(result.Text, j.source, j.target); err != nil {
		slog.Error("insert transcription", "job", j.id, "error", err)
		return
	}

	slog.Info("transcription inserted", "job", j.id, "chars", len(result.Text))

	if c.onResult != nil {
		c.onResult(Result{
			ID:       j.id,
			Text:     result.Text,
			Duration: j.duration,
			Source:   j.source,
		})
	}
}
