package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultModel = "whisper-1"

// OpenAI implements Provider using the OpenAI audio transcription API.
type OpenAI struct {
	client openai.Client
	model  string
	ready  bool
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional, defaults to OpenAI's API
	Model   string // Optional, defaults to "whisper-1"
}

// NewOpenAI creates the OpenAI transcription provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(60 * time.Second),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		ready:  cfg.APIKey != "",
	}
}

func (o *OpenAI) Name() string        { return "openai" }
func (o *OpenAI) DisplayName() string { return "OpenAI Transcription API" }
func (o *OpenAI) IsLocal() bool       { return false }
func (o *OpenAI) IsReady() bool       { return o.ready }

// Transcribe submits the recorded WAV with the language and prompt
// hints. Errors come back as *Failure except for context cancellation.
func (o *OpenAI) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if !o.ready {
		return nil, &Failure{Class: FailureAuthorization, Err: errors.New("API key required")}
	}

	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, &Failure{Class: FailureBadRequest, Err: fmt.Errorf("open recording: %w", err)}
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(f, "audio.wav", "audio/wav"),
		Model: openai.AudioModel(o.model),
	}
	// The API rejects "auto"; an absent language means auto-detect.
	if req.Language != "" && req.Language != "auto" {
		params.Language = openai.String(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = openai.String(req.Prompt)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, Classify(fmt.Errorf("transcribe: %w", err), apiErr.StatusCode)
		}
		return nil, Classify(fmt.Errorf("transcribe: %w", err), 0)
	}

	return &Result{Text: strings.TrimSpace(resp.Text)}, nil
}

func (o *OpenAI) Close() error { return nil }
