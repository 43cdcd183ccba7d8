// Package stt provides the speech-to-text capability interface and
// implementations.
package stt

import "context"

// Result represents the result of a transcription.
type Result struct {
	Text     string `json:"text"`     // Transcribed text
	Language string `json:"language"` // Detected language code, if reported
}

// Request carries one finished recording and its hints.
type Request struct {
	// AudioPath is a WAV file on disk (16 kHz mono). The caller keeps
	// ownership; providers only read it.
	AudioPath string
	// Language is the source language hint (empty for auto-detect).
	Language string
	// Prompt biases the model towards expected vocabulary.
	Prompt string
}

// Provider defines the interface for speech-to-text providers. The wire
// format behind Transcribe is the provider's business; callers see text
// or a typed failure.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// DisplayName returns the human-readable provider name.
	DisplayName() string

	// IsLocal returns true if the provider runs locally without API calls.
	IsLocal() bool

	// IsReady returns true if the provider is ready to use.
	IsReady() bool

	// Transcribe converts one recording to text. It honors ctx
	// cancellation between retryable steps; a request already on the
	// wire runs to completion and its result is discarded by the caller.
	Transcribe(ctx context.Context, req Request) (*Result, error)

	// Close releases resources held by the provider.
	Close() error
}

// Registry holds registered STT providers.
type Registry struct {
	providers map[string]Provider
	order     []string
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	if _, ok := r.providers[p.Name()]; !ok {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil.
func (r *Registry) Get(name string) Provider {
	return r.providers[name]
}

// List returns all registered providers in registration order.
func (r *Registry) List() []Provider {
	result := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.providers[name])
	}
	return result
}

// Close releases all providers.
func (r *Registry) Close() error {
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			return err
		}
	}
	return nil
}
