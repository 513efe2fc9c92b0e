// Package llm provides streaming clients for LLM chat APIs.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.aimuz.me/livetrans/internal/types"
)

// ErrMissingAPIKey is returned when a streamer is built without credentials.
var ErrMissingAPIKey = errors.New("llm: api key required")

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures LLM completion behavior.
type Options struct {
	MaxTokens       int
	Temperature     float64
	DisableThinking bool // For Gemini: set thinkingBudget to 0
}

// StreamDelta is one piece of a streamed completion.
// The last value on a channel has Done set, or Err set if the stream failed.
type StreamDelta struct {
	Text  string
	Done  bool
	Usage types.Usage
	Err   error
}

// Streamer performs streamed chat completions.
// The returned channel is closed after a Done or Err delta, or when ctx ends.
type Streamer interface {
	Stream(ctx context.Context, messages []Message) (<-chan StreamDelta, error)
}

// completerConfig holds all parameters needed by streamers.
type completerConfig struct {
	apiKey          string
	baseURL         string
	model           string
	maxTokens       int
	temperature     float64
	disableThinking bool
}

// NewStreamer creates a Streamer for the given provider type.
func NewStreamer(ctx context.Context, apiType, apiKey, baseURL, model string, opts Options) (Streamer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := completerConfig{
		apiKey:          apiKey,
		baseURL:         baseURL,
		model:           model,
		maxTokens:       opts.MaxTokens,
		temperature:     opts.Temperature,
		disableThinking: opts.DisableThinking,
	}

	switch apiType {
	case types.ProviderGemini:
		s, err := newGeminiStreamer(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create gemini streamer: %w", err)
		}
		return s, nil
	case types.ProviderOpenAI, types.ProviderOpenAICompatible:
		return newOpenAIStreamer(cfg, apiType == types.ProviderOpenAICompatible), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider type %q", apiType)
	}
}

// send delivers d unless ctx is done first.
func send(ctx context.Context, ch chan<- StreamDelta, d StreamDelta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
