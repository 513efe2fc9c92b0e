// Package tts synthesizes speech for translated text.
package tts

import (
	"context"
	"errors"
	"fmt"

	"go.aimuz.me/livetrans/internal/types"
)

// ErrNoAudio is returned when a synthesis response carries no audio payload.
var ErrNoAudio = errors.New("tts: no audio in response")

// Audio is an encoded clip ready for playback.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang types.Language) (Audio, error)
}

// Voices maps each language to a provider voice name.
type Voices struct {
	Zh string
	En string
}

func (v Voices) forLanguage(lang types.Language, fallbackZh, fallbackEn string) string {
	if lang == types.LanguageZh {
		if v.Zh != "" {
			return v.Zh
		}
		return fallbackZh
	}
	if v.En != "" {
		return v.En
	}
	return fallbackEn
}

// NewSynthesizer creates a Synthesizer for the given provider type.
func NewSynthesizer(ctx context.Context, apiType, apiKey, baseURL, model string, voices Voices) (Synthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("tts: api key required")
	}
	switch apiType {
	case types.ProviderGemini:
		s, err := newGeminiSynthesizer(ctx, apiKey, baseURL, model, voices)
		if err != nil {
			return nil, fmt.Errorf("create gemini synthesizer: %w", err)
		}
		return s, nil
	case types.ProviderOpenAI, types.ProviderOpenAICompatible:
		return newOpenAISynthesizer(apiKey, baseURL, model, voices), nil
	default:
		return nil, fmt.Errorf("tts: unknown provider type %q", apiType)
	}
}
