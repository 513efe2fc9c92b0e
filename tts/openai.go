package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"go.aimuz.me/livetrans/internal/types"
)

const (
	defaultOpenAITTSModel = openai.SpeechModelGPT4oMiniTTS
	defaultOpenAIVoice    = string(openai.AudioSpeechNewParamsVoiceAlloy)
)

type openaiSynthesizer struct {
	client openai.Client
	model  string
	voices Voices
}

func newOpenAISynthesizer(apiKey, baseURL, model string, voices Voices) *openaiSynthesizer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultOpenAITTSModel
	}
	return &openaiSynthesizer{
		client: openai.NewClient(opts...),
		model:  model,
		voices: voices,
	}
}

// Synthesize implements Synthesizer.
func (o *openaiSynthesizer) Synthesize(ctx context.Context, text string, lang types.Language) (Audio, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          o.model,
		Voice:          openai.AudioSpeechNewParamsVoice(o.voices.forLanguage(lang, defaultOpenAIVoice, defaultOpenAIVoice)),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return Audio{}, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("read speech: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, ErrNoAudio
	}
	return Audio{Data: data, MIMEType: "audio/mpeg"}, nil
}
