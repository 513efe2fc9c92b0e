package tts

import (
	"context"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"go.aimuz.me/livetrans/internal/types"
)

const (
	defaultGeminiTTSModel = "gemini-2.5-flash-preview-tts"
	defaultGeminiVoiceZh  = "Kore"
	defaultGeminiVoiceEn  = "Puck"
	defaultPCMSampleRate  = 24000
)

type geminiSynthesizer struct {
	client *genai.Client
	model  string
	voices Voices
}

func newGeminiSynthesizer(ctx context.Context, apiKey, baseURL, model string, voices Voices) (*geminiSynthesizer, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultGeminiTTSModel
	}
	return &geminiSynthesizer{client: client, model: model, voices: voices}, nil
}

func (g *geminiSynthesizer) config(lang types.Language) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: g.voices.forLanguage(lang, defaultGeminiVoiceZh, defaultGeminiVoiceEn),
				},
			},
		},
	}
}

// Synthesize implements Synthesizer.
func (g *geminiSynthesizer) Synthesize(ctx context.Context, text string, lang types.Language) (Audio, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), g.config(lang))
	if err != nil {
		return Audio{}, fmt.Errorf("generate speech: %w", err)
	}
	return audioFromResponse(resp)
}

// audioFromResponse extracts the first inline audio blob. Raw PCM is wrapped
// in a WAV container so a browser can play it.
func audioFromResponse(resp *genai.GenerateContentResponse) (Audio, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Audio{}, ErrNoAudio
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
			continue
		}
		blob := p.InlineData
		if rate, ok := pcmRate(blob.MIMEType); ok {
			return Audio{Data: pcm16ToWAV(blob.Data, rate), MIMEType: "audio/wav"}, nil
		}
		return Audio{Data: blob.Data, MIMEType: blob.MIMEType}, nil
	}
	return Audio{}, ErrNoAudio
}

// pcmRate reports whether mimeType is raw 16-bit PCM and its sample rate.
func pcmRate(mimeType string) (int, bool) {
	mt, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, false
	}
	if !strings.EqualFold(mt, "audio/L16") && !strings.EqualFold(mt, "audio/pcm") {
		return 0, false
	}
	if r, err := strconv.Atoi(params["rate"]); err == nil && r > 0 {
		return r, true
	}
	return defaultPCMSampleRate, true
}
