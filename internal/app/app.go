package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.aimuz.me/livetrans/cache"
	"go.aimuz.me/livetrans/config"
	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/livetranslate"
	"go.aimuz.me/livetrans/llm"
	"go.aimuz.me/livetrans/tts"
)

// App holds the process-wide clients shared by every session.
type App struct {
	cfg        *config.Config
	cache      *cache.Cache
	translator *Translator
	synth      tts.Synthesizer
}

// New builds the translation stack described by cfg. The cache and speech
// synthesis are optional; failing to set them up is logged, not fatal.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	profile, cred, err := cfg.ResolveTranslation()
	if err != nil {
		return nil, err
	}

	streamer, err := llm.NewStreamer(ctx, cred.Type, cred.APIKey, cred.BaseURL, profile.Model, llm.Options{
		MaxTokens:       profile.MaxTokens,
		Temperature:     profile.SamplingTemperature(),
		DisableThinking: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create streamer: %w", err)
	}

	a := &App{cfg: cfg}
	a.setupCache()
	a.setupSpeech(ctx)

	a.translator = NewTranslator(streamer, TranslateProfile{
		Name:         profile.Name,
		Model:        profile.Model,
		SystemPrompt: profile.SystemPrompt,
	}, a.cache, time.Duration(cfg.Cache.TTL))

	slog.Info("translation ready", "profile", profile.Name, "provider", cred.Type, "model", profile.Model)
	return a, nil
}

// NewWith builds an App from prebuilt parts.
func NewWith(cfg *config.Config, translator *Translator, synth tts.Synthesizer) *App {
	return &App{cfg: cfg, translator: translator, synth: synth}
}

func (a *App) setupCache() {
	if a.cfg.Cache.Disabled {
		return
	}
	dir, err := a.cfg.CacheDir()
	if err != nil {
		slog.Error("get cache dir", "error", err)
		return
	}
	c, err := cache.New(cache.Options{Dir: dir})
	if err != nil {
		slog.Error("init cache", "error", err)
		return
	}
	a.cache = c
	slog.Info("cache initialized", "path", dir)
}

func (a *App) setupSpeech(ctx context.Context) {
	speech, cred, ok := a.cfg.ResolveSpeech()
	if !ok {
		slog.Info("remote speech not configured, using browser synthesis")
		return
	}
	synth, err := tts.NewSynthesizer(ctx, cred.Type, cred.APIKey, cred.BaseURL, speech.Model, tts.Voices{
		Zh: speech.VoiceZh,
		En: speech.VoiceEn,
	})
	if err != nil {
		slog.Warn("init speech synthesis", "error", err)
		return
	}
	a.synth = synth
}

// NewSession creates a browser session that reports to emit.
func (a *App) NewSession(emit EmitFunc) *Session {
	return NewSession(SessionConfig{
		Translate: a.translator.Stream,
		Synth:     a.synth,
		Timeout:   a.cfg.Timeout(),
	}, emit)
}

// Translate runs one translation to completion, calling emit for every
// partial and the final result.
func (a *App) Translate(ctx context.Context, text string, emit func(types.TranslationResult)) error {
	if timeout := a.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	deltas, err := a.translator.Stream(ctx, text)
	if err != nil {
		return err
	}
	return livetranslate.Decode(ctx, deltas, emit)
}

// Shutdown releases shared resources.
func (a *App) Shutdown() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
}
