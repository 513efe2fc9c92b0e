package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.aimuz.me/livetrans/cache"
	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/livetranslate"
	"go.aimuz.me/livetrans/llm"
)

// DefaultSystemPrompt instructs the model to detect zh/en, translate to the
// other language, and put the detected language alone on the first line.
const DefaultSystemPrompt = `You are a real-time interpreter between Chinese and English.
Detect whether the user's text is Chinese or English.
On the first line output only the detected language code: "zh" or "en".
Starting on the second line output the translation into the other language.
Output nothing else: no quotes, notes, or explanations.`

// Translator encapsulates translation logic with caching.
// Zero value is not useful; create via NewTranslator.
type Translator struct {
	streamer llm.Streamer
	profile  TranslateProfile
	cache    *cache.Cache
	ttl      time.Duration
}

// TranslateProfile holds the minimal config needed for translation.
type TranslateProfile struct {
	Name         string
	Model        string
	SystemPrompt string
}

// NewTranslator creates a Translator. c may be nil to disable caching.
func NewTranslator(streamer llm.Streamer, profile TranslateProfile, c *cache.Cache, ttl time.Duration) *Translator {
	return &Translator{streamer: streamer, profile: profile, cache: c, ttl: ttl}
}

// Stream opens a translation stream for text. A cached translation is
// replayed as a synthetic stream so callers decode both the same way.
func (t *Translator) Stream(ctx context.Context, text string) (<-chan llm.StreamDelta, error) {
	key := t.cacheKey(text)
	if entry, ok := t.getCached(key); ok {
		return replay(entry), nil
	}

	deltas, err := t.streamer.Stream(ctx, buildTranslateMessages(t.profile.SystemPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	if t.cache == nil {
		return deltas, nil
	}
	return t.tee(ctx, key, deltas), nil
}

func buildTranslateMessages(systemPrompt, text string) []llm.Message {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: text},
	}
}

// tee forwards deltas unchanged and caches the decoded translation once the
// stream completes normally.
func (t *Translator) tee(ctx context.Context, key string, in <-chan llm.StreamDelta) <-chan llm.StreamDelta {
	out := make(chan llm.StreamDelta)
	go func() {
		defer close(out)
		var dec livetranslate.Decoder
		for d := range in {
			if d.Text != "" {
				dec.Feed(d.Text)
			}
			if d.Done {
				if r, ok := dec.Finish(); ok && r.Text != "" {
					t.setCache(key, r, d.Usage)
				}
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func replay(entry *cache.Entry) <-chan llm.StreamDelta {
	ch := make(chan llm.StreamDelta, 3)
	ch <- llm.StreamDelta{Text: entry.Language + "\n"}
	if entry.Text != "" {
		ch <- llm.StreamDelta{Text: entry.Text}
	}
	ch <- llm.StreamDelta{
		Done: true,
		Usage: types.Usage{
			PromptTokens:     entry.Usage.PromptTokens,
			CompletionTokens: entry.Usage.CompletionTokens,
			TotalTokens:      entry.Usage.TotalTokens,
			CacheHit:         true,
		},
	}
	close(ch)
	return ch
}

func (t *Translator) cacheKey(text string) string {
	return cache.GenerateKey(t.profile.Name, t.profile.Model, t.profile.SystemPrompt, text)
}

func (t *Translator) getCached(key string) (*cache.Entry, bool) {
	if t.cache == nil {
		return nil, false
	}
	return t.cache.Get(key)
}

func (t *Translator) setCache(key string, r types.TranslationResult, usage types.Usage) {
	entry := &cache.Entry{
		Language: string(r.Language),
		Text:     r.Text,
		Usage: cache.Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
		CreatedAt: time.Now(),
	}

	// Ignore error - caching is best effort
	_ = t.cache.Set(key, entry, t.ttl)
}
