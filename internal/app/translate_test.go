package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/livetrans/cache"
	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/livetranslate"
	"go.aimuz.me/livetrans/llm"
)

// mockStreamer implements llm.Streamer for testing.
type mockStreamer struct {
	mu       sync.Mutex
	chunks   []string
	usage    types.Usage
	err      error
	streamed []string
}

func (m *mockStreamer) Stream(ctx context.Context, msgs []llm.Message) (<-chan llm.StreamDelta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.streamed = append(m.streamed, msgs[len(msgs)-1].Content)

	ch := make(chan llm.StreamDelta, len(m.chunks)+1)
	for _, c := range m.chunks {
		ch <- llm.StreamDelta{Text: c}
	}
	ch <- llm.StreamDelta{Done: true, Usage: m.usage}
	close(ch)
	return ch, nil
}

func (m *mockStreamer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streamed)
}

func TestBuildTranslateMessages(t *testing.T) {
	tests := []struct {
		name         string
		systemPrompt string
		text         string
		wantSystem   string
	}{
		{
			name:         "custom prompt",
			systemPrompt: "You are a translator.",
			text:         "Hello",
			wantSystem:   "You are a translator.",
		},
		{
			name:         "empty prompt uses default",
			systemPrompt: "",
			text:         "你好",
			wantSystem:   DefaultSystemPrompt,
		},
		{
			name:         "blank prompt uses default",
			systemPrompt: "  \n",
			text:         "Test",
			wantSystem:   DefaultSystemPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := buildTranslateMessages(tt.systemPrompt, tt.text)

			if len(msgs) != 2 {
				t.Fatalf("got %d messages, want 2", len(msgs))
			}
			if msgs[0].Role != "system" || msgs[0].Content != tt.wantSystem {
				t.Errorf("system message = %+v", msgs[0])
			}
			if msgs[1].Role != "user" || msgs[1].Content != tt.text {
				t.Errorf("user message = %+v, want raw input", msgs[1])
			}
		})
	}
}

func TestDefaultSystemPrompt(t *testing.T) {
	for _, want := range []string{`"zh"`, `"en"`, "first line"} {
		if !strings.Contains(DefaultSystemPrompt, want) {
			t.Errorf("DefaultSystemPrompt missing %s", want)
		}
	}
}

func collect(t *testing.T, tr *Translator, text string) []types.TranslationResult {
	t.Helper()
	deltas, err := tr.Stream(context.Background(), text)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	var out []types.TranslationResult
	if err := livetranslate.Decode(context.Background(), deltas, func(r types.TranslationResult) {
		out = append(out, r)
	}); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

func TestTranslator_Stream(t *testing.T) {
	m := &mockStreamer{chunks: []string{"en\n", "Bon", "jour"}}
	tr := NewTranslator(m, TranslateProfile{Name: "p", Model: "m"}, nil, 0)

	got := collect(t, tr, "hello")
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	final := got[2]
	if !final.Complete || final.Text != "Bonjour" || final.Language != types.LanguageEn {
		t.Errorf("final = %+v", final)
	}
}

func TestTranslator_StreamError(t *testing.T) {
	boom := errors.New("401 unauthorized")
	tr := NewTranslator(&mockStreamer{err: boom}, TranslateProfile{}, nil, 0)
	if _, err := tr.Stream(context.Background(), "hello"); !errors.Is(err, boom) {
		t.Errorf("Stream() error = %v, want %v", err, boom)
	}
}

func TestTranslator_CacheHit(t *testing.T) {
	c, err := cache.New(cache.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	m := &mockStreamer{
		chunks: []string{"zh\n", "Hel", "lo"},
		usage:  types.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
	}
	tr := NewTranslator(m, TranslateProfile{Name: "p", Model: "m"}, c, time.Hour)

	first := collect(t, tr, "你好")
	if n := len(first); n == 0 || first[n-1].Usage == nil || first[n-1].Usage.CacheHit {
		t.Fatalf("first run final = %+v", first)
	}

	second := collect(t, tr, "你好")
	if m.calls() != 1 {
		t.Errorf("remote calls = %d, want 1", m.calls())
	}
	final := second[len(second)-1]
	if !final.Complete || final.Text != "Hello" || final.Language != types.LanguageZh {
		t.Errorf("cached final = %+v", final)
	}
	if final.Usage == nil || !final.Usage.CacheHit || final.Usage.TotalTokens != 7 {
		t.Errorf("cached usage = %+v", final.Usage)
	}
}

func TestTranslator_EmptyResultNotCached(t *testing.T) {
	c, err := cache.New(cache.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	m := &mockStreamer{chunks: []string{"en"}}
	tr := NewTranslator(m, TranslateProfile{}, c, 0)
	collect(t, tr, "x")
	collect(t, tr, "x")
	if m.calls() != 2 {
		t.Errorf("remote calls = %d, want 2", m.calls())
	}
}
