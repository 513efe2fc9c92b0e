package livetranslate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/llm"
)

func feedAll(chunks ...string) ([]types.TranslationResult, *Decoder) {
	var (
		d   Decoder
		out []types.TranslationResult
	)
	for _, c := range chunks {
		if r, ok := d.Feed(c); ok {
			out = append(out, r)
		}
	}
	if r, ok := d.Finish(); ok {
		out = append(out, r)
	}
	return out, &d
}

func TestDetectHeader(t *testing.T) {
	tests := []struct {
		line string
		want types.Language
	}{
		{"zh", types.LanguageZh},
		{"ZH", types.LanguageZh},
		{"Zh-CN", types.LanguageZh},
		{"language: zh", types.LanguageZh},
		{"en", types.LanguageEn},
		{"EN", types.LanguageEn},
		{"", types.LanguageEn},
		{"français", types.LanguageEn},
	}

	for _, tt := range tests {
		if got := DetectHeader(tt.line); got != tt.want {
			t.Errorf("DetectHeader(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestDecoder(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []types.TranslationResult
	}{
		{
			name:   "english input",
			chunks: []string{"en\n", "Bon", "jour"},
			want: []types.TranslationResult{
				{Language: types.LanguageEn, Text: "Bon"},
				{Language: types.LanguageEn, Text: "Bonjour"},
				{Language: types.LanguageEn, Text: "Bonjour", Complete: true},
			},
		},
		{
			name:   "chinese input",
			chunks: []string{"zh\n", "Hello"},
			want: []types.TranslationResult{
				{Language: types.LanguageZh, Text: "Hello"},
				{Language: types.LanguageZh, Text: "Hello", Complete: true},
			},
		},
		{
			name:   "text after newline in first chunk",
			chunks: []string{"ZH\nHel", "lo"},
			want: []types.TranslationResult{
				{Language: types.LanguageZh, Text: "Hel"},
				{Language: types.LanguageZh, Text: "Hello"},
				{Language: types.LanguageZh, Text: "Hello", Complete: true},
			},
		},
		{
			name:   "header split across chunks",
			chunks: []string{"z", "h extra", "\nHi"},
			want: []types.TranslationResult{
				{Language: types.LanguageZh, Text: "Hi"},
				{Language: types.LanguageZh, Text: "Hi", Complete: true},
			},
		},
		{
			name:   "empty chunks skipped",
			chunks: []string{"", "en\n", "", "A", ""},
			want: []types.TranslationResult{
				{Language: types.LanguageEn, Text: "A"},
				{Language: types.LanguageEn, Text: "A", Complete: true},
			},
		},
		{
			name:   "blank leading line",
			chunks: []string{"\n", "zh\n你"},
			want: []types.TranslationResult{
				{Language: types.LanguageZh, Text: "你"},
				{Language: types.LanguageZh, Text: "你", Complete: true},
			},
		},
		{
			name:   "later newlines kept verbatim",
			chunks: []string{"en\nline one\n", "line two"},
			want: []types.TranslationResult{
				{Language: types.LanguageEn, Text: "line one\n"},
				{Language: types.LanguageEn, Text: "line one\nline two"},
				{Language: types.LanguageEn, Text: "line one\nline two", Complete: true},
			},
		},
		{
			name:   "header only without newline",
			chunks: []string{"zh"},
			want: []types.TranslationResult{
				{Language: types.LanguageZh, Text: "", Complete: true},
			},
		},
		{
			name:   "empty stream",
			chunks: []string{"", ""},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := feedAll(tt.chunks...)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("result[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecoder_LanguageIsImmutable(t *testing.T) {
	_, d := feedAll("en\n", "zh zh zh\n", "ZH")
	lang, ok := d.Language()
	if !ok || lang != types.LanguageEn {
		t.Errorf("Language() = %q, %v; want en, true", lang, ok)
	}
}

func TestDecoder_PrefixGrowth(t *testing.T) {
	chunks := []string{"zh", "\n", "The ", "", "quick ", "brown\n", "fox", " jumps"}
	got, _ := feedAll(chunks...)

	prev := ""
	for i, r := range got {
		if !strings.HasPrefix(r.Text, prev) {
			t.Fatalf("result[%d] %q does not extend %q", i, r.Text, prev)
		}
		prev = r.Text
	}
	if prev != "The quick brown\nfox jumps" {
		t.Errorf("final text = %q", prev)
	}
}

func deltaChan(deltas ...llm.StreamDelta) <-chan llm.StreamDelta {
	ch := make(chan llm.StreamDelta, len(deltas))
	for _, d := range deltas {
		ch <- d
	}
	close(ch)
	return ch
}

func TestDecode(t *testing.T) {
	var got []types.TranslationResult
	err := Decode(context.Background(), deltaChan(
		llm.StreamDelta{Text: "en\n"},
		llm.StreamDelta{Text: "Bon"},
		llm.StreamDelta{Text: "jour"},
		llm.StreamDelta{Done: true, Usage: types.Usage{TotalTokens: 9}},
	), func(r types.TranslationResult) { got = append(got, r) })

	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	final := got[2]
	if !final.Complete || final.Text != "Bonjour" {
		t.Errorf("final = %+v", final)
	}
	if final.Usage == nil || final.Usage.TotalTokens != 9 {
		t.Errorf("final usage = %+v", final.Usage)
	}
}

func TestDecode_ErrorStopsSilently(t *testing.T) {
	boom := errors.New("connection reset")
	var got []types.TranslationResult
	err := Decode(context.Background(), deltaChan(
		llm.StreamDelta{Text: "zh\nHel"},
		llm.StreamDelta{Err: boom},
		llm.StreamDelta{Text: "lo"},
	), func(r types.TranslationResult) { got = append(got, r) })

	if !errors.Is(err, boom) {
		t.Fatalf("Decode() error = %v, want %v", err, boom)
	}
	if len(got) != 1 || got[0].Text != "Hel" || got[0].Complete {
		t.Errorf("results = %+v, want one partial", got)
	}
}

func TestDecode_EmptyStream(t *testing.T) {
	called := false
	err := Decode(context.Background(), deltaChan(llm.StreamDelta{Done: true}), func(types.TranslationResult) { called = true })
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if called {
		t.Error("empty stream produced a result")
	}
}

func TestDecode_Interrupted(t *testing.T) {
	err := Decode(context.Background(), deltaChan(llm.StreamDelta{Text: "en\nA"}), func(types.TranslationResult) {})
	if !errors.Is(err, ErrStreamInterrupted) {
		t.Errorf("Decode() error = %v, want ErrStreamInterrupted", err)
	}
}

func TestDecode_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Decode(ctx, make(chan llm.StreamDelta), func(types.TranslationResult) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Decode() error = %v, want context.Canceled", err)
	}
}
