package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"go.aimuz.me/livetrans/internal/types"
)

// geminiStreamer implements Streamer for the Gemini API.
type geminiStreamer struct {
	cfg    completerConfig
	client *genai.Client
}

func newGeminiStreamer(ctx context.Context, cfg completerConfig) (*geminiStreamer, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &geminiStreamer{cfg: cfg, client: client}, nil
}

// buildRequest converts messages into Gemini contents plus a config carrying
// the system instruction and sampling parameters.
func (g *geminiStreamer) buildRequest(messages []Message) (*genai.GenerateContentConfig, []*genai.Content) {
	var (
		contents []*genai.Content
		system   []string
	)
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.cfg.temperature)),
	}
	if g.cfg.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.cfg.maxTokens)
	}
	if g.cfg.disableThinking {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(strings.Join(system, "\n"))},
		}
	}
	return cfg, contents
}

// Stream implements Streamer.
func (g *geminiStreamer) Stream(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	cfg, contents := g.buildRequest(messages)
	if len(contents) == 0 {
		return nil, errors.New("no contents")
	}

	ch := make(chan StreamDelta, 16)
	go func() {
		defer close(ch)
		geminiPull(ctx, ch, g.client.Models.GenerateContentStream(ctx, g.cfg.model, contents, cfg))
	}()
	return ch, nil
}

// geminiPull forwards text parts of the first candidate to ch.
func geminiPull(ctx context.Context, ch chan<- StreamDelta, itr iter.Seq2[*genai.GenerateContentResponse, error]) {
	var usage types.Usage
	for chunk, err := range itr {
		if err != nil {
			send(ctx, ch, StreamDelta{Err: fmt.Errorf("gemini stream: %w", err)})
			return
		}
		if chunk.UsageMetadata != nil {
			usage = geminiToUsage(chunk.UsageMetadata)
		}
		if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}

		var sb strings.Builder
		for _, p := range chunk.Candidates[0].Content.Parts {
			if p.Thought {
				continue
			}
			sb.WriteString(p.Text)
		}
		if sb.Len() == 0 {
			continue
		}
		if !send(ctx, ch, StreamDelta{Text: sb.String()}) {
			return
		}
	}
	send(ctx, ch, StreamDelta{Done: true, Usage: usage})
}

func geminiToUsage(u *genai.GenerateContentResponseUsageMetadata) types.Usage {
	if u == nil {
		return types.Usage{}
	}
	return types.Usage{
		PromptTokens:     int(u.PromptTokenCount),
		CompletionTokens: int(u.CandidatesTokenCount),
		TotalTokens:      int(u.TotalTokenCount),
	}
}
