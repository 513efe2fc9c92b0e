package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"go.aimuz.me/livetrans/internal/types"
)

// openaiStreamer implements Streamer for OpenAI and compatible APIs.
type openaiStreamer struct {
	cfg    completerConfig
	client openai.Client
}

func newOpenAIStreamer(cfg completerConfig, isCompatible bool) *openaiStreamer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.apiKey)}
	if isCompatible && cfg.baseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.baseURL))
	}
	return &openaiStreamer{cfg: cfg, client: openai.NewClient(opts...)}
}

func (c *openaiStreamer) buildParams(messages []Message) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.model),
		Messages:    msgs,
		Temperature: openai.Float(c.cfg.temperature),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if c.cfg.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.cfg.maxTokens))
	}
	return params
}

// Stream implements Streamer.
func (c *openaiStreamer) Stream(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.buildParams(messages))

	ch := make(chan StreamDelta, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		openaiPull(ctx, ch, stream)
	}()
	return ch, nil
}

// chunkStream is the subset of ssestream.Stream used by openaiPull.
type chunkStream interface {
	Next() bool
	Current() openai.ChatCompletionChunk
	Err() error
}

func openaiPull(ctx context.Context, ch chan<- StreamDelta, stream chunkStream) {
	var usage types.Usage
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			usage = types.Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		if !send(ctx, ch, StreamDelta{Text: text}) {
			return
		}
	}
	if err := stream.Err(); err != nil {
		send(ctx, ch, StreamDelta{Err: fmt.Errorf("openai stream: %w", err)})
		return
	}
	send(ctx, ch, StreamDelta{Done: true, Usage: usage})
}
