package livetranslate

import (
	"context"
	"errors"
	"strings"

	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/llm"
)

// ErrStreamInterrupted is returned by Decode when the delta channel closes
// without a Done or Err delta, usually because the request was cancelled.
var ErrStreamInterrupted = errors.New("livetranslate: stream interrupted")

// DetectHeader decides the language from the first line of a response.
func DetectHeader(line string) types.Language {
	if strings.Contains(strings.ToLower(line), "zh") {
		return types.LanguageZh
	}
	return types.LanguageEn
}

// Decoder turns streamed chunks into TranslationResults.
//
// The response's first line carries the language tag and is dropped; every
// byte after it is appended to the translation in arrival order. A Decoder
// handles exactly one stream.
type Decoder struct {
	header  strings.Builder
	lang    types.Language
	decided bool
	seen    bool
	text    strings.Builder
}

// Feed consumes one chunk. It returns a result only when translation text
// was appended.
func (d *Decoder) Feed(chunk string) (types.TranslationResult, bool) {
	if chunk == "" {
		return types.TranslationResult{}, false
	}
	d.seen = true

	for !d.decided {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			d.header.WriteString(chunk)
			return types.TranslationResult{}, false
		}
		d.header.WriteString(chunk[:i])
		chunk = chunk[i+1:]
		if strings.TrimSpace(d.header.String()) == "" {
			// Blank leading line; keep scanning for the tag.
			d.header.Reset()
			continue
		}
		d.decide()
	}

	if chunk == "" {
		return types.TranslationResult{}, false
	}
	d.text.WriteString(chunk)
	return d.result(false), true
}

// Finish is called when the stream ended normally. It returns the final
// result, or false if no non-empty chunk ever arrived.
func (d *Decoder) Finish() (types.TranslationResult, bool) {
	if !d.seen {
		return types.TranslationResult{}, false
	}
	if !d.decided {
		d.decide()
	}
	return d.result(true), true
}

// Language returns the detected language and whether it has been decided.
func (d *Decoder) Language() (types.Language, bool) {
	return d.lang, d.decided
}

func (d *Decoder) decide() {
	d.lang = DetectHeader(d.header.String())
	d.decided = true
	d.header.Reset()
}

func (d *Decoder) result(complete bool) types.TranslationResult {
	return types.TranslationResult{
		Language: d.lang,
		Text:     d.text.String(),
		Complete: complete,
	}
}

// Decode reads deltas in order and calls emit for every result. It returns
// nil after the final result on a normal end (or after nothing, for an empty
// stream), the stream's error if it failed, or ErrStreamInterrupted if the
// channel closed early. Failures never produce a result.
func Decode(ctx context.Context, deltas <-chan llm.StreamDelta, emit func(types.TranslationResult)) error {
	var d Decoder
	for {
		var (
			delta llm.StreamDelta
			ok    bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delta, ok = <-deltas:
		}
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrStreamInterrupted
		}

		switch {
		case delta.Err != nil:
			return delta.Err
		case delta.Text != "":
			if r, ok := d.Feed(delta.Text); ok {
				emit(r)
			}
		}

		if delta.Done {
			if r, ok := d.Finish(); ok {
				usage := delta.Usage
				r.Usage = &usage
				emit(r)
			}
			return nil
		}
	}
}
