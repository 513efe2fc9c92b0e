package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"go.aimuz.me/livetrans/stt"
	"go.aimuz.me/livetrans/tts"
)

// errClosed is returned by browser adapters after the connection closed.
var errClosed = errors.New("app: connection closed")

// browserPlayer plays speech in the browser and waits for it to report
// completion.
type browserPlayer struct {
	emit EmitFunc

	mu      sync.Mutex
	pending map[string]chan error
	closed  bool
}

func newBrowserPlayer(emit EmitFunc) *browserPlayer {
	return &browserPlayer{emit: emit, pending: make(map[string]chan error)}
}

// PlayAudio implements tts.Player.
func (p *browserPlayer) PlayAudio(ctx context.Context, audio tts.Audio) error {
	return p.await(ctx, func(id string) {
		p.emit(EventSpeakAudio, SpeakAudio{ID: id, MIME: audio.MIMEType, Audio: audio.Data})
	})
}

// SpeakLocal implements tts.Player.
func (p *browserPlayer) SpeakLocal(ctx context.Context, text, locale string) error {
	return p.await(ctx, func(id string) {
		p.emit(EventSpeakLocal, SpeakLocal{ID: id, Text: text, Locale: locale})
	})
}

func (p *browserPlayer) await(ctx context.Context, start func(id string)) error {
	id := uuid.NewString()
	done := make(chan error, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errClosed
	}
	p.pending[id] = done
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	start(id)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		p.emit(EventSpeakCancel, SpeakCancel{ID: id})
		return ctx.Err()
	}
}

// finish resolves the playback id. Unknown ids are ignored.
func (p *browserPlayer) finish(id, errMsg string) {
	p.mu.Lock()
	done, ok := p.pending[id]
	p.mu.Unlock()
	if !ok {
		return
	}
	var err error
	if errMsg != "" {
		err = fmt.Errorf("browser playback: %s", errMsg)
	}
	select {
	case done <- err:
	default:
	}
}

func (p *browserPlayer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, done := range p.pending {
		select {
		case done <- errClosed:
		default:
		}
		delete(p.pending, id)
	}
}

// browserRecognizer drives the browser's speech recognition over the
// connection.
type browserRecognizer struct {
	emit EmitFunc

	mu       sync.Mutex
	closed   bool
	onResult func(stt.ResultEvent)
	onError  func(string)
	onEnd    func()
}

var _ stt.Recognizer = (*browserRecognizer)(nil)

func (r *browserRecognizer) Start() error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return stt.ErrUnavailable
	}
	r.emit(EventRecognitionStart, struct{}{})
	return nil
}

func (r *browserRecognizer) Stop() error {
	r.emit(EventRecognitionStop, struct{}{})
	return nil
}

func (r *browserRecognizer) OnResult(fn func(stt.ResultEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult = fn
}

func (r *browserRecognizer) OnError(fn func(string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

func (r *browserRecognizer) OnEnd(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEnd = fn
}

func (r *browserRecognizer) result(ev stt.ResultEvent) {
	r.mu.Lock()
	fn := r.onResult
	r.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (r *browserRecognizer) fail(code string) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	if fn != nil {
		fn(code)
	}
}

func (r *browserRecognizer) end() {
	r.mu.Lock()
	fn := r.onEnd
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *browserRecognizer) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// browserClipboard writes to the browser's clipboard.
type browserClipboard struct {
	emit EmitFunc
}

func (c browserClipboard) WriteText(_ context.Context, text string) error {
	c.emit(EventClipboardWrite, TextPayload{Text: text})
	return nil
}
