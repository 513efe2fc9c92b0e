package livetranslate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/llm"
)

// TranslateFunc opens a translation stream for text.
type TranslateFunc func(ctx context.Context, text string) (<-chan llm.StreamDelta, error)

// State is a snapshot of what the renderer should show.
// A nil Result means "no translation".
type State struct {
	Seq         uint64
	Result      *types.TranslationResult
	Translating bool
}

// Observer receives every published State in order. Observers run with the
// coordinator's lock held and must not call back into the Coordinator.
type Observer func(State)

// request is the single in-flight translation.
type request struct {
	seq    uint64
	id     string
	text   string
	cancel context.CancelFunc
}

// Coordinator owns the one current translation request. Submitting new text
// supersedes the previous request: its context is cancelled and any result it
// still produces is dropped by sequence-number comparison.
type Coordinator struct {
	translate TranslateFunc
	timeout   time.Duration

	mu          sync.Mutex
	seq         uint64
	current     *request
	latest      *types.TranslationResult
	translating bool
	observers   []Observer
	closed      bool

	wg sync.WaitGroup
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Translate TranslateFunc
	// Timeout bounds each request; zero means no bound.
	Timeout time.Duration
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		translate: cfg.Translate,
		timeout:   cfg.Timeout,
	}
}

// Observe registers fn for future state changes.
func (c *Coordinator) Observe(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Latest returns the currently published result, or nil.
func (c *Coordinator) Latest() *types.TranslationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return nil
	}
	r := *c.latest
	return &r
}

// Translating reports whether the current request is still running.
func (c *Coordinator) Translating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.translating
}

// Submit makes text the current translation target and returns the new
// request's sequence number. Blank text clears the published result at once
// and never reaches the remote service.
func (c *Coordinator) Submit(text string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.seq
	}

	c.seq++
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}

	if strings.TrimSpace(text) == "" {
		c.latest = nil
		c.translating = false
		c.notifyLocked()
		return c.seq
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	req := &request{seq: c.seq, id: uuid.NewString(), text: text, cancel: cancel}
	c.current = req
	c.translating = true
	c.notifyLocked()

	c.wg.Add(1)
	go c.run(ctx, req)
	return req.seq
}

func (c *Coordinator) run(ctx context.Context, req *request) {
	defer c.wg.Done()
	defer req.cancel()

	slog.Debug("translation started", "id", req.id, "seq", req.seq, "len", len(req.text))

	deltas, err := c.translate(ctx, req.text)
	if err != nil {
		slog.Warn("open translation stream", "id", req.id, "error", err)
		c.finish(req, false, err)
		return
	}

	produced := false
	err = Decode(ctx, deltas, func(r types.TranslationResult) {
		produced = true
		c.publish(req.seq, r)
	})
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// Superseded or closed.
	default:
		slog.Warn("translation stream failed", "id", req.id, "error", err)
	}
	c.finish(req, produced, err)
}

// publish replaces the published result if seq is still current.
func (c *Coordinator) publish(seq uint64, r types.TranslationResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return false
	}
	c.latest = &r
	c.notifyLocked()
	return true
}

// finish clears the translating flag for the current request. A stream that
// ended normally without output reverts to "no translation"; a failed one
// leaves its last partial result visible.
func (c *Coordinator) finish(req *request, produced bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req.seq != c.seq {
		return
	}
	c.current = nil
	c.translating = false
	if err == nil && !produced {
		c.latest = nil
	}
	c.notifyLocked()
	slog.Debug("translation finished", "id", req.id, "seq", req.seq, "produced", produced)
}

func (c *Coordinator) notifyLocked() {
	s := State{Seq: c.seq, Translating: c.translating}
	if c.latest != nil {
		r := *c.latest
		s.Result = &r
	}
	for _, fn := range c.observers {
		fn(s)
	}
}

// Close cancels the in-flight request and waits for its goroutine to exit.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.seq++
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	c.translating = false
	c.mu.Unlock()

	c.wg.Wait()
}
