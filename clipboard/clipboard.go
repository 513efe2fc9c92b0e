// Package clipboard copies translations to the listener's clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CopiedWindow is how long the copied acknowledgment stays on.
const CopiedWindow = 2 * time.Second

// ErrEmpty is returned when there is nothing to copy.
var ErrEmpty = errors.New("clipboard: nothing to copy")

// Writer places text on a clipboard.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// Copier writes text and exposes a transient "copied" state.
type Copier struct {
	w        Writer
	window   time.Duration
	onCopied func(bool)

	mu     sync.Mutex
	copied bool
	timer  *time.Timer
	gen    uint64
}

// NewCopier creates a Copier. onCopied may be nil; a zero window means
// CopiedWindow.
func NewCopier(w Writer, window time.Duration, onCopied func(bool)) *Copier {
	if window <= 0 {
		window = CopiedWindow
	}
	return &Copier{w: w, window: window, onCopied: onCopied}
}

// Copy writes text and turns the copied state on for the window. Copying
// again restarts the window.
func (c *Copier) Copy(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmpty
	}
	if err := c.w.WriteText(ctx, text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.setLocked(true)
	c.timer = time.AfterFunc(c.window, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			return
		}
		c.timer = nil
		c.setLocked(false)
	})
	return nil
}

// Copied reports whether the acknowledgment is showing.
func (c *Copier) Copied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copied
}

// Close stops the reset timer.
func (c *Copier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Copier) setLocked(v bool) {
	if c.copied == v {
		return
	}
	c.copied = v
	if c.onCopied != nil {
		c.onCopied(v)
	}
}
