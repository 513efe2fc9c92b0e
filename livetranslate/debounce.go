package livetranslate

import (
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// ShortInputDelay applies to inputs shorter than ShortInputLen runes.
	ShortInputDelay = 200 * time.Millisecond
	// LongInputDelay applies to everything else.
	LongInputDelay = 400 * time.Millisecond
	// ShortInputLen is the rune count at which the longer delay kicks in.
	ShortInputLen = 5
)

// DefaultDelay returns the quiet period to wait before translating text.
func DefaultDelay(text string) time.Duration {
	if utf8.RuneCountInString(text) < ShortInputLen {
		return ShortInputDelay
	}
	return LongInputDelay
}

// Debouncer delays an action until its input has stopped changing.
// At most one timer is outstanding; every Schedule call cancels the previous one.
type Debouncer struct {
	delay func(string) time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates a Debouncer. A nil delay uses DefaultDelay.
func NewDebouncer(delay func(string) time.Duration) *Debouncer {
	if delay == nil {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Schedule arranges for fire(text) to run after the text's quiet period,
// replacing any pending call. Empty text cancels the pending call and
// schedules nothing; Schedule then reports false so the caller can clear
// its state right away.
func (d *Debouncer) Schedule(text string, fire func(text string)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	if text == "" {
		return false
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.delay(text), func() {
		d.mu.Lock()
		if d.gen != gen {
			// Superseded between expiry and acquiring the lock.
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		fire(text)
	})
	return true
}

// Stop cancels the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Pending reports whether a call is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
