package clipboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeWriter struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeWriter) WriteText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

type copiedRecorder struct {
	mu     sync.Mutex
	states []bool
}

func (r *copiedRecorder) record(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, v)
}

func (r *copiedRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.states...)
}

func TestCopier_ResetsAfterWindow(t *testing.T) {
	w := &fakeWriter{}
	rec := &copiedRecorder{}
	c := NewCopier(w, 30*time.Millisecond, rec.record)
	defer c.Close()

	if err := c.Copy(context.Background(), "Bonjour"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if !c.Copied() {
		t.Error("Copied() = false right after Copy")
	}
	if len(w.texts) != 1 || w.texts[0] != "Bonjour" {
		t.Errorf("written = %q", w.texts)
	}

	time.Sleep(80 * time.Millisecond)
	if c.Copied() {
		t.Error("Copied() = true after window")
	}
	got := rec.snapshot()
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("states = %v, want [true false]", got)
	}
}

func TestCopier_RecopyExtendsWindow(t *testing.T) {
	rec := &copiedRecorder{}
	c := NewCopier(&fakeWriter{}, 50*time.Millisecond, rec.record)
	defer c.Close()

	c.Copy(context.Background(), "a")
	time.Sleep(30 * time.Millisecond)
	c.Copy(context.Background(), "b")
	time.Sleep(35 * time.Millisecond)

	if !c.Copied() {
		t.Error("first timer reset the state of the second copy")
	}
	time.Sleep(50 * time.Millisecond)
	if c.Copied() {
		t.Error("Copied() = true after extended window")
	}
	if got := rec.snapshot(); len(got) != 2 {
		t.Errorf("states = %v, want one on and one off", got)
	}
}

func TestCopier_Errors(t *testing.T) {
	c := NewCopier(&fakeWriter{}, 0, nil)
	if err := c.Copy(context.Background(), ""); !errors.Is(err, ErrEmpty) {
		t.Errorf("Copy(\"\") error = %v, want ErrEmpty", err)
	}

	boom := errors.New("denied")
	c = NewCopier(&fakeWriter{err: boom}, 0, nil)
	if err := c.Copy(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("Copy() error = %v, want %v", err, boom)
	}
	if c.Copied() {
		t.Error("Copied() = true after failed write")
	}
}

func TestNewCopier_DefaultWindow(t *testing.T) {
	c := NewCopier(&fakeWriter{}, 0, nil)
	if c.window != CopiedWindow {
		t.Errorf("window = %v, want %v", c.window, CopiedWindow)
	}
}
