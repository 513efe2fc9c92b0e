package livetranslate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/llm"
)

// fakeRemote hands out one controllable stream per call.
type fakeRemote struct {
	mu      sync.Mutex
	calls   []string
	streams []chan llm.StreamDelta
	ctxs    []context.Context
	openErr error
}

func (f *fakeRemote) translate(ctx context.Context, text string) (<-chan llm.StreamDelta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.openErr != nil {
		return nil, f.openErr
	}
	ch := make(chan llm.StreamDelta, 16)
	f.streams = append(f.streams, ch)
	f.ctxs = append(f.ctxs, ctx)
	return ch, nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) stream(i int) chan llm.StreamDelta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) observe(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

// results returns published results with consecutive duplicates removed.
func (r *stateRecorder) results() []types.TranslationResult {
	var out []types.TranslationResult
	for _, s := range r.snapshot() {
		if s.Result == nil {
			continue
		}
		res := *s.Result
		res.Usage = nil
		if len(out) > 0 && out[len(out)-1] == res {
			continue
		}
		out = append(out, res)
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestCoordinator(remote *fakeRemote) (*Coordinator, *stateRecorder) {
	c := NewCoordinator(CoordinatorConfig{Translate: remote.translate})
	rec := &stateRecorder{}
	c.Observe(rec.observe)
	return c, rec
}

func TestCoordinator_StreamsResults(t *testing.T) {
	remote := &fakeRemote{}
	c, rec := newTestCoordinator(remote)
	defer c.Close()

	c.Submit("hello")
	waitFor(t, "remote call", func() bool { return remote.callCount() == 1 })
	if !c.Translating() {
		t.Error("Translating() = false while stream is open")
	}

	ch := remote.stream(0)
	ch <- llm.StreamDelta{Text: "en\n"}
	ch <- llm.StreamDelta{Text: "Bon"}
	ch <- llm.StreamDelta{Text: "jour"}
	ch <- llm.StreamDelta{Done: true}

	waitFor(t, "translation to finish", func() bool { return !c.Translating() })

	want := []types.TranslationResult{
		{Language: types.LanguageEn, Text: "Bon"},
		{Language: types.LanguageEn, Text: "Bonjour"},
		{Language: types.LanguageEn, Text: "Bonjour", Complete: true},
	}
	got := rec.results()
	if len(got) != len(want) {
		t.Fatalf("results = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	latest := c.Latest()
	if latest == nil || !latest.Complete || latest.Text != "Bonjour" {
		t.Errorf("Latest() = %+v", latest)
	}
}

func TestCoordinator_BlankInputClears(t *testing.T) {
	remote := &fakeRemote{}
	c, rec := newTestCoordinator(remote)
	defer c.Close()

	c.Submit("你好")
	waitFor(t, "remote call", func() bool { return remote.callCount() == 1 })
	ch := remote.stream(0)
	ch <- llm.StreamDelta{Text: "zh\nHello"}
	waitFor(t, "partial result", func() bool { return c.Latest() != nil })

	c.Submit("   \n\t")

	if c.Latest() != nil {
		t.Errorf("Latest() = %+v, want nil", c.Latest())
	}
	if c.Translating() {
		t.Error("Translating() = true after blank submit")
	}
	states := rec.snapshot()
	last := states[len(states)-1]
	if last.Result != nil || last.Translating {
		t.Errorf("last state = %+v, want cleared", last)
	}
	if n := remote.callCount(); n != 1 {
		t.Errorf("remote calls = %d, want 1", n)
	}
}

func TestCoordinator_BlankInputNeverCallsRemote(t *testing.T) {
	remote := &fakeRemote{}
	c, _ := newTestCoordinator(remote)
	defer c.Close()

	c.Submit("")
	c.Submit("  ")

	time.Sleep(20 * time.Millisecond)
	if n := remote.callCount(); n != 0 {
		t.Errorf("remote calls = %d, want 0", n)
	}
}

func TestCoordinator_SupersededResultsDropped(t *testing.T) {
	remote := &fakeRemote{}
	c, rec := newTestCoordinator(remote)
	defer c.Close()

	c.Submit("first")
	waitFor(t, "first call", func() bool { return remote.callCount() == 1 })
	first := remote.stream(0)
	first <- llm.StreamDelta{Text: "en\nPremier"}
	waitFor(t, "first partial", func() bool { return c.Latest() != nil })

	oldSeq := c.Submit("second")
	waitFor(t, "second call", func() bool { return remote.callCount() == 2 })

	remote.mu.Lock()
	oldCtx := remote.ctxs[0]
	remote.mu.Unlock()
	if oldCtx.Err() == nil {
		t.Error("superseded request context was not cancelled")
	}

	second := remote.stream(1)
	second <- llm.StreamDelta{Text: "en\nDeux"}
	waitFor(t, "second partial", func() bool {
		l := c.Latest()
		return l != nil && l.Text == "Deux"
	})

	// Late output from the first request must never surface.
	first <- llm.StreamDelta{Text: "ième"}
	first <- llm.StreamDelta{Done: true}
	if c.publish(oldSeq-1, types.TranslationResult{Text: "stale"}) {
		t.Error("publish accepted a superseded sequence number")
	}

	second <- llm.StreamDelta{Done: true}
	waitFor(t, "second to finish", func() bool { return !c.Translating() })

	sawSecond := false
	for _, r := range rec.results() {
		if r.Text == "Deux" {
			sawSecond = true
			continue
		}
		if sawSecond && r.Text != "Deux" {
			t.Errorf("stale result %q published after newer request", r.Text)
		}
	}
	if got := c.Latest(); got == nil || got.Text != "Deux" || !got.Complete {
		t.Errorf("Latest() = %+v", got)
	}
}

func TestCoordinator_EmptyStreamReverts(t *testing.T) {
	remote := &fakeRemote{}
	c, _ := newTestCoordinator(remote)
	defer c.Close()

	c.Submit("hello")
	waitFor(t, "first call", func() bool { return remote.callCount() == 1 })
	ch := remote.stream(0)
	ch <- llm.StreamDelta{Text: "en\nHi"}
	ch <- llm.StreamDelta{Done: true}
	waitFor(t, "first to finish", func() bool { return !c.Translating() })

	c.Submit("hello again")
	waitFor(t, "second call", func() bool { return remote.callCount() == 2 })
	remote.stream(1) <- llm.StreamDelta{Done: true}
	waitFor(t, "second to finish", func() bool { return !c.Translating() })

	if got := c.Latest(); got != nil {
		t.Errorf("Latest() = %+v, want nil after empty stream", got)
	}
}

func TestCoordinator_StreamErrorKeepsPartial(t *testing.T) {
	remote := &fakeRemote{}
	c, _ := newTestCoordinator(remote)
	defer c.Close()

	c.Submit("hello world")
	waitFor(t, "remote call", func() bool { return remote.callCount() == 1 })
	ch := remote.stream(0)
	ch <- llm.StreamDelta{Text: "en\nBonjour le"}
	ch <- llm.StreamDelta{Err: errors.New("stream reset")}
	waitFor(t, "stream to stop", func() bool { return !c.Translating() })

	got := c.Latest()
	if got == nil || got.Text != "Bonjour le" || got.Complete {
		t.Errorf("Latest() = %+v, want stale partial", got)
	}
}

func TestCoordinator_OpenErrorClearsTranslating(t *testing.T) {
	remote := &fakeRemote{openErr: errors.New("unauthorized")}
	c, _ := newTestCoordinator(remote)
	defer c.Close()

	c.Submit("hello")
	waitFor(t, "translating to clear", func() bool { return !c.Translating() })
	if c.Latest() != nil {
		t.Errorf("Latest() = %+v, want nil", c.Latest())
	}
}

func TestCoordinator_Timeout(t *testing.T) {
	remote := &fakeRemote{}
	c := NewCoordinator(CoordinatorConfig{Translate: remote.translate, Timeout: 30 * time.Millisecond})
	defer c.Close()

	c.Submit("hello")
	waitFor(t, "remote call", func() bool { return remote.callCount() == 1 })
	waitFor(t, "timeout to clear translating", func() bool { return !c.Translating() })
}

func TestCoordinator_ResubmitSameText(t *testing.T) {
	remote := &fakeRemote{}
	c, rec := newTestCoordinator(remote)
	defer c.Close()

	c.Submit("hello")
	c.Submit("hello")
	waitFor(t, "two calls", func() bool { return remote.callCount() == 2 })

	remote.stream(0) <- llm.StreamDelta{Text: "en\nStale"}
	remote.stream(1) <- llm.StreamDelta{Text: "en\nBonjour"}
	remote.stream(1) <- llm.StreamDelta{Done: true}
	waitFor(t, "finish", func() bool { return !c.Translating() })

	for _, r := range rec.results() {
		if r.Text == "Stale" {
			t.Error("superseded duplicate request published a result")
		}
	}
	if got := c.Latest(); got == nil || got.Text != "Bonjour" {
		t.Errorf("Latest() = %+v", got)
	}
}
