// Package stt drives a platform speech recognizer in continuous mode.
package stt

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrorNoSpeech is the recoverable "nothing was heard" error code.
const ErrorNoSpeech = "no-speech"

// ErrUnavailable is returned by recognizers that cannot run in the
// current environment.
var ErrUnavailable = errors.New("stt: speech recognition unavailable")

// Result is one recognition result slot.
type Result struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

// ResultEvent carries every result slot; slots before ResultIndex are
// unchanged since the previous event.
type ResultEvent struct {
	ResultIndex int      `json:"resultIndex"`
	Results     []Result `json:"results"`
}

// Transcript assembles the text of an event: final transcripts when any
// slot from ResultIndex onward is final, else the interim ones concatenated.
func (e ResultEvent) Transcript() string {
	var final, interim strings.Builder
	for i := max(e.ResultIndex, 0); i < len(e.Results); i++ {
		r := e.Results[i]
		if r.IsFinal {
			final.WriteString(r.Transcript)
		} else {
			interim.WriteString(r.Transcript)
		}
	}
	if final.Len() > 0 {
		return final.String()
	}
	return interim.String()
}

// Recognizer is a continuous, interim-results speech recognizer.
// Callbacks must be registered before Start and are never invoked from
// within Start or Stop.
type Recognizer interface {
	Start() error
	Stop() error
	OnResult(func(ResultEvent))
	OnError(func(code string))
	OnEnd(func())
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// OnInput receives the full replacement input text.
	OnInput func(text string)
	// OnRecording is told when recording turns on or off.
	OnRecording func(recording bool)
}

// Session keeps recognition running while recording is wanted.
type Session struct {
	rec         Recognizer
	onInput     func(string)
	onRecording func(bool)

	mu        sync.Mutex
	recording bool
}

// NewSession wires a Session to rec.
func NewSession(rec Recognizer, cfg SessionConfig) *Session {
	s := &Session{
		rec:         rec,
		onInput:     cfg.OnInput,
		onRecording: cfg.OnRecording,
	}
	rec.OnResult(s.handleResult)
	rec.OnError(s.handleError)
	rec.OnEnd(s.handleEnd)
	return s
}

// Recording reports whether recording is on.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Start turns recording on.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording {
		return nil
	}
	if err := s.rec.Start(); err != nil {
		return fmt.Errorf("start recognition: %w", err)
	}
	s.setLocked(true)
	return nil
}

// Stop turns recording off.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording {
		return nil
	}
	s.setLocked(false)
	if err := s.rec.Stop(); err != nil {
		return fmt.Errorf("stop recognition: %w", err)
	}
	return nil
}

// Toggle flips recording and returns the new state.
func (s *Session) Toggle() (bool, error) {
	if s.Recording() {
		return false, s.Stop()
	}
	if err := s.Start(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) handleResult(ev ResultEvent) {
	if !s.Recording() {
		return
	}
	if s.onInput != nil {
		s.onInput(ev.Transcript())
	}
}

func (s *Session) handleError(code string) {
	if code == ErrorNoSpeech {
		return
	}
	slog.Warn("speech recognition failed", "error", code)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(false)
}

func (s *Session) handleEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording {
		return
	}
	if err := s.rec.Start(); err != nil {
		slog.Warn("restart speech recognition", "error", err)
		s.setLocked(false)
	}
}

func (s *Session) setLocked(on bool) {
	if s.recording == on {
		return
	}
	s.recording = on
	if s.onRecording != nil {
		s.onRecording(on)
	}
}
