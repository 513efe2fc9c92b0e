package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/livetrans/clipboard"
	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/langdetect"
	"go.aimuz.me/livetrans/livetranslate"
	"go.aimuz.me/livetrans/stt"
	"go.aimuz.me/livetrans/tts"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	Translate livetranslate.TranslateFunc
	// Synth is optional; without it speech always uses the browser.
	Synth   tts.Synthesizer
	Timeout time.Duration
	// Delay overrides the debounce delay.
	Delay func(text string) time.Duration
	// CopiedWindow overrides clipboard.CopiedWindow.
	CopiedWindow time.Duration
}

// Session is one browser connection's translator state.
type Session struct {
	id   string
	emit EmitFunc

	debouncer  *livetranslate.Debouncer
	coord      *livetranslate.Coordinator
	speaker    *tts.Speaker
	player     *browserPlayer
	recognizer *browserRecognizer
	recording  *stt.Session
	copier     *clipboard.Copier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	input string
}

// NewSession creates a Session that reports to emit.
func NewSession(cfg SessionConfig, emit EmitFunc) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         uuid.NewString(),
		emit:       emit,
		debouncer:  livetranslate.NewDebouncer(cfg.Delay),
		player:     newBrowserPlayer(emit),
		recognizer: &browserRecognizer{emit: emit},
		ctx:        ctx,
		cancel:     cancel,
	}

	s.coord = livetranslate.NewCoordinator(livetranslate.CoordinatorConfig{
		Translate: cfg.Translate,
		Timeout:   cfg.Timeout,
	})
	s.coord.Observe(s.stateForwarder())

	s.speaker = tts.NewSpeaker(tts.SpeakerConfig{
		Synth:  cfg.Synth,
		Player: s.player,
		Detect: func(text string) types.Language { return langdetect.Detect(text).Language },
		OnSpeaking: func(side types.Side, speaking bool) {
			emit(EventSpeaking, SpeakingEvent{Side: side, Value: speaking})
		},
	})

	s.recording = stt.NewSession(s.recognizer, stt.SessionConfig{
		OnInput: s.replaceInput,
		OnRecording: func(on bool) {
			emit(EventRecording, ValueEvent{Value: on})
		},
	})

	s.copier = clipboard.NewCopier(browserClipboard{emit: emit}, cfg.CopiedWindow, func(copied bool) {
		emit(EventCopied, ValueEvent{Value: copied})
	})

	slog.Debug("session opened", "session", s.id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// stateForwarder turns coordinator states into browser events, skipping
// repeats. It runs under the coordinator lock.
func (s *Session) stateForwarder() livetranslate.Observer {
	var (
		sent        bool
		translating bool
		last        *types.TranslationResult
	)
	return func(st livetranslate.State) {
		if !sent || st.Translating != translating {
			s.emit(EventTranslating, ValueEvent{Value: st.Translating})
			translating = st.Translating
		}
		if !sent || !sameResult(last, st.Result) {
			s.emit(EventTranslation, TranslationEvent{Result: st.Result})
			last = st.Result
		}
		sent = true
	}
}

func sameResult(a, b *types.TranslationResult) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Language == b.Language && a.Text == b.Text && a.Complete == b.Complete
}

// Input returns the current input text.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Latest returns the published translation, or nil.
func (s *Session) Latest() *types.TranslationResult {
	return s.coord.Latest()
}

// SetInput records typed input and schedules its translation. Blank input
// clears the translation at once.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		s.debouncer.Stop()
		s.coord.Submit("")
		return
	}
	s.debouncer.Schedule(text, func(t string) { s.coord.Submit(t) })
}

// replaceInput handles a recognition transcript: it replaces the whole
// input and echoes it to the browser.
func (s *Session) replaceInput(text string) {
	s.emit(EventInput, TextPayload{Text: text})
	s.SetInput(text)
}

// Speak plays one side. Empty text speaks the side's current content.
func (s *Session) Speak(side types.Side, text string) {
	latest := s.coord.Latest()

	var lang types.Language
	switch side {
	case types.SideTarget:
		if text == "" && latest != nil {
			text = latest.Text
		}
		if latest != nil {
			lang = latest.Language.Opposite()
		}
	default:
		side = types.SideSource
		if text == "" {
			text = s.Input()
		}
		if latest != nil {
			lang = latest.Language
		}
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	s.wg.Go(func() {
		if err := s.speaker.Speak(s.ctx, text, lang, side); err != nil && !tts.IsCancelled(err) {
			slog.Warn("speak", "session", s.id, "side", side, "error", err)
		}
	})
}

// Copy copies the current translation.
func (s *Session) Copy() error {
	latest := s.coord.Latest()
	if latest == nil {
		return clipboard.ErrEmpty
	}
	return s.copier.Copy(s.ctx, latest.Text)
}

// Record turns speech recognition on or off.
func (s *Session) Record(on bool) error {
	if on {
		return s.recording.Start()
	}
	return s.recording.Stop()
}

// Handle dispatches one browser message.
func (s *Session) Handle(typ string, data json.RawMessage) error {
	switch typ {
	case MsgInput:
		var p TextPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		s.SetInput(p.Text)
	case MsgSpeak:
		var p SpeakRequest
		if err := decode(data, &p); err != nil {
			return err
		}
		s.Speak(p.Side, p.Text)
	case MsgCopy:
		if err := s.Copy(); err != nil {
			slog.Debug("copy translation", "session", s.id, "error", err)
		}
	case MsgRecord:
		var p RecordRequest
		if err := decode(data, &p); err != nil {
			return err
		}
		if p.On == nil {
			if _, err := s.recording.Toggle(); err != nil {
				slog.Warn("toggle recording", "session", s.id, "error", err)
			}
			break
		}
		if err := s.Record(*p.On); err != nil {
			slog.Warn("toggle recording", "session", s.id, "error", err)
		}
	case MsgRecognitionResult:
		var ev stt.ResultEvent
		if err := decode(data, &ev); err != nil {
			return err
		}
		s.recognizer.result(ev)
	case MsgRecognitionError:
		var p RecognitionError
		if err := decode(data, &p); err != nil {
			return err
		}
		s.recognizer.fail(p.Error)
	case MsgRecognitionEnd:
		s.recognizer.end()
	case MsgSpeechDone:
		var p SpeechDone
		if err := decode(data, &p); err != nil {
			return err
		}
		s.player.finish(p.ID, p.Error)
	default:
		return fmt.Errorf("unknown message type %q", typ)
	}
	return nil
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// Close stops all work owned by the session and waits for it.
func (s *Session) Close() {
	s.debouncer.Stop()
	s.recognizer.close()
	if err := s.recording.Stop(); err != nil {
		slog.Debug("stop recording", "session", s.id, "error", err)
	}
	s.cancel()
	s.coord.Close()
	s.speaker.Close()
	s.player.close()
	s.copier.Close()
	s.wg.Wait()
	slog.Debug("session closed", "session", s.id)
}
