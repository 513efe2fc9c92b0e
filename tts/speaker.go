package tts

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/language"

	"go.aimuz.me/livetrans/internal/types"
)

// MaxRemoteRunes is the length at which remote synthesis is skipped.
const MaxRemoteRunes = 500

var locales = map[types.Language]language.Tag{
	types.LanguageZh: language.MustParse("zh-CN"),
	types.LanguageEn: language.AmericanEnglish,
}

// Locale returns the BCP 47 tag used for local synthesis of lang.
func Locale(lang types.Language) string {
	if tag, ok := locales[lang]; ok {
		return tag.String()
	}
	return locales[types.LanguageEn].String()
}

// Player renders speech on the listener's device.
// Both methods block until playback ends or ctx is cancelled.
type Player interface {
	PlayAudio(ctx context.Context, audio Audio) error
	SpeakLocal(ctx context.Context, text, locale string) error
}

// SpeakingFunc is told when a side starts or stops speaking.
type SpeakingFunc func(side types.Side, speaking bool)

// SpeakerConfig configures a Speaker.
type SpeakerConfig struct {
	// Synth is optional; without it every request uses local synthesis.
	Synth  Synthesizer
	Player Player
	// Detect picks a language when Speak is called without one.
	Detect     func(text string) types.Language
	OnSpeaking SpeakingFunc
}

type playback struct {
	gen    uint64
	cancel context.CancelFunc
}

// Speaker plays text on one of two sides. Each side has at most one active
// playback; a new request preempts the previous one on the same side.
type Speaker struct {
	synth      Synthesizer
	player     Player
	detect     func(string) types.Language
	onSpeaking SpeakingFunc

	mu     sync.Mutex
	gen    uint64
	active map[types.Side]*playback
}

// NewSpeaker creates a Speaker.
func NewSpeaker(cfg SpeakerConfig) *Speaker {
	return &Speaker{
		synth:      cfg.Synth,
		player:     cfg.Player,
		detect:     cfg.Detect,
		onSpeaking: cfg.OnSpeaking,
		active:     make(map[types.Side]*playback),
	}
}

// Speaking reports whether side is playing.
func (s *Speaker) Speaking(side types.Side) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[side] != nil
}

// Speak plays text and blocks until playback ends. Target-side text shorter
// than MaxRemoteRunes is synthesized remotely first; any remote failure falls
// back to local synthesis.
func (s *Speaker) Speak(ctx context.Context, text string, lang types.Language, side types.Side) error {
	if lang == "" {
		lang = types.LanguageEn
		if s.detect != nil {
			lang = s.detect(text)
		}
	}

	ctx, gen := s.begin(ctx, side)
	defer s.end(side, gen)

	if s.useRemote(text, side) {
		err := s.speakRemote(ctx, text, lang)
		if err == nil || ctx.Err() != nil {
			return err
		}
		slog.Warn("remote speech failed, using local synthesis", "side", side, "error", err)
	}
	return s.player.SpeakLocal(ctx, text, Locale(lang))
}

func (s *Speaker) useRemote(text string, side types.Side) bool {
	return s.synth != nil && side == types.SideTarget && utf8.RuneCountInString(text) < MaxRemoteRunes
}

func (s *Speaker) speakRemote(ctx context.Context, text string, lang types.Language) error {
	audio, err := s.synth.Synthesize(ctx, text, lang)
	if err != nil {
		return err
	}
	if len(audio.Data) == 0 {
		return ErrNoAudio
	}
	return s.player.PlayAudio(ctx, audio)
}

// Stop cancels playback on side.
func (s *Speaker) Stop(side types.Side) {
	s.mu.Lock()
	p := s.active[side]
	s.mu.Unlock()
	if p != nil {
		p.cancel()
	}
}

// Close cancels playback on both sides.
func (s *Speaker) Close() {
	s.Stop(types.SideSource)
	s.Stop(types.SideTarget)
}

func (s *Speaker) begin(ctx context.Context, side types.Side) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.active[side]; prev != nil {
		prev.cancel()
	}
	s.gen++
	s.active[side] = &playback{gen: s.gen, cancel: cancel}
	s.notifyLocked(side, true)
	return ctx, s.gen
}

// end clears side's flag only if gen still owns it, so a preempted playback
// finishing late never resets its successor.
func (s *Speaker) end(side types.Side, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.active[side]
	if p == nil || p.gen != gen {
		return
	}
	p.cancel()
	delete(s.active, side)
	s.notifyLocked(side, false)
}

func (s *Speaker) notifyLocked(side types.Side, speaking bool) {
	if s.onSpeaking != nil {
		s.onSpeaking(side, speaking)
	}
}

// IsCancelled reports whether err came from preemption or shutdown.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
