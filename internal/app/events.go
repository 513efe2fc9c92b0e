// Package app wires the translation pipeline to one browser connection.
package app

import "go.aimuz.me/livetrans/internal/types"

// Event names sent to the browser.
const (
	EventTranslation      = "translation"
	EventTranslating      = "translating"
	EventInput            = "input"
	EventSpeaking         = "speaking"
	EventRecording        = "recording"
	EventCopied           = "copied"
	EventSpeakAudio       = "speak-audio"
	EventSpeakLocal       = "speak-local"
	EventSpeakCancel      = "speak-cancel"
	EventRecognitionStart = "recognition-start"
	EventRecognitionStop  = "recognition-stop"
	EventClipboardWrite   = "clipboard-write"
)

// Message types received from the browser.
const (
	MsgInput             = "input"
	MsgSpeak             = "speak"
	MsgCopy              = "copy"
	MsgRecord            = "record"
	MsgRecognitionResult = "recognition-result"
	MsgRecognitionError  = "recognition-error"
	MsgRecognitionEnd    = "recognition-end"
	MsgSpeechDone        = "speech-done"
)

// EmitFunc delivers one event to the browser. It must not block for long
// and must not call back into the Session.
type EmitFunc func(name string, data any)

// TranslationEvent carries the published result; Result is nil for
// "no translation".
type TranslationEvent struct {
	Result *types.TranslationResult `json:"result"`
}

// ValueEvent is a boolean state change.
type ValueEvent struct {
	Value bool `json:"value"`
}

// SpeakingEvent reports one side's speaking state.
type SpeakingEvent struct {
	Side  types.Side `json:"side"`
	Value bool       `json:"value"`
}

// TextPayload carries input text in either direction.
type TextPayload struct {
	Text string `json:"text"`
}

// SpeakAudio asks the browser to play an encoded clip. Audio is base64 in JSON.
type SpeakAudio struct {
	ID    string `json:"id"`
	MIME  string `json:"mime"`
	Audio []byte `json:"audio"`
}

// SpeakLocal asks the browser to synthesize text itself.
type SpeakLocal struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

// SpeakCancel stops a playback started by SpeakAudio or SpeakLocal.
type SpeakCancel struct {
	ID string `json:"id"`
}

// SpeakRequest asks for playback of one side. An empty Text speaks the
// side's current content.
type SpeakRequest struct {
	Side types.Side `json:"side"`
	Text string     `json:"text,omitempty"`
}

// RecordRequest turns recording on or off. A missing On flips it.
type RecordRequest struct {
	On *bool `json:"on,omitempty"`
}

// RecognitionError reports a recognizer error code.
type RecognitionError struct {
	Error string `json:"error"`
}

// SpeechDone reports that a playback finished, with an error message if it
// failed.
type SpeechDone struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}
