// Package types provides shared type definitions for the application.
package types

import "strings"

// Language is the detected language of a translation request.
type Language string

const (
	LanguageZh Language = "zh"
	LanguageEn Language = "en"
)

// Opposite returns the other side of the zh/en pair.
func (l Language) Opposite() Language {
	if l == LanguageZh {
		return LanguageEn
	}
	return LanguageZh
}

// ParseLanguage maps a loose language code ("ZH", "zh-CN", "en_US") to a Language.
// Anything that is not Chinese is treated as English.
func ParseLanguage(code string) Language {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(code)), "zh") {
		return LanguageZh
	}
	return LanguageEn
}

// Provider kinds understood by llm.NewStreamer.
const (
	ProviderGemini           = "gemini"
	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai-compatible"
)

// DefaultTemperature is the sampling temperature used for translation.
const DefaultTemperature = 0.2

// DefaultMaxTokens is the default max tokens if not specified.
const DefaultMaxTokens = 1000

// APICredential holds the key material for one remote provider.
type APICredential struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // "gemini", "openai", "openai-compatible"
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
}

// TranslationProfile selects a model and prompt for translation.
type TranslationProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CredentialID string `json:"credential_id"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	MaxTokens    int    `json:"max_tokens,omitempty"`
	// Temperature is unset when nil; an explicit 0 selects greedy sampling.
	Temperature *float64 `json:"temperature,omitempty"`
	Active      bool     `json:"active"`
}

// SamplingTemperature returns the profile's temperature or DefaultTemperature.
func (p *TranslationProfile) SamplingTemperature() float64 {
	if p.Temperature == nil {
		return DefaultTemperature
	}
	return *p.Temperature
}

// SpeechConfig configures remote speech synthesis.
type SpeechConfig struct {
	CredentialID string `json:"credential_id"`
	Model        string `json:"model"`
	VoiceZh      string `json:"voice_zh,omitempty"`
	VoiceEn      string `json:"voice_en,omitempty"`
}

// Usage represents token usage statistics from LLM API calls.
type Usage struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	CacheHit         bool `json:"cacheHit"`
}

// TranslationResult is one published view of an in-progress or finished translation.
// Within one request, Text only ever grows by appending.
type TranslationResult struct {
	Language Language `json:"language"`
	Text     string   `json:"text"`
	Complete bool     `json:"complete"`
	Usage    *Usage   `json:"usage,omitempty"`
}

// Side identifies which pane a speech request belongs to.
type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
)
