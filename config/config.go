// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"go.aimuz.me/livetrans/internal/types"
)

const (
	appName        = "livetrans"
	configFileName = "config.json"
	envIDPrefix    = "env:"
)

// Defaults applied when the file leaves a setting out.
const (
	DefaultAddr           = "127.0.0.1:8787"
	DefaultRequestTimeout = 30 * time.Second
	DefaultCacheTTL       = 7 * 24 * time.Hour
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Environment variables read by Load.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvAddr         = "LIVETRANS_ADDR"
)

// ErrNotConfigured is returned when no usable translation profile exists.
var ErrNotConfigured = errors.New("config: no translation profile configured")

// Config represents the application configuration.
type Config struct {
	Credentials         []types.APICredential      `json:"credentials,omitempty"`
	TranslationProfiles []types.TranslationProfile `json:"translation_profiles,omitempty"`
	SpeechConfig        *types.SpeechConfig        `json:"speech_config,omitempty"`

	Server ServerConfig `json:"server"`
	Cache  CacheConfig  `json:"cache"`

	// RequestTimeout bounds one translation request. Zero disables the bound.
	RequestTimeout *Duration `json:"request_timeout,omitempty"`

	path string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr,omitempty"`
	// AllowedOrigins limits browser origins; empty allows any.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// CacheConfig configures the translation cache.
type CacheConfig struct {
	Disabled bool     `json:"disabled,omitempty"`
	Dir      string   `json:"dir,omitempty"`
	TTL      Duration `json:"ttl,omitempty"`
}

// Duration is a time.Duration that reads and writes as "30s" in JSON.
// Plain numbers are taken as seconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string or number: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// LoadDotEnv loads variables from .env files into the environment without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from the default config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path and applies environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg.path = path

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// Save persists the configuration to disk. Settings that came from the
// environment are not written.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		var err error
		if path, err = Path(); err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c.persisted(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Timeout returns the effective per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.RequestTimeout == nil {
		return DefaultRequestTimeout
	}
	return max(time.Duration(*c.RequestTimeout), 0)
}

// CacheDir returns the cache directory, defaulting under the user cache dir.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get user cache dir: %w", err)
	}
	return filepath.Join(dir, appName, "translations"), nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = Duration(DefaultCacheTTL)
	}
	for i := range c.TranslationProfiles {
		applyProfileDefaults(&c.TranslationProfiles[i])
	}
}

// applyEnv adds credentials for API keys found in the environment. A
// profile and speech config are derived from them only when the file has
// none of its own.
func (c *Config) applyEnv() {
	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Server.Addr = addr
	}

	envs := []struct {
		env, kind, model string
	}{
		{EnvGeminiAPIKey, types.ProviderGemini, DefaultGeminiModel},
		{EnvOpenAIAPIKey, types.ProviderOpenAI, DefaultOpenAIModel},
	}
	for _, e := range envs {
		key := os.Getenv(e.env)
		if key == "" {
			continue
		}
		id := envIDPrefix + e.kind
		if c.GetCredential(id) == nil {
			c.Credentials = append(c.Credentials, types.APICredential{
				ID:     id,
				Name:   e.env,
				Type:   e.kind,
				APIKey: key,
			})
		}
		if len(c.TranslationProfiles) == 0 {
			p := types.TranslationProfile{
				ID:           id,
				Name:         e.kind,
				CredentialID: id,
				Model:        e.model,
				Active:       true,
			}
			applyProfileDefaults(&p)
			c.TranslationProfiles = append(c.TranslationProfiles, p)
		}
		if c.SpeechConfig == nil {
			c.SpeechConfig = &types.SpeechConfig{CredentialID: id}
		}
	}
}

// persisted returns a copy without environment-derived entries.
func (c *Config) persisted() *Config {
	out := *c
	out.Credentials = slices.DeleteFunc(slices.Clone(c.Credentials), func(x types.APICredential) bool {
		return isEnvID(x.ID)
	})
	out.TranslationProfiles = slices.DeleteFunc(slices.Clone(c.TranslationProfiles), func(x types.TranslationProfile) bool {
		return isEnvID(x.ID) || isEnvID(x.CredentialID)
	})
	if c.SpeechConfig != nil && isEnvID(c.SpeechConfig.CredentialID) {
		out.SpeechConfig = nil
	}
	return &out
}

func isEnvID(id string) bool {
	return strings.HasPrefix(id, envIDPrefix)
}

func applyProfileDefaults(p *types.TranslationProfile) {
	if p.MaxTokens == 0 {
		p.MaxTokens = types.DefaultMaxTokens
	}
	if p.Temperature == nil {
		t := types.DefaultTemperature
		p.Temperature = &t
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// API Credential Management
// ─────────────────────────────────────────────────────────────────────────────

// GetCredential returns a credential by ID.
func (c *Config) GetCredential(id string) *types.APICredential {
	for i := range c.Credentials {
		if c.Credentials[i].ID == id {
			return &c.Credentials[i]
		}
	}
	return nil
}

// AddCredential adds a new API credential.
func (c *Config) AddCredential(cred types.APICredential) error {
	if cred.Name == "" {
		return fmt.Errorf("credential name required")
	}
	if cred.APIKey == "" {
		return fmt.Errorf("api key required")
	}
	switch cred.Type {
	case types.ProviderGemini, types.ProviderOpenAI:
	case types.ProviderOpenAICompatible:
		if cred.BaseURL == "" {
			return fmt.Errorf("base url required for openai-compatible")
		}
	default:
		return fmt.Errorf("unknown credential type: %q", cred.Type)
	}

	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}

	c.Credentials = append(c.Credentials, cred)
	return c.Save()
}

// RemoveCredential removes a credential by ID.
// Returns error if credential is in use by any profile or speech config.
func (c *Config) RemoveCredential(id string) error {
	for _, p := range c.TranslationProfiles {
		if p.CredentialID == id {
			return fmt.Errorf("credential in use by translation profile: %s", p.Name)
		}
	}
	if c.SpeechConfig != nil && c.SpeechConfig.CredentialID == id {
		return fmt.Errorf("credential in use by speech config")
	}

	idx := slices.IndexFunc(c.Credentials, func(x types.APICredential) bool {
		return x.ID == id
	})
	if idx == -1 {
		return fmt.Errorf("credential not found: %s", id)
	}

	c.Credentials = slices.Delete(c.Credentials, idx, idx+1)
	return c.Save()
}

// ─────────────────────────────────────────────────────────────────────────────
// Translation Profile Management
// ─────────────────────────────────────────────────────────────────────────────

// GetActiveTranslationProfile returns the currently active translation profile.
func (c *Config) GetActiveTranslationProfile() *types.TranslationProfile {
	for i := range c.TranslationProfiles {
		if c.TranslationProfiles[i].Active {
			return &c.TranslationProfiles[i]
		}
	}
	if len(c.TranslationProfiles) > 0 {
		return &c.TranslationProfiles[0]
	}
	return nil
}

// AddTranslationProfile adds a new translation profile.
func (c *Config) AddTranslationProfile(profile types.TranslationProfile) error {
	if profile.Name == "" {
		return fmt.Errorf("profile name required")
	}
	if profile.Model == "" {
		return fmt.Errorf("model required")
	}
	if c.GetCredential(profile.CredentialID) == nil {
		return fmt.Errorf("credential not found: %s", profile.CredentialID)
	}

	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	applyProfileDefaults(&profile)

	// First profile or explicitly active: deactivate others
	if len(c.TranslationProfiles) == 0 || profile.Active {
		for i := range c.TranslationProfiles {
			c.TranslationProfiles[i].Active = false
		}
		profile.Active = true
	}

	c.TranslationProfiles = append(c.TranslationProfiles, profile)
	return c.Save()
}

// SetTranslationProfileActive sets a translation profile as active.
func (c *Config) SetTranslationProfileActive(id string) error {
	found := false
	for i := range c.TranslationProfiles {
		if c.TranslationProfiles[i].ID == id {
			c.TranslationProfiles[i].Active = true
			found = true
		} else {
			c.TranslationProfiles[i].Active = false
		}
	}
	if !found {
		return fmt.Errorf("profile not found: %s", id)
	}
	return c.Save()
}

// ResolveTranslation returns the active profile with its credential.
func (c *Config) ResolveTranslation() (*types.TranslationProfile, *types.APICredential, error) {
	profile := c.GetActiveTranslationProfile()
	if profile == nil {
		return nil, nil, ErrNotConfigured
	}
	cred := c.GetCredential(profile.CredentialID)
	if cred == nil {
		return nil, nil, fmt.Errorf("profile %s: credential not found: %s", profile.Name, profile.CredentialID)
	}
	return profile, cred, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Speech Configuration
// ─────────────────────────────────────────────────────────────────────────────

// SetSpeechConfig sets the speech configuration.
func (c *Config) SetSpeechConfig(cfg types.SpeechConfig) error {
	if cfg.CredentialID != "" && c.GetCredential(cfg.CredentialID) == nil {
		return fmt.Errorf("credential not found: %s", cfg.CredentialID)
	}
	c.SpeechConfig = &cfg
	return c.Save()
}

// ResolveSpeech returns the speech config with its credential. ok is false
// when remote synthesis is not configured.
func (c *Config) ResolveSpeech() (speech types.SpeechConfig, cred types.APICredential, ok bool) {
	if c.SpeechConfig == nil || c.SpeechConfig.CredentialID == "" {
		return types.SpeechConfig{}, types.APICredential{}, false
	}
	found := c.GetCredential(c.SpeechConfig.CredentialID)
	if found == nil {
		return types.SpeechConfig{}, types.APICredential{}, false
	}
	return *c.SpeechConfig, *found, true
}
