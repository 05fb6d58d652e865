// Package config loads healthguide settings from the config file, the
// environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Placeholder credentials shipped in example configuration. They are treated
// as "not configured".
const (
	SunbirdPlaceholder    = "your-sunbird-api-token-here"
	ElevenLabsPlaceholder = "your-elevenlabs-api-key-here"
)

// Speech engines.
const (
	EngineAuto   = "auto"
	EngineRemote = "remote"
	EngineLocal  = "local"
)

// DefaultVoices maps language codes to ElevenLabs voice ids.
var DefaultVoices = map[string]string{
	"lug": "pNInz6obpgDQGcFmaJgB", // Adam
	"nyn": "EXAVITQu4vr4xnSDxMaL", // Bella
	"ach": "VR6AewLTigWG4xSOukaG", // Antoni
	"teo": "pFZP5JQG7iQjIQuC4Bku", // Lily
	"lgg": "onwK4e9ZLuTAKqWW03F9", // Daniel
}

// DefaultLocales maps language codes to the locale handed to the local
// synthesizer. None of the target languages has a synthesizer voice, so these
// are approximate substitutes.
var DefaultLocales = map[string]string{
	"lug": "sw-KE",
	"nyn": "sw-KE",
	"teo": "sw-KE",
	"ach": "en-GB",
	"lgg": "en-GB",
}

// Config is the resolved application configuration.
type Config struct {
	Sunbird     SunbirdConfig
	ElevenLabs  ElevenLabsConfig
	Speech      SpeechConfig
	Cache       CacheConfig
	HTTPTimeout time.Duration
}

// SunbirdConfig configures the translation provider.
type SunbirdConfig struct {
	Token             string
	URL               string
	RequestsPerMinute int
	DemoDelay         time.Duration
}

// ElevenLabsConfig configures the remote speech provider.
type ElevenLabsConfig struct {
	APIKey            string
	URL               string
	Model             string
	OutputFormat      string
	RequestsPerMinute int
	Voices            map[string]string
	DefaultVoice      string
}

// SpeechConfig selects and configures the speech engine.
type SpeechConfig struct {
	Engine string
	Local  LocalSpeechConfig
}

// LocalSpeechConfig configures the local synthesizer.
type LocalSpeechConfig struct {
	Binary        string
	Rate          float64
	DefaultLocale string
	Locales       map[string]string
}

// CacheConfig configures the translation and audio cache.
type CacheConfig struct {
	Enabled bool
	Dir     string
	MaxSize int // megabytes
}

// Credentials are the conventional environment variables for the provider
// credentials. They are used when the config file and HEALTHGUIDE_* variables
// leave a credential empty.
type Credentials struct {
	SunbirdToken  string `env:"SUNBIRD_AUTH_TOKEN"`
	ElevenLabsKey string `env:"ELEVENLABS_API_KEY"`
}

// Configured reports whether a real translation token is set.
func (c SunbirdConfig) Configured() bool {
	return configured(c.Token, SunbirdPlaceholder)
}

// Configured reports whether a real ElevenLabs key is set.
func (c ElevenLabsConfig) Configured() bool {
	return configured(c.APIKey, ElevenLabsPlaceholder)
}

func configured(v, placeholder string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != placeholder
}

// ResolvedEngine returns the speech engine to use: remote when asked for or
// when an ElevenLabs key is configured, local otherwise.
func (c *Config) ResolvedEngine() string {
	switch c.Speech.Engine {
	case EngineRemote, EngineLocal:
		return c.Speech.Engine
	}
	if c.ElevenLabs.Configured() {
		return EngineRemote
	}
	return EngineLocal
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sunbird.token", "")
	v.SetDefault("sunbird.url", "https://api.sunbird.ai/tasks/nllb_translate")
	v.SetDefault("sunbird.requests_per_minute", 30)
	v.SetDefault("sunbird.demo_delay", "2s")

	v.SetDefault("elevenlabs.api_key", "")
	v.SetDefault("elevenlabs.url", "https://api.elevenlabs.io")
	v.SetDefault("elevenlabs.model", "eleven_multilingual_v2")
	v.SetDefault("elevenlabs.output_format", "pcm_44100")
	v.SetDefault("elevenlabs.requests_per_minute", 20)
	v.SetDefault("elevenlabs.voices", DefaultVoices)
	v.SetDefault("elevenlabs.default_voice", "pNInz6obpgDQGcFmaJgB")

	v.SetDefault("speech.engine", EngineAuto)
	v.SetDefault("speech.local.binary", "espeak-ng")
	v.SetDefault("speech.local.rate", 0.8)
	v.SetDefault("speech.local.default_locale", "en-US")
	v.SetDefault("speech.local.locales", DefaultLocales)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.max_size", 64)

	v.SetDefault("http.timeout", "30s")
}

// Load resolves the configuration from v and the environment.
func Load(v *viper.Viper) (*Config, error) {
	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return nil, fmt.Errorf("unable to parse environment: %w", err)
	}

	cfg := &Config{
		Sunbird: SunbirdConfig{
			Token:             v.GetString("sunbird.token"),
			URL:               v.GetString("sunbird.url"),
			RequestsPerMinute: v.GetInt("sunbird.requests_per_minute"),
			DemoDelay:         v.GetDuration("sunbird.demo_delay"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:            v.GetString("elevenlabs.api_key"),
			URL:               v.GetString("elevenlabs.url"),
			Model:             v.GetString("elevenlabs.model"),
			OutputFormat:      v.GetString("elevenlabs.output_format"),
			RequestsPerMinute: v.GetInt("elevenlabs.requests_per_minute"),
			Voices:            v.GetStringMapString("elevenlabs.voices"),
			DefaultVoice:      v.GetString("elevenlabs.default_voice"),
		},
		Speech: SpeechConfig{
			Engine: strings.ToLower(v.GetString("speech.engine")),
			Local: LocalSpeechConfig{
				Binary:        v.GetString("speech.local.binary"),
				Rate:          v.GetFloat64("speech.local.rate"),
				DefaultLocale: v.GetString("speech.local.default_locale"),
				Locales:       v.GetStringMapString("speech.local.locales"),
			},
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("cache.enabled"),
			Dir:     v.GetString("cache.dir"),
			MaxSize: v.GetInt("cache.max_size"),
		},
		HTTPTimeout: v.GetDuration("http.timeout"),
	}

	if cfg.Sunbird.Token == "" {
		cfg.Sunbird.Token = creds.SunbirdToken
	}
	if cfg.ElevenLabs.APIKey == "" {
		cfg.ElevenLabs.APIKey = creds.ElevenLabsKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and locale tags.
func (c *Config) Validate() error {
	var errs []error

	switch c.Speech.Engine {
	case "", EngineAuto, EngineRemote, EngineLocal:
	default:
		errs = append(errs, fmt.Errorf("speech engine must be one of auto, remote, local, got %q", c.Speech.Engine))
	}

	if c.Speech.Local.Rate < 0.1 || c.Speech.Local.Rate > 3.0 {
		errs = append(errs, fmt.Errorf("local speech rate must be between 0.1 and 3.0, got %.2f", c.Speech.Local.Rate))
	}

	if _, err := language.Parse(c.Speech.Local.DefaultLocale); err != nil {
		errs = append(errs, fmt.Errorf("invalid default locale %q: %w", c.Speech.Local.DefaultLocale, err))
	}
	for code, loc := range c.Speech.Local.Locales {
		if _, err := language.Parse(loc); err != nil {
			errs = append(errs, fmt.Errorf("invalid locale %q for %s: %w", loc, code, err))
		}
	}

	switch c.ElevenLabs.OutputFormat {
	case "pcm_44100", "pcm_48000":
	default:
		errs = append(errs, fmt.Errorf("elevenlabs output_format must be pcm_44100 or pcm_48000, got %q", c.ElevenLabs.OutputFormat))
	}

	if c.Sunbird.RequestsPerMinute < 1 {
		errs = append(errs, fmt.Errorf("sunbird requests_per_minute must be positive, got %d", c.Sunbird.RequestsPerMinute))
	}
	if c.ElevenLabs.RequestsPerMinute < 1 {
		errs = append(errs, fmt.Errorf("elevenlabs requests_per_minute must be positive, got %d", c.ElevenLabs.RequestsPerMinute))
	}
	if c.Sunbird.DemoDelay < 0 {
		errs = append(errs, errors.New("sunbird demo_delay cannot be negative"))
	}

	if c.Cache.MaxSize < 1 || c.Cache.MaxSize > 10000 {
		errs = append(errs, fmt.Errorf("cache max_size must be between 1 and 10000 MB, got %d", c.Cache.MaxSize))
	}

	return errors.Join(errs...)
}
