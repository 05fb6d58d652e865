package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/ughealth/healthguide/internal/cache"
	"golang.org/x/time/rate"
)

// maxAudioSize bounds a synthesized response.
const maxAudioSize = 50 * 1024 * 1024

// VoiceSettings are sent with every synthesis request.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings are the settings used for every language.
var DefaultVoiceSettings = VoiceSettings{
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0.0,
	UseSpeakerBoost: true,
}

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// ElevenLabsOptions configures an ElevenLabs client.
type ElevenLabsOptions struct {
	APIKey            string
	URL               string
	Model             string
	OutputFormat      string
	RequestsPerMinute int
	Timeout           time.Duration

	// Cache stores synthesized audio. Optional.
	Cache cache.Cache

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
}

// ElevenLabs is a client for the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	baseURL string
	model   string
	format  string
	http    *http.Client
	limiter *rate.Limiter
	cache   cache.Cache

	mu     sync.RWMutex
	apiKey string
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// NewElevenLabs creates an ElevenLabs client.
func NewElevenLabs(opts ElevenLabsOptions) *ElevenLabs {
	if opts.URL == "" {
		opts.URL = "https://api.elevenlabs.io"
	}
	if opts.Model == "" {
		opts.Model = "eleven_multilingual_v2"
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = "pcm_44100"
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &ElevenLabs{
		baseURL: strings.TrimRight(opts.URL, "/"),
		model:   opts.Model,
		format:  opts.OutputFormat,
		apiKey:  opts.APIKey,
		http:    hc,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		cache:   opts.Cache,
	}
}

// SetAPIKey replaces the API key, e.g. after the config file changed.
func (c *ElevenLabs) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

func (c *ElevenLabs) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// SampleRate returns the sample rate of the requested PCM output format, or
// zero if the format is not PCM.
func (c *ElevenLabs) SampleRate() int {
	return SampleRate(c.format)
}

// SampleRate parses a "pcm_<rate>" output format.
func SampleRate(format string) int {
	r, ok := strings.CutPrefix(format, "pcm_")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(r)
	if err != nil {
		return 0
	}
	return n
}

// Synthesize requests audio for text spoken by voiceID. Successful results
// are cached by voice, model and text.
func (c *ElevenLabs) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	key := cache.Key("audio", voiceID, c.model, c.format, text)
	if c.cache != nil {
		if audio, ok := c.cache.Get(key); ok {
			log.Debug("audio served from cache", "voice", voiceID, "size", humanize.Bytes(uint64(len(audio))))
			return audio, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	body, err := json.Marshal(synthesisRequest{
		Text:          text,
		ModelID:       c.model,
		VoiceSettings: DefaultVoiceSettings,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?%s", c.baseURL, url.PathEscape(voiceID),
		url.Values{"output_format": {c.format}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Accept", "audio/*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.key())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize))
	if err != nil {
		return nil, fmt.Errorf("unable to read audio: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(audio))}
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech provider returned no audio")
	}

	log.Debug("audio synthesized", "voice", voiceID, "size", humanize.Bytes(uint64(len(audio))), "took", time.Since(start))

	if c.cache != nil {
		if err := c.cache.Put(key, audio); err != nil {
			log.Debug("unable to cache audio", "error", err)
		}
	}
	return audio, nil
}
