package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ughealth/healthguide/internal/cache"
	"golang.org/x/time/rate"
)

// SourceLanguage is the language of every catalog text.
const SourceLanguage = "eng"

// Translator translates English text into a target language.
type Translator interface {
	Translate(ctx context.Context, target, text string) (string, error)
}

// Options configures a Client.
type Options struct {
	URL               string
	Token             string
	RequestsPerMinute int
	Timeout           time.Duration

	// Cache stores successful translations. Optional.
	Cache cache.Cache

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
}

// Client is a Sunbird API client.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	cache   cache.Cache

	mu    sync.RWMutex
	token string
}

type request struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Text           string `json:"text"`
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 30
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		url:     opts.URL,
		token:   opts.Token,
		http:    hc,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		cache:   opts.Cache,
	}
}

// SetToken replaces the bearer token, e.g. after the config file changed.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Translate sends one translation request. Successful results are cached by
// target language and text.
func (c *Client) Translate(ctx context.Context, target, text string) (string, error) {
	key := cache.Key("translation", target, text)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			log.Debug("translation served from cache", "lang", target)
			return string(v), nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	body, err := json.Marshal(request{
		SourceLanguage: SourceLanguage,
		TargetLanguage: target,
		Text:           text,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("unable to read response: %w", err)
	}
	log.Debug("translation response", "lang", target, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Status: resp.StatusCode, Message: statusMessage(resp, data)}
	}

	translation, err := Decode(data)
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		if err := c.cache.Put(key, []byte(translation)); err != nil {
			log.Debug("unable to cache translation", "error", err)
		}
	}
	return translation, nil
}

// statusMessage returns the provider's "message" field, or the status text.
func statusMessage(resp *http.Response, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// candidates are the response fields that may hold the translation, in order
// of preference.
var candidates = [][]string{
	{"output", "translated_text"},
	{"text"},
	{"translation"},
	{"result"},
}

// Decode extracts the translated text from a successful response body. The
// first non-empty candidate field wins.
func Decode(body []byte) (string, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("unable to decode translation response: %w", err)
	}

	for _, path := range candidates {
		if s, ok := lookup(doc, path); ok && s != "" {
			return s, nil
		}
	}
	return "", ErrMissingTranslation
}

func lookup(doc map[string]any, path []string) (string, bool) {
	var cur any = doc
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur = m[p]
	}
	s, ok := cur.(string)
	return s, ok
}
