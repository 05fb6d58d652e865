package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ughealth/healthguide/internal/config"
)

// VoiceFor returns the voice id for a language code, or def when the code
// has no voice of its own.
func VoiceFor(voices map[string]string, def, code string) string {
	if v, ok := voices[code]; ok && v != "" {
		return v
	}
	return def
}

// Configured reports whether a real API key is set.
func (c *ElevenLabs) Configured() bool {
	return config.ElevenLabsConfig{APIKey: c.key()}.Configured()
}

// RemoteSynthesizer is a Synthesizer that knows whether it has credentials.
type RemoteSynthesizer interface {
	Synthesizer
	Configured() bool
}

// RemoteOptions configures a RemoteSpeaker.
type RemoteOptions struct {
	Synth        RemoteSynthesizer
	Sink         Sink
	Voices       map[string]string
	DefaultVoice string
}

// RemoteSpeaker synthesizes speech remotely and plays it on a Sink.
type RemoteSpeaker struct {
	synth        RemoteSynthesizer
	sink         Sink
	voices       map[string]string
	defaultVoice string

	mu sync.Mutex
}

// NewRemoteSpeaker creates a RemoteSpeaker.
func NewRemoteSpeaker(opts RemoteOptions) *RemoteSpeaker {
	voices := opts.Voices
	if len(voices) == 0 {
		voices = config.DefaultVoices
	}
	def := opts.DefaultVoice
	if def == "" {
		def = config.DefaultVoices["lug"]
	}
	return &RemoteSpeaker{
		synth:        opts.Synth,
		sink:         opts.Sink,
		voices:       voices,
		defaultVoice: def,
	}
}

// Check fails when no API key is configured.
func (s *RemoteSpeaker) Check() error {
	if !s.synth.Configured() {
		return newError(KindNotConfigured, ErrNotConfigured)
	}
	return nil
}

// Speak stops the current session, synthesizes text and starts playing it.
func (s *RemoteSpeaker) Speak(ctx context.Context, text, lang string, ev Events) error {
	if strings.TrimSpace(text) == "" {
		return newError(KindNoText, ErrNoText)
	}
	if err := s.Check(); err != nil {
		return err
	}

	if err := s.Stop(); err != nil {
		log.Debug("unable to stop previous playback", "error", err)
	}

	voice := VoiceFor(s.voices, s.defaultVoice, lang)
	audio, err := s.synth.Synthesize(ctx, voice, PlainText(text))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var st *StatusError
		if errors.As(err, &st) {
			return newError(st.Kind(), err)
		}
		return newError(KindGeneric, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop may have run since synthesis finished.
	if err := ctx.Err(); err != nil {
		return err
	}
	err = s.sink.Start(audio, Events{
		OnStart: ev.OnStart,
		OnEnd:   ev.OnEnd,
		OnError: func(err error) {
			ev.fail(newError(KindPlayback, err))
		},
	})
	if err != nil {
		return newError(KindPlayback, err)
	}
	log.Debug("playback started", "lang", lang, "voice", voice)
	return nil
}

// Stop halts playback. It is safe to call when nothing is playing.
func (s *RemoteSpeaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Stop()
}
