package speech

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// LocaleFor returns the synthesizer locale for a language code, or def.
func LocaleFor(locales map[string]string, def, code string) string {
	if l, ok := locales[code]; ok && l != "" {
		return l
	}
	return def
}

// LocalOptions configures a LocalSpeaker.
type LocalOptions struct {
	Voice         Voice
	Locales       map[string]string
	DefaultLocale string
	Rate          float64
}

// LocalSpeaker speaks through a synthesizer installed on the system.
type LocalSpeaker struct {
	voice         Voice
	locales       map[string]string
	defaultLocale string
	rate          float64

	mu sync.Mutex
}

// NewLocalSpeaker creates a LocalSpeaker.
func NewLocalSpeaker(opts LocalOptions) *LocalSpeaker {
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = "en-US"
	}
	if opts.Rate <= 0 {
		opts.Rate = 0.8
	}
	return &LocalSpeaker{
		voice:         opts.Voice,
		locales:       opts.Locales,
		defaultLocale: opts.DefaultLocale,
		rate:          opts.Rate,
	}
}

// Check fails when no synthesizer is installed.
func (s *LocalSpeaker) Check() error {
	if !s.voice.Available() {
		return newError(KindUnavailable, ErrUnavailable)
	}
	return nil
}

// Utterance builds the utterance for text in a language.
func (s *LocalSpeaker) Utterance(text, lang string) Utterance {
	return Utterance{
		Text:   PlainText(text),
		Locale: LocaleFor(s.locales, s.defaultLocale, lang),
		Rate:   s.rate,
		Pitch:  1.0,
		Volume: 1.0,
	}
}

// Speak cancels the current utterance and speaks text. Nothing is spoken
// once ctx is done.
func (s *LocalSpeaker) Speak(ctx context.Context, text, lang string, ev Events) error {
	if strings.TrimSpace(text) == "" {
		return newError(KindNoText, ErrNoText)
	}
	if err := s.Check(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.voice.Stop(); err != nil {
		log.Debug("unable to cancel previous utterance", "error", err)
	}

	u := s.Utterance(text, lang)
	err := s.voice.Start(u, Events{
		OnStart: ev.OnStart,
		OnEnd:   ev.OnEnd,
		OnError: func(err error) {
			ev.fail(&Error{Kind: KindPlayback, Message: MsgLocalPlaybackFailed, Cause: err})
		},
	})
	if err != nil {
		return &Error{Kind: KindPlayback, Message: MsgLocalPlaybackFailed, Cause: err}
	}
	log.Debug("utterance started", "lang", lang, "locale", u.Locale)
	return nil
}

// Stop cancels speech. It is safe to call when nothing is speaking.
func (s *LocalSpeaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice.Stop()
}
