// Package guide holds the state of a health guide session and the
// transitions that change it: selecting a language and topic, translating
// the topic, and reading the translation aloud.
//
// A Guide is owned by one goroutine, the event loop. The Begin* methods
// validate and record the start of an operation and return a request; the
// request is carried out by Translate or Speak, which touch no state and may
// run on any goroutine; the result is applied back on the event loop with
// the matching Complete* method.
package guide

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ughealth/healthguide/internal/catalog"
	"github.com/ughealth/healthguide/internal/speech"
	"github.com/ughealth/healthguide/internal/translate"
)

// MsgSelectionRequired is shown when translation is requested without a
// language and a topic.
const MsgSelectionRequired = "Please select both a language and a health topic"

// Sentinel errors.
var (
	ErrSelectionIncomplete = errors.New("language and topic must both be selected")
	ErrBusy                = errors.New("operation already in progress")
	ErrUnknownLanguage     = errors.New("unknown language")
	ErrUnknownTopic        = errors.New("unknown topic")
)

// State is everything the user sees.
type State struct {
	Language string
	Topic    string

	Translation string
	// Demo is set when Translation is demo or fallback text.
	Demo bool

	Translating     bool
	GeneratingAudio bool
	Playing         bool

	// Err is the current user-facing error message, empty if none.
	Err string
}

// Options configures a Guide.
type Options struct {
	Translator translate.Translator
	Speaker    speech.Speaker

	// TranslationConfigured reports whether a real translation credential is
	// set. Without one, demo text is produced and no request is made.
	TranslationConfigured func() bool

	// DemoDelay is how long producing demo text takes.
	DemoDelay time.Duration

	// Notify receives playback events. It is called from playback
	// goroutines and must not block.
	Notify func(SpeechEvent)
}

// Guide owns a State and changes it only through its transition methods.
type Guide struct {
	opts  Options
	state State

	attempt uint64

	session      string
	sessionEnded bool
	cancelSpeech context.CancelFunc
}

// New creates a Guide with nothing selected.
func New(opts Options) *Guide {
	if opts.TranslationConfigured == nil {
		opts.TranslationConfigured = func() bool { return false }
	}
	return &Guide{opts: opts}
}

// State returns a copy of the current state.
func (g *Guide) State() State {
	return g.state
}

// SelectLanguage selects a language. It never clears a translation.
func (g *Guide) SelectLanguage(code string) error {
	if _, ok := catalog.LanguageByCode(code); !ok {
		return ErrUnknownLanguage
	}
	g.state.Language = code
	return nil
}

// SelectTopic selects a topic. It never clears a translation.
func (g *Guide) SelectTopic(key string) error {
	if _, ok := catalog.TopicByKey(key); !ok {
		return ErrUnknownTopic
	}
	g.state.Topic = key
	return nil
}

// DismissError clears the error message and nothing else.
func (g *Guide) DismissError() {
	g.state.Err = ""
}

// Request is one translation attempt.
type Request struct {
	ID       uint64
	Language catalog.Language
	Topic    catalog.Topic
	Demo     bool
}

// Outcome is the result of a translation attempt. Text is always set; when
// the attempt failed it holds fallback text and Message the error to show.
type Outcome struct {
	ID      uint64
	Text    string
	Demo    bool
	Err     error
	Message string
}

// BeginTranslation starts a translation attempt. It fails with ErrBusy while
// another attempt is pending and with ErrSelectionIncomplete, setting the
// error message, when the selection is incomplete.
func (g *Guide) BeginTranslation() (Request, error) {
	if g.state.Translating {
		return Request{}, ErrBusy
	}

	lang, okLang := catalog.LanguageByCode(g.state.Language)
	topic, okTopic := catalog.TopicByKey(g.state.Topic)
	if !okLang || !okTopic {
		g.state.Err = MsgSelectionRequired
		return Request{}, ErrSelectionIncomplete
	}

	g.attempt++
	g.state.Translating = true
	g.state.Err = ""
	g.state.Translation = ""
	g.state.Demo = false

	return Request{
		ID:       g.attempt,
		Language: lang,
		Topic:    topic,
		Demo:     !g.opts.TranslationConfigured(),
	}, nil
}

// Translate carries out a request. It reads no state.
func (g *Guide) Translate(ctx context.Context, req Request) Outcome {
	english := req.Topic.Content
	name := req.Language.Name

	if req.Demo {
		if g.opts.DemoDelay > 0 {
			t := time.NewTimer(g.opts.DemoDelay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
		}
		log.Debug("demo translation", "lang", req.Language.Code, "topic", req.Topic.Key)
		return Outcome{ID: req.ID, Text: translate.DemoText(name, english), Demo: true}
	}

	text, err := g.opts.Translator.Translate(ctx, req.Language.Code, english)
	if err != nil {
		log.Error("translation failed", "lang", req.Language.Code, "topic", req.Topic.Key, "error", err)
		return Outcome{
			ID:      req.ID,
			Text:    translate.FallbackText(name, english),
			Demo:    true,
			Err:     err,
			Message: translate.Classify(err),
		}
	}
	log.Debug("translation finished", "lang", req.Language.Code, "topic", req.Topic.Key)
	return Outcome{ID: req.ID, Text: text}
}

// CompleteTranslation applies an outcome. Outcomes of attempts other than
// the pending one are ignored.
func (g *Guide) CompleteTranslation(o Outcome) {
	if !g.state.Translating || o.ID != g.attempt {
		return
	}
	g.state.Translating = false
	g.state.Translation = o.Text
	g.state.Demo = o.Demo
	g.state.Err = o.Message
}

// TranslateNow runs a whole attempt synchronously.
func (g *Guide) TranslateNow(ctx context.Context) (Outcome, error) {
	req, err := g.BeginTranslation()
	if err != nil {
		return Outcome{}, err
	}
	o := g.Translate(ctx, req)
	g.CompleteTranslation(o)
	return o, nil
}
