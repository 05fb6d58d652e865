package guide

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/ughealth/healthguide/internal/speech"
)

// EventKind is what happened to a playback session.
type EventKind int

// Playback events.
const (
	EventStarted EventKind = iota
	EventEnded
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventEnded:
		return "ended"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SpeechEvent reports a change in a playback session.
type SpeechEvent struct {
	Session string
	Kind    EventKind
	Err     error
}

// SpeechRequest is one request to read the translation aloud.
type SpeechRequest struct {
	Session  string
	Text     string
	Language string

	ctx context.Context
}

// SpeechResult is the outcome of Speak.
type SpeechResult struct {
	Session string
	Err     error
}

// BeginSpeech starts a speech session for the current translation. Missing
// text or an unusable speaker set the error message and make no request.
// Any current session is stopped first.
func (g *Guide) BeginSpeech() (SpeechRequest, error) {
	if g.state.GeneratingAudio {
		return SpeechRequest{}, ErrBusy
	}
	if g.state.Translation == "" {
		g.state.Err = speech.MsgNoText
		return SpeechRequest{}, speech.ErrNoText
	}
	if err := g.opts.Speaker.Check(); err != nil {
		g.state.Err = speech.Classify(err)
		return SpeechRequest{}, err
	}

	g.StopSpeech()

	ctx, cancel := context.WithCancel(context.Background())
	g.session = uuid.NewString()
	g.sessionEnded = false
	g.cancelSpeech = cancel
	g.state.GeneratingAudio = true
	g.state.Err = ""

	return SpeechRequest{
		Session:  g.session,
		Text:     g.state.Translation,
		Language: g.state.Language,
		ctx:      ctx,
	}, nil
}

// Speak carries out a speech request. It reads no state; playback events
// are delivered through Options.Notify.
func (g *Guide) Speak(req SpeechRequest) SpeechResult {
	ctx := req.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	notify := func(kind EventKind, err error) {
		if g.opts.Notify != nil {
			g.opts.Notify(SpeechEvent{Session: req.Session, Kind: kind, Err: err})
		}
	}
	err := g.opts.Speaker.Speak(ctx, req.Text, req.Language, speech.Events{
		OnStart: func() { notify(EventStarted, nil) },
		OnEnd:   func() { notify(EventEnded, nil) },
		OnError: func(err error) { notify(EventFailed, err) },
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("speech failed", "lang", req.Language, "error", err)
	}
	return SpeechResult{Session: req.Session, Err: err}
}

// CompleteSpeech applies the result of Speak. Results of stopped or
// replaced sessions are ignored.
func (g *Guide) CompleteSpeech(r SpeechResult) {
	if r.Session == "" || r.Session != g.session {
		return
	}
	g.state.GeneratingAudio = false
	g.cancelSpeech = nil

	if r.Err != nil {
		g.state.Playing = false
		g.session = ""
		if !errors.Is(r.Err, context.Canceled) {
			g.state.Err = speech.Classify(r.Err)
		}
		return
	}
	if !g.sessionEnded {
		g.state.Playing = true
	}
}

// HandleSpeechEvent applies a playback event. Events of stopped or replaced
// sessions are ignored.
func (g *Guide) HandleSpeechEvent(ev SpeechEvent) {
	if ev.Session == "" || ev.Session != g.session {
		return
	}
	switch ev.Kind {
	case EventStarted:
		if !g.sessionEnded {
			g.state.Playing = true
		}
	case EventEnded:
		g.sessionEnded = true
		g.state.Playing = false
	case EventFailed:
		g.sessionEnded = true
		g.state.Playing = false
		g.state.Err = speech.Classify(ev.Err)
	}
}

// StopSpeech halts playback and abandons a pending synthesis. It is safe to
// call at any time.
func (g *Guide) StopSpeech() {
	if g.cancelSpeech != nil {
		g.cancelSpeech()
		g.cancelSpeech = nil
	}
	if err := g.opts.Speaker.Stop(); err != nil {
		log.Debug("unable to stop speech", "error", err)
	}
	g.session = ""
	g.sessionEnded = false
	g.state.Playing = false
	g.state.GeneratingAudio = false
}

// ToggleSpeech stops playback when playing and starts a session otherwise.
// The returned request is valid only when started is true.
func (g *Guide) ToggleSpeech() (req SpeechRequest, started bool, err error) {
	if g.state.Playing {
		g.StopSpeech()
		return SpeechRequest{}, false, nil
	}
	req, err = g.BeginSpeech()
	return req, err == nil, err
}
