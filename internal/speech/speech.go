package speech

import (
	"context"
	"errors"
	"fmt"
)

// Events are the callbacks of one playback session. Any of them may be nil.
// They are called from the adapter's goroutines, never from Start or Stop
// themselves unless noted by the adapter.
type Events struct {
	OnStart func()
	OnEnd   func()
	OnError func(error)
}

func (e Events) start() {
	if e.OnStart != nil {
		e.OnStart()
	}
}

func (e Events) end() {
	if e.OnEnd != nil {
		e.OnEnd()
	}
}

func (e Events) fail(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}

// Sink plays raw audio. Start replaces whatever is playing. Stop after the
// sink already stopped is a no-op and does not fire OnEnd.
type Sink interface {
	Start(audio []byte, ev Events) error
	Stop() error
}

// Utterance is one request to a local synthesizer.
type Utterance struct {
	Text   string
	Locale string
	Rate   float64
	Pitch  float64
	Volume float64
}

// Voice speaks text on the local system.
type Voice interface {
	Available() bool
	Start(u Utterance, ev Events) error
	Stop() error
}

// Speaker reads text aloud in the given language. Speak returns once playback
// has started; completion is reported through ev.
type Speaker interface {
	// Check reports whether Speak can be attempted at all, without doing
	// any work.
	Check() error
	Speak(ctx context.Context, text, lang string, ev Events) error
	Stop() error
}

// Sentinel errors.
var (
	ErrNoText        = errors.New("no text to speak")
	ErrNotConfigured = errors.New("text-to-speech API key not configured")
	ErrUnavailable   = errors.New("speech synthesis is not available")
)

// Kind groups speech failures by what the user can do about them.
type Kind int

// Failure kinds.
const (
	KindGeneric Kind = iota
	KindNoText
	KindNotConfigured
	KindUnavailable
	KindUnauthorized
	KindRateLimited
	KindQuota
	KindPlayback
)

func (k Kind) String() string {
	switch k {
	case KindNoText:
		return "no text"
	case KindNotConfigured:
		return "not configured"
	case KindUnavailable:
		return "unavailable"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate limited"
	case KindQuota:
		return "quota"
	case KindPlayback:
		return "playback"
	default:
		return "generic"
	}
}

// Error is a classified speech failure carrying the message shown to the
// user.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: messages[kind], Cause: cause}
}
