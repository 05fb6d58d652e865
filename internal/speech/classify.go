package speech

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// User-facing messages.
const (
	MsgNoText              = "No text to convert to speech"
	MsgNotConfigured       = "ElevenLabs API key not configured. This is a demo - in production, configure your API key to enable text-to-speech."
	MsgUnavailable         = "Speech synthesis is not available on this system"
	MsgUnauthorized        = "Invalid ElevenLabs API key. Please check your credentials."
	MsgRateLimited         = "Too many requests. Please wait and try again."
	MsgQuota               = "ElevenLabs quota exceeded. Please try again later."
	MsgGenerationFailed    = "Failed to generate audio. Please try again."
	MsgPlaybackFailed      = "Failed to play audio. Please try again."
	MsgLocalPlaybackFailed = "Speech playback failed. Please try again."
)

var messages = map[Kind]string{
	KindGeneric:       MsgGenerationFailed,
	KindNoText:        MsgNoText,
	KindNotConfigured: MsgNotConfigured,
	KindUnavailable:   MsgUnavailable,
	KindUnauthorized:  MsgUnauthorized,
	KindRateLimited:   MsgRateLimited,
	KindQuota:         MsgQuota,
	KindPlayback:      MsgPlaybackFailed,
}

// StatusError is a non-success response from the speech provider. Body holds
// the response body as sent.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ElevenLabs API error (%d): %s", e.Status, e.Body)
}

// Kind classifies the response. Unauthorized takes precedence over every
// other class, then rate limiting, then quota or limit wording in the body.
func (e *StatusError) Kind() Kind {
	body := strings.ToLower(e.Body)

	switch {
	case e.Status == http.StatusUnauthorized || strings.Contains(body, "unauthorized"):
		return KindUnauthorized
	case e.Status == http.StatusTooManyRequests:
		return KindRateLimited
	case strings.Contains(body, "quota") || strings.Contains(body, "limit"):
		return KindQuota
	default:
		return KindGeneric
	}
}

// Classify maps a speech failure to the message shown to the user.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var st *StatusError
	if errors.As(err, &st) {
		return messages[st.Kind()]
	}

	switch {
	case errors.Is(err, ErrNoText):
		return MsgNoText
	case errors.Is(err, ErrNotConfigured):
		return MsgNotConfigured
	case errors.Is(err, ErrUnavailable):
		return MsgUnavailable
	}
	return MsgGenerationFailed
}
