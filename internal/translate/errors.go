package translate

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingTranslation is returned when a successful response carries none
// of the known translation fields.
var ErrMissingTranslation = errors.New("no translation received from API")

// User-facing messages.
const (
	MsgAuthFailed  = "Authentication failed. Please check the API credentials."
	MsgRateLimited = "Too many requests. Please wait a moment and try again."
	MsgFailed      = "Translation failed. Please check your internet connection and try again."
)

// StatusError is a non-success response from the provider.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("translation API error (%d): %s", e.Status, e.Message)
}

// Classify maps a translation failure to the message shown to the user.
func Classify(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return MsgAuthFailed
		case http.StatusTooManyRequests:
			return MsgRateLimited
		}
	}
	return MsgFailed
}
