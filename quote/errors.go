package quote

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrMalformedQuote indicates the response body was not a usable quote object.
	ErrMalformedQuote = errors.New("quote: malformed response")
	// ErrInvalidKey indicates a quote key that is not 1-6 decimal digits.
	ErrInvalidKey = errors.New("quote: key must be 1 to 6 digits")
)

// maxErrorBodyLen caps how much of a failed response is kept in the error text.
const maxErrorBodyLen = 256

// APIError captures non-2xx responses from the API or the relay in front of it.
type APIError struct {
	StatusCode int
	// Body keeps the raw payload for debugging.
	Body []byte
}

func (e *APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("quote: API error (status=")
	b.WriteString(strconv.Itoa(e.StatusCode))
	b.WriteString(")")
	if m := strings.TrimSpace(string(e.Body)); m != "" {
		if len(m) > maxErrorBodyLen {
			m = m[:maxErrorBodyLen] + "..."
		}
		b.WriteString(": ")
		b.WriteString(m)
	}
	return b.String()
}

// IsAPIError returns the APIError wrapped in err, if any.
func IsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
