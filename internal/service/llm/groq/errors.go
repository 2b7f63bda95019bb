package groq

import (
	"fmt"
	"net/http"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	kind := "Server Error"
	if e.Code >= 400 && e.Code < 500 {
		kind = "Client Error"
	}
	return fmt.Sprintf("%d %s: %s for url: %s", e.Code, kind, http.StatusText(e.Code), e.URL)
}

// TransportError wraps failures to reach the endpoint or read its reply.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError wraps a malformed response body.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode completion response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
