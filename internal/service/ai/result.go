package ai

import (
	"context"
	"errors"

	"github.com/zhouzirui/moodmate/backend/internal/service/llm/groq"
)

// ErrorPrefix 是错误回复在会话记录中的前缀。
const ErrorPrefix = "⚠️ Error: "

// ErrorKind classifies a failed completion.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindDecode    ErrorKind = "decode"
	KindEmpty     ErrorKind = "empty"
	KindUnknown   ErrorKind = "unknown"
)

// Result is either a reply text or a classified failure.
type Result struct {
	Text string
	Kind ErrorKind
	Err  error
}

// Ok wraps a successful reply.
func Ok(text string) Result {
	return Result{Text: text}
}

// Failed wraps err with its classification.
func Failed(err error) Result {
	return Result{Kind: Classify(err), Err: err}
}

// OK reports whether the completion succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Reply returns the text shown to the user: the reply, or the formatted error.
func (r Result) Reply() string {
	if r.Err != nil {
		return FormatError(r.Err)
	}
	return r.Text
}

// FormatError renders err the way failures appear in the transcript.
func FormatError(err error) string {
	if err == nil {
		return ErrorPrefix
	}
	return ErrorPrefix + err.Error()
}

// Classify maps transport errors onto an ErrorKind.
func Classify(err error) ErrorKind {
	var (
		statusErr    *groq.StatusError
		transportErr *groq.TransportError
		decodeErr    *groq.DecodeError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &statusErr):
		return KindStatus
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &transportErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.Is(err, groq.ErrNoChoices), errors.Is(err, groq.ErrNoContent), errors.Is(err, ErrEmptyReply):
		return KindEmpty
	default:
		return KindUnknown
	}
}
