package judge

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/valpere/speechjudge/internal/transcriber"
)

// Kind is a coarse category of a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindTranscription
	KindAuth
	KindRateLimited
	KindUnavailable
	KindService
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTranscription:
		return "transcription_failed"
	case KindAuth:
		return "auth_failed"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "service_unavailable"
	case KindService:
		return "service_error"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify inspects err without wrapping or altering it.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	if errors.Is(err, transcriber.ErrNoAudio) ||
		errors.Is(err, transcriber.ErrEmptyPath) ||
		errors.Is(err, transcriber.ErrDuplicateSegment) ||
		errors.Is(err, transcriber.ErrInvalidOptions) {
		return KindInvalidInput
	}

	var te *transcriber.TranscriptionError
	if errors.As(err, &te) {
		return KindTranscription
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return kindForStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return kindForStatus(reqErr.HTTPStatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindUnavailable
	}

	return KindUnknown
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout:
		return KindUnavailable
	default:
		return KindService
	}
}

// Describe returns a short operator-facing explanation for a failure kind.
func Describe(k Kind) string {
	switch k {
	case KindInvalidInput:
		return "the audio inputs or transcription options are invalid"
	case KindTranscription:
		return "the transcription engine could not process the audio"
	case KindAuth:
		return "the judge provider rejected the API key (check OPENAI_API_KEY or judge.api_key)"
	case KindRateLimited:
		return "the judge provider rate limit was reached"
	case KindUnavailable:
		return "the judge provider is unreachable or unavailable"
	case KindService:
		return "the judge provider returned an error"
	case KindCanceled:
		return "the evaluation was canceled"
	default:
		return "the evaluation failed"
	}
}
