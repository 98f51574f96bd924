package ai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Kind classifies generation service failures.
type Kind string

const (
	KindRateLimited Kind = "rate-limited"
	KindQuota       Kind = "quota"
	KindAuth        Kind = "auth"
	KindNetwork     Kind = "network"
	KindEmpty       Kind = "empty"
	KindMalformed   Kind = "malformed"
	KindUpstream    Kind = "upstream"
)

const insufficientQuota = "insufficient_quota"

// Error is a classified failure of the generation service.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation service %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is shown to the traveller. Every kind gets its own actionable text.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindRateLimited:
		return "Our guide writer is very busy right now. Please try again in a minute."
	case KindQuota:
		return "We have used up our guide writing capacity for now. Please come back later."
	case KindAuth:
		return "The guide writer is not configured correctly. We have been notified."
	case KindNetwork:
		return "We could not reach the guide writer. Check your connection and try again."
	case KindEmpty, KindMalformed:
		return "The guide writer returned an unusable answer. Please try again."
	case KindUpstream:
		return "The guide writer is having trouble. Please try again shortly."
	default:
		return "Something went wrong while writing your guide. Please try again."
	}
}

// Classify maps err to an [*Error]. Errors that are already classified are returned unchanged.
func Classify(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		kind := kindForStatus(apiErr.HTTPStatusCode)
		if apiErr.Type == insufficientQuota || apiErr.Code == insufficientQuota {
			kind = KindQuota
		}
		return &Error{Kind: kind, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: kindForStatus(reqErr.HTTPStatusCode), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	var (
		netErr net.Error
		urlErr *url.Error
	)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return &Error{Kind: KindNetwork, StatusCode: 0, Err: err}
	}
	return &Error{Kind: KindUpstream, StatusCode: 0, Err: err}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindNetwork
	default:
		return KindUpstream
	}
}

// IsRateLimited reports whether err is a rate limit that is worth retrying.
func IsRateLimited(err error) bool {
	var classified *Error
	return errors.As(err, &classified) && classified.Kind == KindRateLimited
}
