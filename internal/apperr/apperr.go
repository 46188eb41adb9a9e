// Package apperr defines the error taxonomy shared by every layer of the
// service and the mapping from each kind to an HTTP status and stable code.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

type Kind string

const (
	InvalidCredential Kind = "invalid_credential"
	RateLimited       Kind = "rate_limited"
	UpstreamTimeout   Kind = "upstream_timeout"
	Validation        Kind = "validation_error"
	ParseFailure      Kind = "parse_failure"
	NoData            Kind = "no_data"
	Upstream          Kind = "upstream_error"
)

// Error is a classified failure. Code is the machine-readable code returned
// to clients; when empty the kind's default code is used.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// WithCode returns a validation error carrying a specific client code.
func WithCode(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or Upstream.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Upstream
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a kind to the status returned to callers.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidCredential:
		return http.StatusUnauthorized
	case RateLimited:
		return http.StatusTooManyRequests
	case UpstreamTimeout:
		return http.StatusGatewayTimeout
	case Validation:
		return http.StatusBadRequest
	case ParseFailure, NoData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the client-facing code for err.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	switch KindOf(err) {
	case InvalidCredential:
		return "invalid_api_key"
	case RateLimited:
		return "rate_limit_exceeded"
	case UpstreamTimeout:
		return "request_timeout"
	case Validation:
		return "invalid_request"
	case ParseFailure:
		return "parse_failure"
	case NoData:
		return "no_data"
	default:
		return "server_error"
	}
}

// PublicMessage returns a message safe to show to clients.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Upstream {
		return e.Message
	}
	switch KindOf(err) {
	case InvalidCredential:
		return "Your API key appears to be invalid or has expired."
	default:
		return "An internal server error occurred. Please try again later."
	}
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, connection resets and rate limiting.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case RateLimited, UpstreamTimeout:
			return true
		case InvalidCredential, Validation, ParseFailure, NoData:
			return false
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "connection reset", "rate limit", "econnreset"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
