package provider

import (
	"context"
	"errors"
)

var (
	ErrRateLimit     = errors.New("provider rate limited")
	ErrContextLength = errors.New("context length exceeded")
	ErrProviderDown  = errors.New("provider unavailable")
	// ErrAuth means the credentials were rejected. Failing over does not help.
	ErrAuth         = errors.New("provider rejected credentials")
	ErrAllProviders = errors.New("all providers failed")
	ErrNoProvider   = errors.New("no provider configured")
)

// IsRetryable reports whether another provider, or a later attempt, may
// succeed where this one failed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}

// Reason returns a short label for err suitable for logs and metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrContextLength):
		return "context_length"
	case errors.Is(err, ErrProviderDown):
		return "unavailable"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrAllProviders):
		return "exhausted"
	case errors.Is(err, ErrNoProvider):
		return "no_provider"
	default:
		return "other"
	}
}
