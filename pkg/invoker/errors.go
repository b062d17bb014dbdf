package invoker

import (
	"strings"

	"github.com/zen-systems/mindgate/pkg/provider"
)

// ErrorKind labels an invocation failure for fallback synthesis and
// retry policy.
type ErrorKind string

const (
	ErrKindValidation          ErrorKind = "validation_error"
	ErrKindProviderUnavailable ErrorKind = "provider_unavailable"
	ErrKindTimeout             ErrorKind = "timeout"
	ErrKindRateLimited         ErrorKind = "rate_limited"
	ErrKindNetwork             ErrorKind = "network_error"
	ErrKindParsing             ErrorKind = "parsing_error"
	ErrKindStructural          ErrorKind = "structural_validation_error"
	ErrKindUnknown             ErrorKind = "unknown_error"
)

// classifyError buckets a provider error by status and message inspection.
// Everything is retryable except 4xx statuses other than 429.
func classifyError(err error) (kind ErrorKind, retryable bool) {
	if err == nil {
		return ErrKindUnknown, true
	}

	status := provider.StatusOf(err)
	msg := strings.ToLower(err.Error())

	switch {
	case status == 429 || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return ErrKindRateLimited, true
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline exceeded"):
		return ErrKindTimeout, true
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection") || strings.Contains(msg, "no such host") || strings.Contains(msg, "econn"):
		return ErrKindNetwork, true
	case status >= 400 && status < 500:
		return ErrKindUnknown, false
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return ErrKindUnknown, false
	default:
		return ErrKindUnknown, true
	}
}
