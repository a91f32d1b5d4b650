package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FailureKind classifies generation failures at the gateway boundary.
type FailureKind string

const (
	KindRateLimited        FailureKind = "rate_limited"
	KindPermissionDenied   FailureKind = "permission_denied"
	KindNetworkError       FailureKind = "network_error"
	KindInvalidArgument    FailureKind = "invalid_argument"
	KindServiceUnavailable FailureKind = "service_unavailable"
	KindOther              FailureKind = "other"
)

// GenError is a classified generation failure. Callers switch on Kind to
// decide user-facing wording; the wrapped error keeps provider detail.
type GenError struct {
	Kind FailureKind
	Err  error
}

func (e *GenError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, defaulting to KindOther for
// unclassified errors.
func KindOf(err error) FailureKind {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindOther
}

// Classify wraps a raw provider error with a failure kind. Provider SDKs
// surface HTTP status through error text, so matching is textual.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ge *GenError
	if errors.As(err, &ge) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &GenError{Kind: KindNetworkError, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return &GenError{Kind: KindRateLimited, Err: err}
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "permission") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key"):
		return &GenError{Kind: KindPermissionDenied, Err: err}
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid argument") || strings.Contains(msg, "invalid request"):
		return &GenError{Kind: KindInvalidArgument, Err: err}
	case strings.Contains(msg, "503") || strings.Contains(msg, "unavailable") || strings.Contains(msg, "overloaded"):
		return &GenError{Kind: KindServiceUnavailable, Err: err}
	case strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") || strings.Contains(msg, "network"):
		return &GenError{Kind: KindNetworkError, Err: err}
	default:
		return &GenError{Kind: KindOther, Err: err}
	}
}

// IsRetryable reports whether the failure is worth retrying with backoff.
// Only rate limiting qualifies; everything else propagates immediately.
func IsRetryable(err error) bool {
	return KindOf(err) == KindRateLimited
}
