package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

var (
	// ErrRecommenderUnavailable covers timeouts, refused connections and
	// non-2xx responses.
	ErrRecommenderUnavailable = errors.New("recommender unavailable")
	// ErrMalformedResponse covers unparseable answers and out-of-range choices.
	ErrMalformedResponse = errors.New("recommender response malformed")
)

// Failure hints reported to operators alongside a fallback.
const (
	HintUnreachable  = "server unreachable"
	HintModelMissing = "model missing"
	HintGeneric      = "generic"
)

// Failure classes, matching the two sentinel errors.
const (
	ClassUnavailable = "unavailable"
	ClassMalformed   = "malformed"
)

// ProviderError wraps a transport-level failure from a provider SDK.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FailureClass returns ClassUnavailable or ClassMalformed for an error
// produced by Engine.Recommend.
func FailureClass(err error) string {
	if errors.Is(err, ErrMalformedResponse) {
		return ClassMalformed
	}
	return ClassUnavailable
}

// FailureHint guesses the operator-facing cause of a recommender failure.
func FailureHint(err error) string {
	if err == nil {
		return ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode == 404 {
		return HintModelMissing
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "model") && (strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")) {
		return HintModelMissing
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return HintUnreachable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return HintUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return HintUnreachable
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return HintUnreachable
	}

	return HintGeneric
}
