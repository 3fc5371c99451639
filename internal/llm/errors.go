package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrTransient indicates a failure that is expected to clear on its own:
// timeouts, rate limits, 5xx responses and dropped connections.
type ErrTransient struct {
	Reason string

	// RetryAfter is the vendor's requested wait, when it sent one.
	RetryAfter time.Duration
	Err        error
}

func (e *ErrTransient) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("transient LLM error (%s, retry after %s): %v", e.Reason, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("transient LLM error (%s): %v", e.Reason, e.Err)
}

func (e *ErrTransient) Unwrap() error { return e.Err }

// ErrPermanent indicates a failure that retrying the same provider will not
// fix: bad credentials, invalid requests, exhausted quota.
type ErrPermanent struct {
	Reason string
	Err    error
}

func (e *ErrPermanent) Error() string {
	return fmt.Sprintf("permanent LLM error (%s): %v", e.Reason, e.Err)
}

func (e *ErrPermanent) Unwrap() error { return e.Err }

// ErrUnknown wraps a failure that could not be categorized.
type ErrUnknown struct {
	Err error
}

func (e *ErrUnknown) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM error: %v", e.Err)
	}
	return "LLM error"
}

func (e *ErrUnknown) Unwrap() error { return e.Err }

// Failure reasons attached to ErrTransient and ErrPermanent.
const (
	ReasonTimeout        = "timeout"
	ReasonRateLimited    = "rate_limited"
	ReasonUnavailable    = "unavailable"
	ReasonNetwork        = "network"
	ReasonEmptyResponse  = "empty_response"
	ReasonAuth           = "auth"
	ReasonInvalidRequest = "invalid_request"
	ReasonQuota          = "quota_exhausted"
)

// classifyStatus maps an HTTP status returned by a vendor API into the
// error taxonomy. msg is the vendor's error text, used to tell quota
// exhaustion apart from ordinary rate limiting.
func classifyStatus(status int, msg string, retryAfter time.Duration, err error) error {
	switch {
	case status == http.StatusTooManyRequests && mentionsQuota(msg):
		return &ErrPermanent{Reason: ReasonQuota, Err: err}
	case status == http.StatusTooManyRequests:
		return &ErrTransient{Reason: ReasonRateLimited, RetryAfter: retryAfter, Err: err}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &ErrTransient{Reason: ReasonTimeout, Err: err}
	case status >= 500:
		return &ErrTransient{Reason: ReasonUnavailable, Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ErrPermanent{Reason: ReasonAuth, Err: err}
	case status == http.StatusPaymentRequired:
		return &ErrPermanent{Reason: ReasonQuota, Err: err}
	case status == http.StatusBadRequest || status == http.StatusNotFound ||
		status == http.StatusRequestEntityTooLarge || status == http.StatusUnprocessableEntity:
		return &ErrPermanent{Reason: ReasonInvalidRequest, Err: err}
	}
	return &ErrUnknown{Err: err}
}

// classifyTransport maps errors that never reached the vendor API.
// Cancellation of the caller's context is returned unchanged.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrTransient{Reason: ReasonTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &ErrTransient{Reason: ReasonTimeout, Err: err}
		}
		return &ErrTransient{Reason: ReasonNetwork, Err: err}
	}
	return &ErrUnknown{Err: err}
}

func mentionsQuota(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "billing")
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. Returns 0 when absent or unparseable.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
