package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Error classes reported in logs and metrics. They never drive a retry.
const (
	ErrorClassRateLimit       = "rate_limit"
	ErrorClassCreditExhausted = "credit_exhausted"
	ErrorClassServerError     = "server_error"
	ErrorClassClientError     = "client_error"
	ErrorClassTimeout         = "timeout"
	ErrorClassUnknown         = "unknown"
)

// ClassifyError buckets a model invocation failure. It returns "" for nil.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}

	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr.StatusCode != 0 {
		switch {
		case invErr.StatusCode == http.StatusTooManyRequests:
			return ErrorClassRateLimit
		case invErr.StatusCode == http.StatusPaymentRequired:
			return ErrorClassCreditExhausted
		case invErr.StatusCode >= 500:
			return ErrorClassServerError
		case invErr.StatusCode >= 400:
			return ErrorClassClientError
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "status 429", "rate limit", "too many requests", "resource_exhausted"):
		return ErrorClassRateLimit
	case containsAny(msg, "status 402", "insufficient credit", "credit exhausted", "billing"):
		return ErrorClassCreditExhausted
	case containsAny(msg, "status 5", "server error", "internal error"):
		return ErrorClassServerError
	case containsAny(msg, "status 4", "bad request", "unauthorized", "forbidden", "api key"):
		return ErrorClassClientError
	case containsAny(msg, "timeout", "deadline exceeded"):
		return ErrorClassTimeout
	default:
		return ErrorClassUnknown
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
