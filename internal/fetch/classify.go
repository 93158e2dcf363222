package fetch

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Class categorizes a fetch failure by how it should be handled.
type Class string

const (
	// ClassTransient failures (timeouts, connection refused, 5xx, rate
	// limiting) are retried by the next scheduled trigger: no ledger row is
	// written and last_scraped_at is left untouched.
	ClassTransient Class = "transient"

	// ClassFatal failures (4xx, malformed URI, missing local path) will not
	// heal on their own; they are recorded against the source so operators
	// can intervene.
	ClassFatal Class = "fatal"
)

// Classify determines how a fetch failure should be handled. Unknown errors
// classify as transient: the scheduled re-trigger is cheap, while a wrongly
// fatal classification silences a source until an operator notices.
func Classify(err error) Class {
	var fetchErr *Error
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		return classifyStatus(fetchErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	if isMalformedError(msg) {
		return ClassFatal
	}
	if isNetworkError(msg) {
		return ClassTransient
	}

	return ClassTransient
}

func classifyStatus(statusCode int) Class {
	switch {
	case statusCode == 429:
		return ClassTransient
	case statusCode >= 500 && statusCode < 600:
		return ClassTransient
	case statusCode >= 400 && statusCode < 500:
		return ClassFatal
	default:
		return ClassTransient
	}
}

func isMalformedError(msg string) bool {
	for _, needle := range []string{
		"unsupported protocol scheme",
		"missing protocol scheme",
		"invalid url",
		"invalid uri",
		"no such host",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func isNetworkError(msg string) bool {
	for _, needle := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"eof",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
