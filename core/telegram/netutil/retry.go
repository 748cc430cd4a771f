package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
)

// ShouldRetry reports whether a transport error is transient: a failed dial or
// a timeout. Cancellation by the caller is never retried.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if DialFailure(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

// DialFailure reports whether err happened before any byte of the request
// reached the server, which makes a replay safe for every method.
func DialFailure(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// RetryableStatus reports HTTP statuses that signal a temporary server-side condition.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Idempotent reports whether a request with method may be replayed after it
// possibly reached the server.
func Idempotent(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// replayable decides whether one failed attempt of req may be repeated.
func replayable(req *http.Request, resp *http.Response, err error) bool {
	if err != nil {
		if Idempotent(req.Method) {
			return ShouldRetry(err)
		}
		return DialFailure(err)
	}
	return resp != nil && Idempotent(req.Method) && RetryableStatus(resp.StatusCode)
}
