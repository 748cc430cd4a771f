package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

var (
	// ErrUnauthorized marks a rejected or expired credential.
	ErrUnauthorized = errors.New("remote: unauthorized")
	// ErrForbidden marks a call the account may not perform.
	ErrForbidden = errors.New("remote: forbidden")
	// ErrNetwork marks a call that never produced an HTTP response.
	ErrNetwork = errors.New("remote: network error")
)

// APIError is a non-2xx response from the wallet API.
type APIError struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("remote: %s %s: %d", e.Method, e.Path, e.Status)
}

// Is lets errors.Is match the status-derived sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// Code is the short error code used in handler summary logs.
func (e *APIError) Code() string {
	return "api_" + strconv.Itoa(e.Status)
}

const (
	msgUnauthorized = "Authentication failed. Please login again"
	msgForbidden    = "You do not have permission to perform this action"
	msgNetwork      = "Could not reach the wallet service. Please try again later."
	msgGeneric      = "Something went wrong. Please try again."
)

// UserMessage turns an error from a Service call into text safe to show the user.
// Server messages are passed through; transport detail never is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return msgUnauthorized
	case errors.Is(err, ErrForbidden):
		return msgForbidden
	case errors.Is(err, ErrNetwork):
		return msgNetwork
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgGeneric
}
