package fcm

import (
	"errors"
	"fmt"
)

// AuthError: the credential refresh against the identity provider failed.
// Fatal to the in-flight send, not to the process.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("fcm: credential refresh: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError: the gateway rejected the message as malformed (400).
// Permanent per token, never retried.
type ValidationError struct {
	Code    int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fcm: invalid message (code %d): %s", e.Code, e.Message)
}

// NotFoundError: the device token is unknown or unregistered (404).
// Permanent per token, never retried.
type NotFoundError struct {
	Code    int
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("fcm: token not registered (code %d): %s", e.Code, e.Message)
}

// UnauthorizedError: the gateway rejected the bearer credential (401). The
// client forces a refresh and resends within the attempt budget.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("fcm: unauthorized: %s", e.Message)
}

// RateLimitError: the gateway is throttling (429). Retried with exponential
// backoff.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("fcm: rate limited: %s", e.Message)
}

// GatewayError: any other 4xx/5xx. Retried with linear backoff.
type GatewayError struct {
	Code    int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("fcm: gateway error (code %d): %s", e.Code, e.Message)
}

// NetworkError: the request never produced an HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("fcm: network: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ExhaustedRetriesError: a transient failure surfaced after the attempt
// budget was spent. Wraps the last attempt's error.
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("fcm: gave up after %d attempts: %v", e.Attempts, e.Err)
}
func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// classify maps the gateway response to the error taxonomy. It is a total
// function of (HTTP status, response error code); the body code wins when
// present. No other response field controls the retry behavior.
func classify(status int, apiErr *apiError) error {
	code := status
	msg := ""
	if apiErr != nil {
		if apiErr.Code != 0 {
			code = apiErr.Code
		}
		msg = apiErr.Message
	}

	switch code {
	case 400:
		return &ValidationError{Code: code, Message: msg}
	case 401:
		return &UnauthorizedError{Message: msg}
	case 404:
		return &NotFoundError{Code: code, Message: msg}
	case 429:
		return &RateLimitError{Message: msg}
	default:
		return &GatewayError{Code: code, Message: msg}
	}
}

// Permanent reports whether the error means the token will never succeed
// again and should be pruned.
func Permanent(err error) bool {
	var (
		ve *ValidationError
		ne *NotFoundError
	)
	return errors.As(err, &ve) || errors.As(err, &ne)
}

// Retryable reports whether another attempt may succeed.
func Retryable(err error) bool {
	var (
		ue *UnauthorizedError
		re *RateLimitError
		ge *GatewayError
		we *NetworkError
	)
	return errors.As(err, &ue) || errors.As(err, &re) ||
		errors.As(err, &ge) || errors.As(err, &we)
}
