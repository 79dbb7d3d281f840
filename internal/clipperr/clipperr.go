// Package clipperr defines the error kinds shared by the transport, the Outline client,
// the provisioner and the clipper.
package clipperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindNetwork
	KindRemoteAPI
	KindConfiguration
	KindScript
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindRemoteAPI:
		return "remote_api"
	case KindConfiguration:
		return "configuration"
	case KindScript:
		return "script"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a failure tagged with its Kind. Status is the HTTP status for KindRemoteAPI.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout tags err as a timed-out request.
func Timeout(err error) error {
	return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
}

// Network tags err as a connection-level failure.
func Network(err error) error {
	return &Error{Kind: KindNetwork, Message: "network error", Err: err}
}

// RemoteAPI builds a non-OK response error.
func RemoteAPI(status int, message string) error {
	return &Error{Kind: KindRemoteAPI, Status: status, Message: message}
}

// Configuration reports missing or invalid settings.
func Configuration(message string) error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// Script reports a failed content extraction.
func Script(err error) error {
	return &Error{Kind: KindScript, Message: "content extraction failed", Err: err}
}

// Storage wraps a cache store failure.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Context cancellation that was never tagged counts as a timeout.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// Retryable reports whether the transport should try again after err.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindNetwork:
		return true
	default:
		return false
	}
}

// StatusOf returns the remote HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// HTTPStatus maps err to the status the clip API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindConfiguration:
		return http.StatusServiceUnavailable
	case KindRemoteAPI, KindNetwork:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
