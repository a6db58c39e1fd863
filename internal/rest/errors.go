package rest

import (
	"errors"
	"fmt"
)

// Routing errors returned by the route registry.
var (
	// ErrUnsupportedVersion indicates the version segment of the path is not
	// in the registered version set.
	ErrUnsupportedVersion = errors.New("API version not found")

	// ErrRouteNotFound indicates no registered pattern matches the path for
	// the requested version.
	ErrRouteNotFound = errors.New("route not found")

	// ErrAmbiguousRoute indicates a pattern being registered overlaps with an
	// already registered pattern for the same version. This is a startup-time
	// validation failure, never a request-time one.
	ErrAmbiguousRoute = errors.New("ambiguous route pattern")

	// ErrMethodNotAllowed indicates the matched route has no handler for the
	// requested HTTP verb.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// RequestInitializationError reports a missing or mistyped required
// parameter. The Key holds the dotted path of the offending parameter
// (e.g. "scenario.name") so the client can see exactly which field failed.
type RequestInitializationError struct {
	Key    string
	Reason string
}

func (e *RequestInitializationError) Error() string {
	return fmt.Sprintf("required parameter %q %s", e.Key, e.Reason)
}

// NewRequestInitializationError creates a RequestInitializationError for the
// given parameter key path.
func NewRequestInitializationError(key, reason string) *RequestInitializationError {
	return &RequestInitializationError{Key: key, Reason: reason}
}

// ClientError carries a pre-built Response raised by handler or domain logic
// (e.g. a 403 on an ownership check). The dispatcher passes the wrapped
// Response through to the caller unmodified.
type ClientError struct {
	Response *Response
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Response.Status.Code, e.Response.Message)
}

// NewClientError wraps a pre-built Response as an error that short-circuits
// the dispatch pipeline.
func NewClientError(resp *Response) *ClientError {
	return &ClientError{Response: resp}
}
