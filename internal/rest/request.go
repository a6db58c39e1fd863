package rest

import (
	"github.com/atlarge-research/opendc-api/internal/service/auth"
)

// Request is the unit of work handed to endpoint handlers. It is derived
// from a Message once the route is resolved and the caller authenticated,
// lives for exactly one call, and is never persisted.
//
// The ParamsBody, ParamsPath and ParamsQuery views are populated only after
// a successful CheckRequiredParameters call; handlers read parameters from
// these views without re-validating.
type Request struct {
	// Method and Path are copied from the inbound Message.
	Method string
	Path   string

	// Version is the API version the route was matched under.
	Version string

	// User is the authenticated caller identity. Always non-nil by the time
	// a handler sees the Request: there are no anonymous routes.
	User *auth.Identity

	// Validated parameter views, nil until CheckRequiredParameters succeeds.
	ParamsBody  Params
	ParamsPath  Params
	ParamsQuery Params

	// Raw parameter namespaces from the Message plus the extracted path
	// placeholders.
	body  Params
	path  Params
	query Params
}

// newRequest derives a Request from an authenticated, routed Message.
func newRequest(msg *Message, identity *auth.Identity) *Request {
	return &Request{
		Method:  msg.Method,
		Path:    msg.Path,
		Version: msg.Version,
		User:    identity,
		body:    msg.Body,
		path:    msg.PathParams,
		query:   msg.Query,
	}
}

// CheckRequiredParameters validates the raw parameters against the given
// schema and, on success, attaches the validated parameter views to the
// Request. Unknown extra keys are ignored deliberately so that
// forward-compatible clients keep working.
//
// Returns a RequestInitializationError naming the offending key path when a
// required parameter is missing or has the wrong type; the dispatcher
// surfaces it as a 400.
func (r *Request) CheckRequiredParameters(schema ParameterSchema) error {
	if schema.Body != nil {
		if err := schema.Body.validate(r.body, ""); err != nil {
			return err
		}
	}
	if schema.Path != nil {
		if err := schema.Path.validate(r.path, ""); err != nil {
			return err
		}
	}
	if schema.Query != nil {
		if err := schema.Query.validate(r.query, ""); err != nil {
			return err
		}
	}

	r.ParamsBody = r.body
	r.ParamsPath = r.path
	r.ParamsQuery = r.query
	return nil
}
