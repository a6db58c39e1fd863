package rest

import (
	"net/url"
	"strconv"
)

// Params holds the parameters of a single namespace (body, path or query)
// keyed by parameter name. Values carry the representations produced by JSON
// decoding (string, float64, bool, map[string]any, []any) plus int64 for
// coerced query values.
type Params map[string]any

// Message is the raw inbound unit of work: one Message is created per call
// and is immutable after construction, except for the path parameter
// namespace which the dispatcher fills in after route matching.
type Message struct {
	// ID is the correlation id copied onto the produced Response. Defaults
	// to zero when the transport never assigned one.
	ID int64

	// Method is the HTTP verb: GET, POST, PUT or DELETE.
	Method string

	// Version is the API version segment of the request path (e.g. "v2").
	Version string

	// Path is the endpoint path below the version segment, without a leading
	// slash (e.g. "scenarios/abc123").
	Path string

	// Token is the raw bearer token, or empty when the caller sent none.
	Token string

	// Body holds the decoded JSON body parameters. A malformed or absent
	// body degrades to an empty map, never a hard failure.
	Body Params

	// PathParams holds the placeholder values extracted during route
	// matching. Empty until the dispatcher has resolved the route.
	PathParams Params

	// Query holds the query parameters after numeric coercion.
	Query Params
}

// NewMessage constructs a Message with empty parameter namespaces
// substituted for nil ones.
func NewMessage(method, version, path, token string, body, query Params) *Message {
	if body == nil {
		body = Params{}
	}
	if query == nil {
		query = Params{}
	}
	return &Message{
		Method:     method,
		Version:    version,
		Path:       path,
		Token:      token,
		Body:       body,
		PathParams: Params{},
		Query:      query,
	}
}

// CoerceQuery flattens URL query values into a Params map, keeping the first
// value per key. Values that parse as integers are coerced to int64 so query
// parameters like "?limit=10" validate as numbers.
//
// The coercion is a best-effort convenience, not a lossless transform:
// "0123" becomes 123, and values beyond the int64 range stay strings. It
// happens exactly once, here at message construction, never inside the
// validator.
func CoerceQuery(values url.Values) Params {
	params := make(Params, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := vals[0]
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			params[key] = n
		} else {
			params[key] = raw
		}
	}
	return params
}
