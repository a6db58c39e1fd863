package rest

import "net/http"

// Status is the status object of the wire envelope. Code maps to standard
// HTTP semantics and mirrors the HTTP status ultimately returned.
type Status struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

// Response is the uniform envelope produced for every call, success or
// failure. The wire schema is stable across all endpoints so clients can
// always branch on status.code. Content is opaque at this layer: it forwards
// whatever structured value the handler computed, or null.
//
// A Response is constructed exactly once per call and is immutable after
// construction, except for the correlation id which the dispatcher copies
// from the inbound Message.
type Response struct {
	ID      int64  `json:"id"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Content any    `json:"content"`
}

// NewResponse creates a Response with the given status code and
// human-readable message and no content.
func NewResponse(code int, message string) *Response {
	return &Response{
		Status:  Status{Code: code, Description: http.StatusText(code)},
		Message: message,
	}
}

// NewResponseWithContent creates a Response carrying a payload computed by a
// handler. The payload is forwarded untouched by the pipeline.
func NewResponseWithContent(code int, message string, content any) *Response {
	resp := NewResponse(code, message)
	resp.Content = content
	return resp
}
