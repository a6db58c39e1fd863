// Package api contains the outward-facing HTTP boundary: it turns raw HTTP
// requests into pipeline messages, delegates to the dispatcher, and writes
// the uniform response envelope back to the wire.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlarge-research/opendc-api/internal/platform/logger"
	"github.com/atlarge-research/opendc-api/internal/rest"
)

// TokenHeader is the request header carrying the bearer token.
const TokenHeader = "auth-token"

// Adapter bridges chi and the request pipeline. It owns no request state:
// concurrency comes entirely from the HTTP server running one goroutine per
// connection.
type Adapter struct {
	dispatcher *rest.Dispatcher
	logger     *slog.Logger
}

// NewAdapter creates an Adapter over the given dispatcher.
func NewAdapter(dispatcher *rest.Dispatcher, log *slog.Logger) *Adapter {
	return &Adapter{
		dispatcher: dispatcher,
		logger:     log.With("component", "http_adapter"),
	}
}

// HandleAPICall serves the catch-all route /{version}/*: it builds the
// inbound Message, dispatches it, and writes the envelope with the mirrored
// HTTP status code.
func (a *Adapter) HandleAPICall(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	endpointPath := chi.URLParam(r, "*")

	msg := rest.NewMessage(
		r.Method,
		version,
		endpointPath,
		r.Header.Get(TokenHeader),
		decodeBody(r.Body),
		rest.CoerceQuery(r.URL.Query()),
	)

	resp := a.dispatcher.Dispatch(r.Context(), msg)

	logger.FromContext(r.Context()).Info("http request",
		"method", msg.Method,
		"path", "/"+version+"/"+endpointPath,
		"code", resp.Status.Code,
		"description", resp.Status.Description)

	WriteEnvelope(w, resp)
}

// decodeBody reads the request body as a JSON object. A malformed, absent
// or non-object body degrades to an empty parameter map, never a failure at
// this stage.
func decodeBody(body io.Reader) rest.Params {
	data, err := io.ReadAll(io.LimitReader(body, 10<<20))
	if err != nil || len(data) == 0 {
		return rest.Params{}
	}

	var params rest.Params
	if err := json.Unmarshal(data, &params); err != nil {
		return rest.Params{}
	}
	return params
}

// WriteEnvelope serializes a Response envelope to the HTTP reply, mirroring
// the envelope's status code onto the HTTP status line.
func WriteEnvelope(w http.ResponseWriter, resp *rest.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status.Code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response envelope", "error", err)
	}
}
