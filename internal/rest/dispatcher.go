package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/atlarge-research/opendc-api/internal/platform/logger"
	"github.com/atlarge-research/opendc-api/internal/platform/metrics"
	"github.com/atlarge-research/opendc-api/internal/redact"
	"github.com/atlarge-research/opendc-api/internal/service/auth"
)

// Dispatcher resolves inbound Messages to endpoint handlers and converts
// every outcome into exactly one Response. It is the single point that
// catches all failure kinds: nothing below it lets an error escape uncaught.
type Dispatcher struct {
	registry *Registry
	verifier auth.Verifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewDispatcher creates a Dispatcher over the given route registry and token
// verifier. Metrics may be nil to disable instrumentation.
func NewDispatcher(registry *Registry, verifier auth.Verifier, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		verifier: verifier,
		logger:   log,
		metrics:  m,
	}
}

// Dispatch processes one Message to completion: route matching, token
// verification, verb lookup, handler invocation, and outcome conversion.
// The order is fixed: routing first, then auth, then parameter validation
// inside the handler, then the handler body.
//
// Dispatch never panics and never returns nil; a panic anywhere below it is
// converted to a generic 500 with the detail logged out-of-band. The
// correlation id of the returned Response always equals that of the Message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) (resp *Response) {
	start := time.Now()

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.FromContext(ctx).Error("panic during dispatch",
				"panic", recovered,
				"method", msg.Method,
				"path", msg.Path)
			resp = NewResponse(http.StatusInternalServerError, "Internal server error")
		}
		resp.ID = msg.ID
		if d.metrics != nil {
			d.metrics.ObserveRequest(msg.Method, resp.Status.Code, time.Since(start))
		}
	}()

	return d.process(ctx, msg)
}

// process runs the dispatch state machine, terminal on first failure or on
// handler completion.
func (d *Dispatcher) process(ctx context.Context, msg *Message) *Response {
	log := logger.FromContext(ctx)

	// Constructed -> Routed
	rt, pathParams, err := d.registry.Match(msg.Version, msg.Path)
	if err != nil {
		if errors.Is(err, ErrUnsupportedVersion) {
			return NewResponse(http.StatusNotFound, "API version not found")
		}
		return NewResponse(http.StatusNotFound, "Not found")
	}
	msg.PathParams = pathParams

	// Routed -> Authenticated
	identity, err := d.verifier.Verify(ctx, msg.Token)
	if err != nil {
		return NewResponse(http.StatusUnauthorized, "Authorization error")
	}

	// Authenticated -> Dispatching. A matched route without a handler for
	// this verb is a distinct 405, not a 404.
	handler, ok := rt.handler(msg.Method)
	if !ok {
		return NewResponse(http.StatusMethodNotAllowed, "Method not allowed")
	}

	// Dispatching -> Completed / Errored
	resp, err := handler(ctx, newRequest(msg, identity))
	if err != nil {
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			// Domain errors carry their own pre-built Response; pass it
			// through unmodified.
			return clientErr.Response
		}

		var initErr *RequestInitializationError
		if errors.As(err, &initErr) {
			return NewResponse(http.StatusBadRequest, initErr.Error())
		}

		log.Error("handler failed",
			"error", redact.Error(err),
			"method", msg.Method,
			"path", msg.Path,
			"subject", identity.Subject)
		return NewResponse(http.StatusInternalServerError, "Internal server error")
	}

	if resp == nil {
		log.Error("handler returned no response",
			"method", msg.Method,
			"path", msg.Path)
		return NewResponse(http.StatusInternalServerError, "Internal server error")
	}
	return resp
}
