package apiv2

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/atlarge-research/opendc-api/internal/domain"
	"github.com/atlarge-research/opendc-api/internal/rest"
	"github.com/atlarge-research/opendc-api/internal/store"
)

// errNotFound builds the pre-built 404 Response raised when a resource
// document does not exist.
func errNotFound(resource string) error {
	return rest.NewClientError(rest.NewResponse(
		http.StatusNotFound,
		fmt.Sprintf("%s not found", resource)))
}

// errForbidden builds the pre-built 403 Response raised when an ownership or
// authorization check fails.
func errForbidden(action, resource string) error {
	return rest.NewClientError(rest.NewResponse(
		http.StatusForbidden,
		fmt.Sprintf("Forbidden from %s %s.", action, resource)))
}

// errConflict builds the pre-built 409 Response raised when a resource
// already exists.
func errConflict(message string) error {
	return rest.NewClientError(rest.NewResponse(http.StatusConflict, message))
}

// currentUser resolves the authenticated caller to their user document.
// Callers that have never registered get a 404 on every user-bound
// operation.
func (h *Handlers) currentUser(ctx context.Context, req *rest.Request) (domain.User, error) {
	doc, err := h.store.FetchOne(ctx, store.CollectionUsers, store.Filter{"sub": req.User.Subject})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, errNotFound("user")
		}
		return domain.User{}, fmt.Errorf("failed to load current user: %w", err)
	}
	return domain.User{Doc: doc}, nil
}

// checkSimulationAccess verifies the caller holds (edit) access to the given
// simulation, translating domain.ErrForbidden into the pre-built 403.
func (h *Handlers) checkSimulationAccess(ctx context.Context, req *rest.Request, simulationID, resource string, edit bool) error {
	user, err := h.currentUser(ctx, req)
	if err != nil {
		return err
	}
	if err := domain.CheckAccess(user, simulationID, edit); err != nil {
		action := "retrieving"
		if edit {
			action = "editing"
		}
		return errForbidden(action, resource)
	}
	return nil
}

// fetchDocument loads a document by id, translating a miss into the
// pre-built 404 for the resource.
func (h *Handlers) fetchDocument(ctx context.Context, collection, id, resource string) (store.Document, error) {
	doc, err := h.store.FetchOne(ctx, collection, store.ByID(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound(resource)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", resource, err)
	}
	return doc, nil
}

// bodyObject returns a validated object parameter from the request body.
// Only call after CheckRequiredParameters has declared the key as an object.
func bodyObject(req *rest.Request, key string) map[string]any {
	obj, _ := req.ParamsBody[key].(map[string]any)
	return obj
}

// pathString returns a validated string parameter from the request path.
func pathString(req *rest.Request, key string) string {
	value, _ := req.ParamsPath[key].(string)
	return value
}
