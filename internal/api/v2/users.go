package apiv2

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/atlarge-research/opendc-api/internal/rest"
	"github.com/atlarge-research/opendc-api/internal/store"
)

// CreateUser handles POST /v2/users. The new user document is bound to the
// authenticated subject; a subject can register only once.
func (h *Handlers) CreateUser(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Body: rest.Schema{"user": rest.Object(rest.Schema{
			"email": rest.String(),
		})},
	})
	if err != nil {
		return nil, err
	}

	_, err = h.store.FetchOne(ctx, store.CollectionUsers, store.Filter{"sub": req.User.Subject})
	if err == nil {
		return nil, errConflict("User already exists.")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}

	user := bodyObject(req, "user")
	created, err := h.store.Insert(ctx, store.CollectionUsers, store.Document{
		"sub":            req.User.Subject,
		"email":          user["email"],
		"authorizations": []any{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully created user.", created), nil
}

// FindUserByEmail handles GET /v2/users?email=...
func (h *Handlers) FindUserByEmail(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Query: rest.Schema{"email": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	email, _ := req.ParamsQuery["email"].(string)
	doc, err := h.store.FetchOne(ctx, store.CollectionUsers, store.Filter{"email": email})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound("user")
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully retrieved user.", doc), nil
}

// GetUser handles GET /v2/users/{userId}.
func (h *Handlers) GetUser(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"userId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	doc, err := h.fetchDocument(ctx, store.CollectionUsers, pathString(req, "userId"), "user")
	if err != nil {
		return nil, err
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully retrieved user.", doc), nil
}

// UpdateUser handles PUT /v2/users/{userId}. Users can only update their own
// document, and only the email field is writable.
func (h *Handlers) UpdateUser(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"userId": rest.String()},
		Body: rest.Schema{"user": rest.Object(rest.Schema{
			"email": rest.String(),
		})},
	})
	if err != nil {
		return nil, err
	}

	userID := pathString(req, "userId")
	doc, err := h.fetchDocument(ctx, store.CollectionUsers, userID, "user")
	if err != nil {
		return nil, err
	}
	if sub, _ := doc["sub"].(string); sub != req.User.Subject {
		return nil, errForbidden("editing", "user")
	}

	doc["email"] = bodyObject(req, "user")["email"]
	updated, err := h.store.Update(ctx, store.CollectionUsers, userID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully updated user.", updated), nil
}

// DeleteUser handles DELETE /v2/users/{userId}. Users can only delete their
// own document; the deleted document is returned as the payload.
func (h *Handlers) DeleteUser(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"userId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	userID := pathString(req, "userId")
	doc, err := h.fetchDocument(ctx, store.CollectionUsers, userID, "user")
	if err != nil {
		return nil, err
	}
	if sub, _ := doc["sub"].(string); sub != req.User.Subject {
		return nil, errForbidden("deleting", "user")
	}

	deleted, err := h.store.Delete(ctx, store.CollectionUsers, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully deleted user.", deleted), nil
}
