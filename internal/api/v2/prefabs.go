package apiv2

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atlarge-research/opendc-api/internal/domain"
	"github.com/atlarge-research/opendc-api/internal/rest"
	"github.com/atlarge-research/opendc-api/internal/store"
)

// CreatePrefab handles POST /v2/prefabs. Prefabs default to private
// visibility unless the client asks otherwise.
func (h *Handlers) CreatePrefab(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Body: rest.Schema{"prefab": rest.Object(rest.Schema{
			"name": rest.String(),
		})},
	})
	if err != nil {
		return nil, err
	}

	user, err := h.currentUser(ctx, req)
	if err != nil {
		return nil, err
	}

	prefab := bodyObject(req, "prefab")
	visibility := string(domain.VisibilityPrivate)
	if v, ok := prefab["visibility"].(string); ok && domain.PrefabVisibility(v) == domain.VisibilityPublic {
		visibility = string(domain.VisibilityPublic)
	}

	created, err := h.store.Insert(ctx, store.CollectionPrefabs, store.Document{
		"name":       prefab["name"],
		"authorId":   user.ID(),
		"visibility": visibility,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert prefab: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully created prefab.", created), nil
}

// GetPrefab handles GET /v2/prefabs/{prefabId}. A prefab is readable by its
// author and, when public, by everyone.
func (h *Handlers) GetPrefab(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"prefabId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	doc, err := h.fetchDocument(ctx, store.CollectionPrefabs, pathString(req, "prefabId"), "prefab")
	if err != nil {
		return nil, err
	}
	prefab := domain.Prefab{Doc: doc}

	user, err := h.currentUser(ctx, req)
	if err != nil {
		return nil, err
	}
	if !prefab.VisibleTo(user.ID()) {
		return nil, errForbidden("retrieving", "prefab")
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully retrieved prefab.", doc), nil
}

// UpdatePrefab handles PUT /v2/prefabs/{prefabId}. Author-only; name is
// required and visibility is replaced when present.
func (h *Handlers) UpdatePrefab(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"prefabId": rest.String()},
		Body: rest.Schema{"prefab": rest.Object(rest.Schema{
			"name": rest.String(),
		})},
	})
	if err != nil {
		return nil, err
	}

	prefabID := pathString(req, "prefabId")
	doc, err := h.fetchDocument(ctx, store.CollectionPrefabs, prefabID, "prefab")
	if err != nil {
		return nil, err
	}
	prefab := domain.Prefab{Doc: doc}

	user, err := h.currentUser(ctx, req)
	if err != nil {
		return nil, err
	}
	if prefab.AuthorID() != user.ID() {
		return nil, errForbidden("editing", "prefab")
	}

	body := bodyObject(req, "prefab")
	doc["name"] = body["name"]
	if v, ok := body["visibility"].(string); ok && domain.PrefabVisibility(v).Valid() {
		doc["visibility"] = v
	}

	updated, err := h.store.Update(ctx, store.CollectionPrefabs, prefabID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to update prefab: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully updated prefab.", updated), nil
}

// DeletePrefab handles DELETE /v2/prefabs/{prefabId}. Author-only; the
// deleted document is returned as the payload.
func (h *Handlers) DeletePrefab(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"prefabId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	prefabID := pathString(req, "prefabId")
	doc, err := h.fetchDocument(ctx, store.CollectionPrefabs, prefabID, "prefab")
	if err != nil {
		return nil, err
	}
	prefab := domain.Prefab{Doc: doc}

	user, err := h.currentUser(ctx, req)
	if err != nil {
		return nil, err
	}
	if prefab.AuthorID() != user.ID() {
		return nil, errForbidden("deleting", "prefab")
	}

	deleted, err := h.store.Delete(ctx, store.CollectionPrefabs, prefabID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete prefab: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully deleted prefab.", deleted), nil
}

// ListPrefabAuthorizations handles GET /v2/prefabs/authorizations, returning
// the prefabs the caller is authorized to access: their own and all public
// ones.
func (h *Handlers) ListPrefabAuthorizations(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	user, err := h.currentUser(ctx, req)
	if err != nil {
		return nil, err
	}

	own, err := h.store.FetchAll(ctx, store.CollectionPrefabs, store.Filter{"authorId": user.ID()})
	if err != nil {
		return nil, fmt.Errorf("failed to list own prefabs: %w", err)
	}
	public, err := h.store.FetchAll(ctx, store.CollectionPrefabs, store.Filter{
		"visibility": string(domain.VisibilityPublic),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list public prefabs: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully fetched authorizations.",
		map[string]any{"authorizations": []any{own, public}}), nil
}
