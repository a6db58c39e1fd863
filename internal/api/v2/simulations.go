package apiv2

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atlarge-research/opendc-api/internal/domain"
	"github.com/atlarge-research/opendc-api/internal/rest"
	"github.com/atlarge-research/opendc-api/internal/store"
)

// CreateSimulation handles POST /v2/simulations. The creating user receives
// an OWN authorization on the new simulation.
func (h *Handlers) CreateSimulation(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Body: rest.Schema{"simulation": rest.Object(rest.Schema{
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

	simulation := bodyObject(req, "simulation")
	created, err := h.store.Insert(ctx, store.CollectionSimulations, store.Document{
		"name":         simulation["name"],
		"portfolioIds": []any{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert simulation: %w", err)
	}

	user.SetAuthorizations(append(user.Authorizations(), domain.Authorization{
		SimulationID: created.ID(),
		Level:        domain.LevelOwn,
	}))
	if _, err := h.store.Update(ctx, store.CollectionUsers, user.ID(), user.Doc); err != nil {
		return nil, fmt.Errorf("failed to grant simulation ownership: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully created simulation.", created), nil
}

// GetSimulation handles GET /v2/simulations/{simulationId}.
func (h *Handlers) GetSimulation(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"simulationId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	simulationID := pathString(req, "simulationId")
	doc, err := h.fetchDocument(ctx, store.CollectionSimulations, simulationID, "simulation")
	if err != nil {
		return nil, err
	}

	if err := h.checkSimulationAccess(ctx, req, simulationID, "simulation", false); err != nil {
		return nil, err
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully retrieved simulation.", doc), nil
}

// UpdateSimulation handles PUT /v2/simulations/{simulationId}. Only the
// simulation name is writable.
func (h *Handlers) UpdateSimulation(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"simulationId": rest.String()},
		Body: rest.Schema{"simulation": rest.Object(rest.Schema{
			"name": rest.String(),
		})},
	})
	if err != nil {
		return nil, err
	}

	simulationID := pathString(req, "simulationId")
	doc, err := h.fetchDocument(ctx, store.CollectionSimulations, simulationID, "simulation")
	if err != nil {
		return nil, err
	}

	if err := h.checkSimulationAccess(ctx, req, simulationID, "simulation", true); err != nil {
		return nil, err
	}

	doc["name"] = bodyObject(req, "simulation")["name"]
	updated, err := h.store.Update(ctx, store.CollectionSimulations, simulationID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to update simulation: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully updated simulation.", updated), nil
}

// DeleteSimulation handles DELETE /v2/simulations/{simulationId}. Every
// user's authorization on the simulation is revoked and the deleted
// document is returned as the payload.
func (h *Handlers) DeleteSimulation(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"simulationId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	simulationID := pathString(req, "simulationId")
	if _, err := h.fetchDocument(ctx, store.CollectionSimulations, simulationID, "simulation"); err != nil {
		return nil, err
	}

	if err := h.checkSimulationAccess(ctx, req, simulationID, "simulation", true); err != nil {
		return nil, err
	}

	authorized, err := h.store.FetchAll(ctx, store.CollectionUsers, store.Filter{
		"authorizations": []any{map[string]any{"simulationId": simulationID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list authorized users: %w", err)
	}
	for _, userDoc := range authorized {
		user := domain.User{Doc: userDoc}
		kept := make([]domain.Authorization, 0)
		for _, auth := range user.Authorizations() {
			if auth.SimulationID != simulationID {
				kept = append(kept, auth)
			}
		}
		user.SetAuthorizations(kept)
		if _, err := h.store.Update(ctx, store.CollectionUsers, user.ID(), user.Doc); err != nil {
			return nil, fmt.Errorf("failed to revoke authorization: %w", err)
		}
	}

	deleted, err := h.store.Delete(ctx, store.CollectionSimulations, simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete simulation: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully deleted simulation.", deleted), nil
}

// ListSimulationAuthorizations handles
// GET /v2/simulations/{simulationId}/authorizations, returning the users
// holding access to the simulation with their levels.
func (h *Handlers) ListSimulationAuthorizations(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"simulationId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	simulationID := pathString(req, "simulationId")
	if _, err := h.fetchDocument(ctx, store.CollectionSimulations, simulationID, "simulation"); err != nil {
		return nil, err
	}

	if err := h.checkSimulationAccess(ctx, req, simulationID, "simulation", false); err != nil {
		return nil, err
	}

	authorized, err := h.store.FetchAll(ctx, store.CollectionUsers, store.Filter{
		"authorizations": []any{map[string]any{"simulationId": simulationID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list authorized users: %w", err)
	}

	entries := make([]any, 0, len(authorized))
	for _, userDoc := range authorized {
		user := domain.User{Doc: userDoc}
		level, _ := user.LevelFor(simulationID)
		entries = append(entries, map[string]any{
			"userId":             user.ID(),
			"authorizationLevel": string(level),
		})
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully fetched authorizations.",
		map[string]any{"authorizations": entries}), nil
}
