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

// CreateScenario handles POST /v2/portfolios/{portfolioId}/scenarios.
func (h *Handlers) CreateScenario(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"portfolioId": rest.String()},
		Body: rest.Schema{"scenario": rest.Object(rest.Schema{
			"name": rest.String(),
		})},
	})
	if err != nil {
		return nil, err
	}

	portfolioID := pathString(req, "portfolioId")
	doc, err := h.fetchDocument(ctx, store.CollectionPortfolios, portfolioID, "portfolio")
	if err != nil {
		return nil, err
	}
	portfolio := domain.Portfolio{Doc: doc}

	if err := h.checkSimulationAccess(ctx, req, portfolio.SimulationID(), "scenario", true); err != nil {
		return nil, err
	}

	scenario := bodyObject(req, "scenario")
	created, err := h.store.Insert(ctx, store.CollectionScenarios, store.Document{
		"name":         scenario["name"],
		"portfolioId":  portfolioID,
		"simulationId": portfolio.SimulationID(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert scenario: %w", err)
	}

	portfolio.SetScenarioIDs(append(portfolio.ScenarioIDs(), created.ID()))
	if _, err := h.store.Update(ctx, store.CollectionPortfolios, portfolioID, portfolio.Doc); err != nil {
		return nil, fmt.Errorf("failed to attach scenario to portfolio: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully created scenario.", created), nil
}

// GetScenario handles GET /v2/scenarios/{scenarioId}.
func (h *Handlers) GetScenario(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"scenarioId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	doc, err := h.fetchDocument(ctx, store.CollectionScenarios, pathString(req, "scenarioId"), "scenario")
	if err != nil {
		return nil, err
	}
	scenario := domain.Scenario{Doc: doc}

	if err := h.checkSimulationAccess(ctx, req, scenario.SimulationID(), "scenario", false); err != nil {
		return nil, err
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully retrieved scenario.", doc), nil
}

// UpdateScenario handles PUT /v2/scenarios/{scenarioId}. Only the scenario
// name is writable.
func (h *Handlers) UpdateScenario(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"scenarioId": rest.String()},
		Body: rest.Schema{"scenario": rest.Object(rest.Schema{
			"name": rest.String(),
		})},
	})
	if err != nil {
		return nil, err
	}

	scenarioID := pathString(req, "scenarioId")
	doc, err := h.fetchDocument(ctx, store.CollectionScenarios, scenarioID, "scenario")
	if err != nil {
		return nil, err
	}
	scenario := domain.Scenario{Doc: doc}

	if err := h.checkSimulationAccess(ctx, req, scenario.SimulationID(), "scenario", true); err != nil {
		return nil, err
	}

	doc["name"] = bodyObject(req, "scenario")["name"]
	updated, err := h.store.Update(ctx, store.CollectionScenarios, scenarioID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to update scenario: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully updated scenario.", updated), nil
}

// DeleteScenario handles DELETE /v2/scenarios/{scenarioId}. The scenario is
// detached from its portfolio and the deleted document is returned as the
// payload.
func (h *Handlers) DeleteScenario(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"scenarioId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	scenarioID := pathString(req, "scenarioId")
	doc, err := h.fetchDocument(ctx, store.CollectionScenarios, scenarioID, "scenario")
	if err != nil {
		return nil, err
	}
	scenario := domain.Scenario{Doc: doc}

	if err := h.checkSimulationAccess(ctx, req, scenario.SimulationID(), "scenario", true); err != nil {
		return nil, err
	}

	// Detach from the owning portfolio first; a portfolio that disappeared
	// concurrently is not an error for the delete itself.
	portfolioDoc, err := h.store.FetchOne(ctx, store.CollectionPortfolios, store.ByID(scenario.PortfolioID()))
	if err == nil {
		portfolio := domain.Portfolio{Doc: portfolioDoc}
		portfolio.RemoveScenarioID(scenarioID)
		if _, err := h.store.Update(ctx, store.CollectionPortfolios, portfolio.ID(), portfolio.Doc); err != nil {
			return nil, fmt.Errorf("failed to detach scenario from portfolio: %w", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load owning portfolio: %w", err)
	}

	deleted, err := h.store.Delete(ctx, store.CollectionScenarios, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete scenario: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully deleted scenario.", deleted), nil
}
