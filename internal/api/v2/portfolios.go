package apiv2

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atlarge-research/opendc-api/internal/domain"
	"github.com/atlarge-research/opendc-api/internal/rest"
	"github.com/atlarge-research/opendc-api/internal/store"
)

// CreatePortfolio handles POST /v2/simulations/{simulationId}/portfolios.
func (h *Handlers) CreatePortfolio(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"simulationId": rest.String()},
		Body: rest.Schema{"portfolio": rest.Object(rest.Schema{
			"name": rest.String(),
		})},
	})
	if err != nil {
		return nil, err
	}

	simulationID := pathString(req, "simulationId")
	simulationDoc, err := h.fetchDocument(ctx, store.CollectionSimulations, simulationID, "simulation")
	if err != nil {
		return nil, err
	}

	if err := h.checkSimulationAccess(ctx, req, simulationID, "portfolio", true); err != nil {
		return nil, err
	}

	portfolio := bodyObject(req, "portfolio")
	doc := store.Document{
		"name":         portfolio["name"],
		"simulationId": simulationID,
		"scenarioIds":  []any{},
	}
	// Targets are optional; forwarded opaquely when the client sent them.
	if targets, ok := portfolio["targets"]; ok {
		doc["targets"] = targets
	}

	created, err := h.store.Insert(ctx, store.CollectionPortfolios, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	ids, _ := simulationDoc["portfolioIds"].([]any)
	simulationDoc["portfolioIds"] = append(ids, created.ID())
	if _, err := h.store.Update(ctx, store.CollectionSimulations, simulationID, simulationDoc); err != nil {
		return nil, fmt.Errorf("failed to attach portfolio to simulation: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully created portfolio.", created), nil
}

// GetPortfolio handles GET /v2/portfolios/{portfolioId}.
func (h *Handlers) GetPortfolio(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"portfolioId": rest.String()},
	})
	if err != nil {
		return nil, err
	}

	doc, err := h.fetchDocument(ctx, store.CollectionPortfolios, pathString(req, "portfolioId"), "portfolio")
	if err != nil {
		return nil, err
	}
	portfolio := domain.Portfolio{Doc: doc}

	if err := h.checkSimulationAccess(ctx, req, portfolio.SimulationID(), "portfolio", false); err != nil {
		return nil, err
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully retrieved portfolio.", doc), nil
}

// UpdatePortfolio handles PUT /v2/portfolios/{portfolioId}. The name is
// required; targets are replaced when present in the body.
func (h *Handlers) UpdatePortfolio(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"portfolioId": rest.String()},
		Body: rest.Schema{"portfolio": rest.Object(rest.Schema{
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

	if err := h.checkSimulationAccess(ctx, req, portfolio.SimulationID(), "portfolio", true); err != nil {
		return nil, err
	}

	body := bodyObject(req, "portfolio")
	doc["name"] = body["name"]
	if targets, ok := body["targets"]; ok {
		doc["targets"] = targets
	}

	updated, err := h.store.Update(ctx, store.CollectionPortfolios, portfolioID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to update portfolio: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully updated portfolio.", updated), nil
}

// DeletePortfolio handles DELETE /v2/portfolios/{portfolioId}. The
// portfolio's scenarios are deleted with it and the deleted document is
// returned as the payload.
func (h *Handlers) DeletePortfolio(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	err := req.CheckRequiredParameters(rest.ParameterSchema{
		Path: rest.Schema{"portfolioId": rest.String()},
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

	if err := h.checkSimulationAccess(ctx, req, portfolio.SimulationID(), "portfolio", true); err != nil {
		return nil, err
	}

	for _, scenarioID := range portfolio.ScenarioIDs() {
		if _, err := h.store.Delete(ctx, store.CollectionScenarios, scenarioID); err != nil {
			h.logger.Warn("failed to delete scenario with portfolio",
				"portfolio_id", portfolioID,
				"scenario_id", scenarioID,
				"error", err)
		}
	}

	simulationDoc, err := h.store.FetchOne(ctx, store.CollectionSimulations, store.ByID(portfolio.SimulationID()))
	if err == nil {
		ids, _ := simulationDoc["portfolioIds"].([]any)
		kept := make([]any, 0, len(ids))
		for _, id := range ids {
			if id != portfolioID {
				kept = append(kept, id)
			}
		}
		simulationDoc["portfolioIds"] = kept
		if _, err := h.store.Update(ctx, store.CollectionSimulations, portfolio.SimulationID(), simulationDoc); err != nil {
			return nil, fmt.Errorf("failed to detach portfolio from simulation: %w", err)
		}
	}

	deleted, err := h.store.Delete(ctx, store.CollectionPortfolios, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete portfolio: %w", err)
	}

	return rest.NewResponseWithContent(http.StatusOK, "Successfully deleted portfolio.", deleted), nil
}
