package apiv2

import (
	"log/slog"
	"net/http"

	"github.com/atlarge-research/opendc-api/internal/rest"
	"github.com/atlarge-research/opendc-api/internal/store"
)

// Version is the API version the handlers in this package register under.
const Version = "v2"

// Handlers bundles the dependencies shared by all v2 resource endpoints.
type Handlers struct {
	store  store.DocumentStore
	logger *slog.Logger
}

// New creates the v2 endpoint handlers over the given document store.
func New(st store.DocumentStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:  st,
		logger: logger.With("component", "api_v2"),
	}
}

// Register adds every v2 route to the registry. Called once at startup;
// any error here is a programming mistake and should abort the process.
func (h *Handlers) Register(reg *rest.Registry) error {
	routes := []struct {
		verb    string
		pattern string
		handler rest.HandlerFunc
	}{
		{http.MethodPost, "users", h.CreateUser},
		{http.MethodGet, "users", h.FindUserByEmail},
		{http.MethodGet, "users/{userId}", h.GetUser},
		{http.MethodPut, "users/{userId}", h.UpdateUser},
		{http.MethodDelete, "users/{userId}", h.DeleteUser},

		{http.MethodPost, "simulations", h.CreateSimulation},
		{http.MethodGet, "simulations/{simulationId}", h.GetSimulation},
		{http.MethodPut, "simulations/{simulationId}", h.UpdateSimulation},
		{http.MethodDelete, "simulations/{simulationId}", h.DeleteSimulation},
		{http.MethodGet, "simulations/{simulationId}/authorizations", h.ListSimulationAuthorizations},
		{http.MethodPost, "simulations/{simulationId}/portfolios", h.CreatePortfolio},

		{http.MethodGet, "portfolios/{portfolioId}", h.GetPortfolio},
		{http.MethodPut, "portfolios/{portfolioId}", h.UpdatePortfolio},
		{http.MethodDelete, "portfolios/{portfolioId}", h.DeletePortfolio},
		{http.MethodPost, "portfolios/{portfolioId}/scenarios", h.CreateScenario},

		{http.MethodGet, "scenarios/{scenarioId}", h.GetScenario},
		{http.MethodPut, "scenarios/{scenarioId}", h.UpdateScenario},
		{http.MethodDelete, "scenarios/{scenarioId}", h.DeleteScenario},

		{http.MethodPost, "prefabs", h.CreatePrefab},
		{http.MethodGet, "prefabs/authorizations", h.ListPrefabAuthorizations},
		{http.MethodGet, "prefabs/{prefabId}", h.GetPrefab},
		{http.MethodPut, "prefabs/{prefabId}", h.UpdatePrefab},
		{http.MethodDelete, "prefabs/{prefabId}", h.DeletePrefab},
	}

	for _, route := range routes {
		if err := reg.Handle(Version, route.verb, route.pattern, route.handler); err != nil {
			return err
		}
	}
	return nil
}
