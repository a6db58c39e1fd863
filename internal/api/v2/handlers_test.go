package apiv2

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlarge-research/opendc-api/internal/rest"
	"github.com/atlarge-research/opendc-api/internal/service/auth"
	"github.com/atlarge-research/opendc-api/internal/store"
)

// testEnv wires the v2 handlers to an in-memory store behind a real
// dispatcher. The mock verifier maps the token string directly to the
// subject, so tests act as different users by sending different tokens.
type testEnv struct {
	store      *store.MemoryDocumentStore
	dispatcher *rest.Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemoryDocumentStore()
	reg := rest.NewRegistry(Version)
	require.NoError(t, New(st, slog.Default()).Register(reg))

	verifier := &auth.MockVerifier{
		VerifyFunc: func(ctx context.Context, token string) (*auth.Identity, error) {
			if token == "" {
				return nil, auth.ErrAuthorizationToken
			}
			return &auth.Identity{Subject: token, Claims: map[string]any{"sub": token}}, nil
		},
	}

	return &testEnv{
		store:      st,
		dispatcher: rest.NewDispatcher(reg, verifier, slog.Default(), nil),
	}
}

func (e *testEnv) call(method, path, subject string, body rest.Params) *rest.Response {
	msg := rest.NewMessage(method, Version, path, subject, body, nil)
	return e.dispatcher.Dispatch(context.Background(), msg)
}

func (e *testEnv) callQuery(method, path, subject string, query rest.Params) *rest.Response {
	msg := rest.NewMessage(method, Version, path, subject, nil, query)
	return e.dispatcher.Dispatch(context.Background(), msg)
}

// registerUser creates a user document for the subject and returns it.
func (e *testEnv) registerUser(t *testing.T, subject, email string) store.Document {
	t.Helper()

	resp := e.call(http.MethodPost, "users", subject, rest.Params{
		"user": map[string]any{"email": email},
	})
	require.Equal(t, http.StatusOK, resp.Status.Code, "registering %s: %s", subject, resp.Message)
	return resp.Content.(store.Document)
}

// createSimulation creates a simulation as the subject and returns it.
func (e *testEnv) createSimulation(t *testing.T, subject, name string) store.Document {
	t.Helper()

	resp := e.call(http.MethodPost, "simulations", subject, rest.Params{
		"simulation": map[string]any{"name": name},
	})
	require.Equal(t, http.StatusOK, resp.Status.Code, "creating simulation: %s", resp.Message)
	return resp.Content.(store.Document)
}

func (e *testEnv) createPortfolio(t *testing.T, subject, simulationID, name string) store.Document {
	t.Helper()

	resp := e.call(http.MethodPost, "simulations/"+simulationID+"/portfolios", subject, rest.Params{
		"portfolio": map[string]any{"name": name},
	})
	require.Equal(t, http.StatusOK, resp.Status.Code, "creating portfolio: %s", resp.Message)
	return resp.Content.(store.Document)
}

func (e *testEnv) createScenario(t *testing.T, subject, portfolioID, name string) store.Document {
	t.Helper()

	resp := e.call(http.MethodPost, "portfolios/"+portfolioID+"/scenarios", subject, rest.Params{
		"scenario": map[string]any{"name": name},
	})
	require.Equal(t, http.StatusOK, resp.Status.Code, "creating scenario: %s", resp.Message)
	return resp.Content.(store.Document)
}

func TestUserEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("create and retrieve", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)

		created := e.registerUser(t, "auth0|alice", "alice@example.com")
		assert.Equal(t, "auth0|alice", created["sub"])
		assert.Equal(t, "alice@example.com", created["email"])
		assert.Equal(t, []any{}, created["authorizations"])

		resp := e.call(http.MethodGet, "users/"+created.ID(), "auth0|alice", nil)
		assert.Equal(t, http.StatusOK, resp.Status.Code)
		assert.Equal(t, "Successfully retrieved user.", resp.Message)
	})

	t.Run("duplicate subject conflicts", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")

		resp := e.call(http.MethodPost, "users", "auth0|alice", rest.Params{
			"user": map[string]any{"email": "other@example.com"},
		})
		assert.Equal(t, http.StatusConflict, resp.Status.Code)
		assert.Equal(t, "User already exists.", resp.Message)
	})

	t.Run("missing body parameter is a 400 naming the key", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)

		resp := e.call(http.MethodPost, "users", "auth0|alice", rest.Params{
			"user": map[string]any{},
		})
		assert.Equal(t, http.StatusBadRequest, resp.Status.Code)
		assert.Contains(t, resp.Message, `"user.email"`)
	})

	t.Run("find by email", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")

		resp := e.callQuery(http.MethodGet, "users", "auth0|alice", rest.Params{"email": "alice@example.com"})
		require.Equal(t, http.StatusOK, resp.Status.Code)
		assert.Equal(t, "auth0|alice", resp.Content.(store.Document)["sub"])

		resp = e.callQuery(http.MethodGet, "users", "auth0|alice", rest.Params{"email": "nobody@example.com"})
		assert.Equal(t, http.StatusNotFound, resp.Status.Code)
	})

	t.Run("update and delete are self-only", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		alice := e.registerUser(t, "auth0|alice", "alice@example.com")
		e.registerUser(t, "auth0|bob", "bob@example.com")

		update := rest.Params{"user": map[string]any{"email": "new@example.com"}}

		resp := e.call(http.MethodPut, "users/"+alice.ID(), "auth0|bob", update)
		assert.Equal(t, http.StatusForbidden, resp.Status.Code)
		assert.Equal(t, "Forbidden from editing user.", resp.Message)

		resp = e.call(http.MethodPut, "users/"+alice.ID(), "auth0|alice", update)
		require.Equal(t, http.StatusOK, resp.Status.Code)
		assert.Equal(t, "new@example.com", resp.Content.(store.Document)["email"])

		resp = e.call(http.MethodDelete, "users/"+alice.ID(), "auth0|bob", nil)
		assert.Equal(t, http.StatusForbidden, resp.Status.Code)

		resp = e.call(http.MethodDelete, "users/"+alice.ID(), "auth0|alice", nil)
		require.Equal(t, http.StatusOK, resp.Status.Code)
		assert.Equal(t, "new@example.com", resp.Content.(store.Document)["email"], "delete returns the deleted document")
	})
}

func TestSimulationEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("creator is granted ownership", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")

		sim := e.createSimulation(t, "auth0|alice", "dc-experiment")

		userDoc, err := e.store.FetchOne(context.Background(), store.CollectionUsers,
			store.Filter{"sub": "auth0|alice"})
		require.NoError(t, err)
		assert.Contains(t, userDoc["authorizations"], map[string]any{
			"simulationId":       sim.ID(),
			"authorizationLevel": "OWN",
		})
	})

	t.Run("unregistered caller gets 404 user", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)

		resp := e.call(http.MethodPost, "simulations", "auth0|ghost", rest.Params{
			"simulation": map[string]any{"name": "dc"},
		})
		assert.Equal(t, http.StatusNotFound, resp.Status.Code)
		assert.Equal(t, "user not found", resp.Message)
	})

	t.Run("access is authorization-gated", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		e.registerUser(t, "auth0|bob", "bob@example.com")
		sim := e.createSimulation(t, "auth0|alice", "dc")

		resp := e.call(http.MethodGet, "simulations/"+sim.ID(), "auth0|bob", nil)
		assert.Equal(t, http.StatusForbidden, resp.Status.Code)
		assert.Equal(t, "Forbidden from retrieving simulation.", resp.Message)

		resp = e.call(http.MethodGet, "simulations/"+sim.ID(), "auth0|alice", nil)
		assert.Equal(t, http.StatusOK, resp.Status.Code)
	})

	t.Run("view access cannot edit", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		bob := e.registerUser(t, "auth0|bob", "bob@example.com")
		sim := e.createSimulation(t, "auth0|alice", "dc")

		// Grant bob VIEW directly in the store.
		bob["authorizations"] = []any{
			map[string]any{"simulationId": sim.ID(), "authorizationLevel": "VIEW"},
		}
		_, err := e.store.Update(context.Background(), store.CollectionUsers, bob.ID(), bob)
		require.NoError(t, err)

		resp := e.call(http.MethodGet, "simulations/"+sim.ID(), "auth0|bob", nil)
		assert.Equal(t, http.StatusOK, resp.Status.Code)

		resp = e.call(http.MethodPut, "simulations/"+sim.ID(), "auth0|bob", rest.Params{
			"simulation": map[string]any{"name": "renamed"},
		})
		assert.Equal(t, http.StatusForbidden, resp.Status.Code)
		assert.Equal(t, "Forbidden from editing simulation.", resp.Message)
	})

	t.Run("list authorizations", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		alice := e.registerUser(t, "auth0|alice", "alice@example.com")
		sim := e.createSimulation(t, "auth0|alice", "dc")

		resp := e.call(http.MethodGet, "simulations/"+sim.ID()+"/authorizations", "auth0|alice", nil)
		require.Equal(t, http.StatusOK, resp.Status.Code)

		content := resp.Content.(map[string]any)
		assert.Equal(t, []any{
			map[string]any{"userId": alice.ID(), "authorizationLevel": "OWN"},
		}, content["authorizations"])
	})

	t.Run("delete revokes every authorization", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		sim := e.createSimulation(t, "auth0|alice", "dc")

		resp := e.call(http.MethodDelete, "simulations/"+sim.ID(), "auth0|alice", nil)
		require.Equal(t, http.StatusOK, resp.Status.Code)

		userDoc, err := e.store.FetchOne(context.Background(), store.CollectionUsers,
			store.Filter{"sub": "auth0|alice"})
		require.NoError(t, err)
		assert.Empty(t, userDoc["authorizations"])

		resp = e.call(http.MethodGet, "simulations/"+sim.ID(), "auth0|alice", nil)
		assert.Equal(t, http.StatusNotFound, resp.Status.Code)
		assert.Equal(t, "simulation not found", resp.Message)
	})
}

func TestPortfolioEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("create attaches to simulation", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		sim := e.createSimulation(t, "auth0|alice", "dc")

		portfolio := e.createPortfolio(t, "auth0|alice", sim.ID(), "baseline")
		assert.Equal(t, sim.ID(), portfolio["simulationId"])
		assert.Equal(t, []any{}, portfolio["scenarioIds"])

		simDoc, err := e.store.FetchOne(context.Background(), store.CollectionSimulations, store.ByID(sim.ID()))
		require.NoError(t, err)
		assert.Contains(t, simDoc["portfolioIds"], portfolio.ID())
	})

	t.Run("delete cascades to scenarios and detaches", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		sim := e.createSimulation(t, "auth0|alice", "dc")
		portfolio := e.createPortfolio(t, "auth0|alice", sim.ID(), "baseline")
		scenario := e.createScenario(t, "auth0|alice", portfolio.ID(), "run-1")

		resp := e.call(http.MethodDelete, "portfolios/"+portfolio.ID(), "auth0|alice", nil)
		require.Equal(t, http.StatusOK, resp.Status.Code)

		_, err := e.store.FetchOne(context.Background(), store.CollectionScenarios, store.ByID(scenario.ID()))
		assert.ErrorIs(t, err, store.ErrNotFound, "child scenarios are deleted with the portfolio")

		simDoc, err := e.store.FetchOne(context.Background(), store.CollectionSimulations, store.ByID(sim.ID()))
		require.NoError(t, err)
		assert.NotContains(t, simDoc["portfolioIds"], portfolio.ID())
	})
}

func TestScenarioEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("lifecycle", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		sim := e.createSimulation(t, "auth0|alice", "dc")
		portfolio := e.createPortfolio(t, "auth0|alice", sim.ID(), "baseline")

		scenario := e.createScenario(t, "auth0|alice", portfolio.ID(), "run-1")
		assert.Equal(t, portfolio.ID(), scenario["portfolioId"])
		assert.Equal(t, sim.ID(), scenario["simulationId"])

		portfolioDoc, err := e.store.FetchOne(context.Background(), store.CollectionPortfolios, store.ByID(portfolio.ID()))
		require.NoError(t, err)
		assert.Contains(t, portfolioDoc["scenarioIds"], scenario.ID())

		resp := e.call(http.MethodGet, "scenarios/"+scenario.ID(), "auth0|alice", nil)
		require.Equal(t, http.StatusOK, resp.Status.Code)
		assert.Equal(t, "Successfully retrieved scenario.", resp.Message)

		resp = e.call(http.MethodPut, "scenarios/"+scenario.ID(), "auth0|alice", rest.Params{
			"scenario": map[string]any{"name": "run-1b"},
		})
		require.Equal(t, http.StatusOK, resp.Status.Code)
		assert.Equal(t, "run-1b", resp.Content.(store.Document)["name"])

		resp = e.call(http.MethodDelete, "scenarios/"+scenario.ID(), "auth0|alice", nil)
		require.Equal(t, http.StatusOK, resp.Status.Code)

		portfolioDoc, err = e.store.FetchOne(context.Background(), store.CollectionPortfolios, store.ByID(portfolio.ID()))
		require.NoError(t, err)
		assert.NotContains(t, portfolioDoc["scenarioIds"], scenario.ID())
	})

	t.Run("access follows the owning simulation", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		e.registerUser(t, "auth0|bob", "bob@example.com")
		sim := e.createSimulation(t, "auth0|alice", "dc")
		portfolio := e.createPortfolio(t, "auth0|alice", sim.ID(), "baseline")
		scenario := e.createScenario(t, "auth0|alice", portfolio.ID(), "run-1")

		resp := e.call(http.MethodGet, "scenarios/"+scenario.ID(), "auth0|bob", nil)
		assert.Equal(t, http.StatusForbidden, resp.Status.Code)
		assert.Equal(t, "Forbidden from retrieving scenario.", resp.Message)
	})

	t.Run("unknown scenario", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")

		resp := e.call(http.MethodGet, "scenarios/nope", "auth0|alice", nil)
		assert.Equal(t, http.StatusNotFound, resp.Status.Code)
		assert.Equal(t, "scenario not found", resp.Message)
	})
}

func TestPrefabEndpoints(t *testing.T) {
	t.Parallel()

	createPrefab := func(t *testing.T, e *testEnv, subject string, body map[string]any) store.Document {
		t.Helper()
		resp := e.call(http.MethodPost, "prefabs", subject, rest.Params{"prefab": body})
		require.Equal(t, http.StatusOK, resp.Status.Code, "creating prefab: %s", resp.Message)
		return resp.Content.(store.Document)
	}

	t.Run("defaults to private", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")

		prefab := createPrefab(t, e, "auth0|alice", map[string]any{"name": "rack"})
		assert.Equal(t, "private", prefab["visibility"])
	})

	t.Run("private prefab hidden from others", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		e.registerUser(t, "auth0|bob", "bob@example.com")
		prefab := createPrefab(t, e, "auth0|alice", map[string]any{"name": "rack"})

		resp := e.call(http.MethodGet, "prefabs/"+prefab.ID(), "auth0|bob", nil)
		assert.Equal(t, http.StatusForbidden, resp.Status.Code)

		resp = e.call(http.MethodGet, "prefabs/"+prefab.ID(), "auth0|alice", nil)
		assert.Equal(t, http.StatusOK, resp.Status.Code)
	})

	t.Run("public prefab visible to everyone", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		e.registerUser(t, "auth0|bob", "bob@example.com")
		prefab := createPrefab(t, e, "auth0|alice", map[string]any{"name": "rack", "visibility": "public"})

		resp := e.call(http.MethodGet, "prefabs/"+prefab.ID(), "auth0|bob", nil)
		assert.Equal(t, http.StatusOK, resp.Status.Code)
	})

	t.Run("update and delete are author-only", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		e.registerUser(t, "auth0|bob", "bob@example.com")
		prefab := createPrefab(t, e, "auth0|alice", map[string]any{"name": "rack", "visibility": "public"})

		update := rest.Params{"prefab": map[string]any{"name": "rack-v2"}}

		resp := e.call(http.MethodPut, "prefabs/"+prefab.ID(), "auth0|bob", update)
		assert.Equal(t, http.StatusForbidden, resp.Status.Code)
		assert.Equal(t, "Forbidden from editing prefab.", resp.Message)

		resp = e.call(http.MethodPut, "prefabs/"+prefab.ID(), "auth0|alice", update)
		require.Equal(t, http.StatusOK, resp.Status.Code)
		assert.Equal(t, "rack-v2", resp.Content.(store.Document)["name"])

		resp = e.call(http.MethodDelete, "prefabs/"+prefab.ID(), "auth0|bob", nil)
		assert.Equal(t, http.StatusForbidden, resp.Status.Code)

		resp = e.call(http.MethodDelete, "prefabs/"+prefab.ID(), "auth0|alice", nil)
		assert.Equal(t, http.StatusOK, resp.Status.Code)
	})

	t.Run("authorizations lists own and public", func(t *testing.T) {
		t.Parallel()
		e := newTestEnv(t)
		e.registerUser(t, "auth0|alice", "alice@example.com")
		e.registerUser(t, "auth0|bob", "bob@example.com")

		own := createPrefab(t, e, "auth0|alice", map[string]any{"name": "mine"})
		shared := createPrefab(t, e, "auth0|bob", map[string]any{"name": "shared", "visibility": "public"})
		createPrefab(t, e, "auth0|bob", map[string]any{"name": "hidden"})

		resp := e.call(http.MethodGet, "prefabs/authorizations", "auth0|alice", nil)
		require.Equal(t, http.StatusOK, resp.Status.Code)

		content := resp.Content.(map[string]any)
		groups := content["authorizations"].([]any)
		require.Len(t, groups, 2)

		ownDocs := groups[0].([]store.Document)
		require.Len(t, ownDocs, 1)
		assert.Equal(t, own.ID(), ownDocs[0].ID())

		publicDocs := groups[1].([]store.Document)
		require.Len(t, publicDocs, 1)
		assert.Equal(t, shared.ID(), publicDocs[0].ID())
	})
}
