package domain

import "github.com/atlarge-research/opendc-api/internal/store"

// Simulation is a typed view over a simulation document, the top-level
// entity that authorizations are scoped to.
type Simulation struct {
	Doc store.Document
}

// ID returns the simulation document id.
func (s Simulation) ID() string {
	return s.Doc.ID()
}

// Name returns the simulation name.
func (s Simulation) Name() string {
	name, _ := s.Doc["name"].(string)
	return name
}

// Portfolio is a typed view over a portfolio document. A portfolio belongs
// to one simulation and groups scenarios.
type Portfolio struct {
	Doc store.Document
}

// ID returns the portfolio document id.
func (p Portfolio) ID() string {
	return p.Doc.ID()
}

// SimulationID returns the id of the owning simulation.
func (p Portfolio) SimulationID() string {
	id, _ := p.Doc["simulationId"].(string)
	return id
}

// ScenarioIDs returns the ids of the scenarios in this portfolio.
func (p Portfolio) ScenarioIDs() []string {
	raw, _ := p.Doc["scenarioIds"].([]any)
	ids := make([]string, 0, len(raw))
	for _, entry := range raw {
		if id, ok := entry.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// SetScenarioIDs replaces the portfolio's scenario id list on the
// underlying document.
func (p Portfolio) SetScenarioIDs(ids []string) {
	entries := make([]any, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, id)
	}
	p.Doc["scenarioIds"] = entries
}

// RemoveScenarioID removes a scenario id from the portfolio, if present.
func (p Portfolio) RemoveScenarioID(scenarioID string) {
	ids := p.ScenarioIDs()
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != scenarioID {
			kept = append(kept, id)
		}
	}
	p.SetScenarioIDs(kept)
}

// Scenario is a typed view over a scenario document. A scenario belongs to
// one portfolio and, through it, to one simulation.
type Scenario struct {
	Doc store.Document
}

// ID returns the scenario document id.
func (s Scenario) ID() string {
	return s.Doc.ID()
}

// PortfolioID returns the id of the owning portfolio.
func (s Scenario) PortfolioID() string {
	id, _ := s.Doc["portfolioId"].(string)
	return id
}

// SimulationID returns the id of the owning simulation.
func (s Scenario) SimulationID() string {
	id, _ := s.Doc["simulationId"].(string)
	return id
}

// PrefabVisibility is the sharing mode of a prefab.
type PrefabVisibility string

const (
	VisibilityPublic  PrefabVisibility = "public"
	VisibilityPrivate PrefabVisibility = "private"
)

// Valid reports whether the visibility is one of the known values.
func (v PrefabVisibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Prefab is a typed view over a prefab document. Prefabs are owned by their
// author and optionally shared publicly.
type Prefab struct {
	Doc store.Document
}

// ID returns the prefab document id.
func (p Prefab) ID() string {
	return p.Doc.ID()
}

// AuthorID returns the user id of the prefab's author.
func (p Prefab) AuthorID() string {
	id, _ := p.Doc["authorId"].(string)
	return id
}

// Visibility returns the prefab's sharing mode.
func (p Prefab) Visibility() PrefabVisibility {
	visibility, _ := p.Doc["visibility"].(string)
	return PrefabVisibility(visibility)
}

// VisibleTo reports whether the prefab can be read by the given user.
func (p Prefab) VisibleTo(userID string) bool {
	return p.Visibility() == VisibilityPublic || p.AuthorID() == userID
}
