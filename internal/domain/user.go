package domain

import "github.com/atlarge-research/opendc-api/internal/store"

// User is a typed view over a user document. User documents carry the
// identity provider subject, an email, and the list of simulation
// authorizations.
type User struct {
	Doc store.Document
}

// ID returns the user document id.
func (u User) ID() string {
	return u.Doc.ID()
}

// Subject returns the identity provider subject bound to this user.
func (u User) Subject() string {
	sub, _ := u.Doc["sub"].(string)
	return sub
}

// Email returns the user's email address.
func (u User) Email() string {
	email, _ := u.Doc["email"].(string)
	return email
}

// Authorizations returns the user's simulation authorizations. Malformed
// entries are skipped.
func (u User) Authorizations() []Authorization {
	raw, _ := u.Doc["authorizations"].([]any)
	auths := make([]Authorization, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		simulationID, _ := m["simulationId"].(string)
		level, _ := m["authorizationLevel"].(string)
		if simulationID == "" {
			continue
		}
		auths = append(auths, Authorization{
			SimulationID: simulationID,
			Level:        AuthorizationLevel(level),
		})
	}
	return auths
}

// LevelFor returns the user's access level on the given simulation.
func (u User) LevelFor(simulationID string) (AuthorizationLevel, bool) {
	for _, auth := range u.Authorizations() {
		if auth.SimulationID == simulationID {
			return auth.Level, true
		}
	}
	return "", false
}

// SetAuthorizations replaces the user's authorization list on the
// underlying document.
func (u User) SetAuthorizations(auths []Authorization) {
	entries := make([]any, 0, len(auths))
	for _, auth := range auths {
		entries = append(entries, map[string]any{
			"simulationId":       auth.SimulationID,
			"authorizationLevel": string(auth.Level),
		})
	}
	u.Doc["authorizations"] = entries
}
