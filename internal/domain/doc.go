// Package domain wraps stored documents in typed views of the simulation
// resources (users, simulations, portfolios, scenarios, prefabs) and holds
// the authorization rules shared by the resource endpoints.
package domain
