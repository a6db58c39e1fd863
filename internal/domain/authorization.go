package domain

import "errors"

// AuthorizationLevel is a user's access level on a simulation.
type AuthorizationLevel string

const (
	LevelOwn  AuthorizationLevel = "OWN"
	LevelEdit AuthorizationLevel = "EDIT"
	LevelView AuthorizationLevel = "VIEW"
)

// CanEdit reports whether the level grants write access.
func (l AuthorizationLevel) CanEdit() bool {
	return l == LevelOwn || l == LevelEdit
}

// Valid reports whether the level is one of the known values.
func (l AuthorizationLevel) Valid() bool {
	return l == LevelOwn || l == LevelEdit || l == LevelView
}

// Authorization grants a user an access level on one simulation.
type Authorization struct {
	SimulationID string
	Level        AuthorizationLevel
}

// ErrForbidden indicates the user lacks the access level a check required.
var ErrForbidden = errors.New("insufficient access")

// CheckAccess verifies the user holds an authorization for the simulation,
// with edit level when edit is true. Returns ErrForbidden otherwise.
func CheckAccess(user User, simulationID string, edit bool) error {
	level, ok := user.LevelFor(simulationID)
	if !ok {
		return ErrForbidden
	}
	if edit && !level.CanEdit() {
		return ErrForbidden
	}
	return nil
}
