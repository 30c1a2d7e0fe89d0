package gatez

import "errors"

var (
	// ErrGateNotFound is returned when no gate claims ownership of a value
	// passed to Enable or Disable.
	ErrGateNotFound = errors.New("no gate found for value")

	// ErrInvalidPercentage is returned when a percentage value falls outside
	// the closed range [0, 100].
	ErrInvalidPercentage = errors.New("invalid percentage")

	// ErrMissingActorID is returned when wrapping an actor with an empty id.
	ErrMissingActorID = errors.New("actor id is required")

	// ErrMissingGroupName is returned when wrapping an empty group name.
	ErrMissingGroupName = errors.New("group name is required")
)
