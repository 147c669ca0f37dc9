package world

import "errors"

var (
	// ErrInvalidSpawnPosition is returned when a spawn position is
	// non-finite or outside the world bounds.
	ErrInvalidSpawnPosition = errors.New("invalid spawn position")

	// ErrUnknownEntity is returned when an entity id does not refer to a
	// live entity.
	ErrUnknownEntity = errors.New("unknown entity id")

	// ErrCorruptState is returned when a save record fails structural or
	// semantic validation. The world is left untouched.
	ErrCorruptState = errors.New("corrupt state record")

	// ErrPopulationLimit is returned when a spawn would exceed the hard
	// per-species population cap.
	ErrPopulationLimit = errors.New("population limit reached")

	// ErrBadRunState is returned when a command does not apply to the
	// engine's current run state.
	ErrBadRunState = errors.New("command not valid in current run state")
)
