package engine

import "errors"

// Sentinel errors returned by registration and persistence boundaries.
// Affordability and ceiling failures are reported as booleans, not errors.
var (
	// ErrDuplicateName is returned when registering a resource, entity
	// or upgrade under a name that is already taken.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrNotFound is returned when loading from a save file that does
	// not exist.
	ErrNotFound = errors.New("save not found")

	// ErrInvalidSave is returned when a save file is missing one of the
	// required top-level sections or cannot be decoded.
	ErrInvalidSave = errors.New("invalid save data")

	// ErrUnknownPrerequisite is returned by Graph.Validate when an
	// upgrade names a prerequisite that was never registered.
	ErrUnknownPrerequisite = errors.New("unknown prerequisite")
)
