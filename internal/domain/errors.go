package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a tutoring session has not been started.
	ErrSessionNotFound = errors.New("tutoring session not found")
	// ErrModuleNotFound indicates the module content could not be loaded.
	ErrModuleNotFound = errors.New("module not found")
	// ErrSpecNotFound indicates no concept spec exists for a question unit.
	ErrSpecNotFound = errors.New("question spec not found")
	// ErrDomainNotFound indicates no concept catalog exists for a domain.
	ErrDomainNotFound = errors.New("concept domain not found")
	// ErrModuleCompleted is returned when acting on a session that has no questions left.
	ErrModuleCompleted = errors.New("module already completed")
	// ErrInvalidSpec marks a question spec that fails validation at load time.
	ErrInvalidSpec = errors.New("invalid question spec")
)
