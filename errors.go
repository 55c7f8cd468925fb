package reporter

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("reporter: no store configured")
	ErrStoreClosed = errors.New("reporter: store closed")

	// Not found errors.
	ErrJobNotFound  = errors.New("reporter: job not found")
	ErrTaskNotFound = errors.New("reporter: task not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("reporter: job already exists")

	// State errors.
	ErrInvalidState = errors.New("reporter: invalid state transition")

	// Bus wiring errors. A command without a handler is a bootstrap
	// defect and must fail loudly, never be swallowed.
	ErrNoHandler     = errors.New("reporter: no handler registered for command")
	ErrHandlerExists = errors.New("reporter: command handler already registered")

	// Platform errors.
	ErrUnknownPlatform = errors.New("reporter: unsupported platform")
)
