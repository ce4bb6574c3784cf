package robot

import "errors"

// Domain-specific errors for tool invocation.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownTool is returned when Invoke is given a name that is not in the catalogue.
	ErrUnknownTool = errors.New("robot: unknown tool")

	// ErrInvalidArgument is returned when a tool argument is missing, mistyped or out of range.
	ErrInvalidArgument = errors.New("robot: invalid argument")
)
