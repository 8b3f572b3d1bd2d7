package command

import "errors"

// Domain errors for the command package.
var (
	// ErrInvalidCommand is returned when a command's action, device, or
	// parameter is missing or not allowed for the action.
	ErrInvalidCommand = errors.New("command: invalid command")
)
