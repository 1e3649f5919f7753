package response

import "errors"

var (
	// ErrTimeGrid indicates an empty or non-increasing time vector.
	ErrTimeGrid = errors.New("response: time grid must be non-empty and strictly increasing")

	// ErrInputDimension indicates an input matrix whose shape does not match
	// the system inputs and the time grid.
	ErrInputDimension = errors.New("response: input matrix does not match system")

	// ErrInitialState indicates an initial state of the wrong length.
	ErrInitialState = errors.New("response: initial state does not match system")

	// ErrUnknownMethod indicates an unsupported simulation method.
	ErrUnknownMethod = errors.New("response: unknown method")

	// ErrUnknownInput indicates a step signal naming a port the system lacks.
	ErrUnknownInput = errors.New("response: unknown input")
)
