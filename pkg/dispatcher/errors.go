package dispatcher

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrValidation marks a malformed task that never reaches the
	// selector or an agent.
	ErrValidation = goerr.New("task validation failed")

	// ErrAgentNotFound marks a submit against an unregistered agent id
	ErrAgentNotFound = goerr.New("agent not found")

	// ErrTaskTimeout marks an execution that lost the race against its
	// deadline. The underlying agent call is not guaranteed to have
	// stopped.
	ErrTaskTimeout = goerr.New("task timed out")

	// ErrTaskNotFound marks a status or cancel lookup for a task that is
	// neither active nor stored.
	ErrTaskNotFound = goerr.New("task not found")
)
