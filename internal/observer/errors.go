package observer

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on an observer that was
	// already started.
	ErrAlreadyStarted = errors.New("observer already started")

	// ErrStopped is returned by Start on an observer that was stopped
	// before it was started.
	ErrStopped = errors.New("observer stopped")
)
