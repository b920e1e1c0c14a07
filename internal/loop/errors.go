package loop

import "errors"

// Errors surfaced by loop operations. All are checked before any state
// mutates, so a failed call leaves the loop, its histories and its
// controllers exactly as they were.
var (
	// ErrPaused indicates Tick was called while the loop is paused.
	ErrPaused = errors.New("loop: tick while paused")

	// ErrNotFinite indicates a NaN or Inf setpoint/disturbance. The
	// boundary rejects these rather than letting NaN propagate through
	// the trajectory.
	ErrNotFinite = errors.New("loop: setpoint and disturbance must be finite")

	// ErrDuplicateController indicates an Add with a name already in use.
	ErrDuplicateController = errors.New("loop: duplicate controller name")

	// ErrUnknownController indicates a lookup for a name never added.
	ErrUnknownController = errors.New("loop: unknown controller")

	// ErrInvalidConfig indicates a non-positive dt or history size.
	ErrInvalidConfig = errors.New("loop: invalid config")
)
