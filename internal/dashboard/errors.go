package dashboard

import "errors"

// View model errors.
var (
	// ErrInvalidConfig is returned when the dashboard configuration fails validation.
	ErrInvalidConfig = errors.New("invalid dashboard config")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("view model already started")

	// ErrStopped is returned once Stop has been called.
	ErrStopped = errors.New("view model stopped")

	// ErrFetchInFlight is returned when a fetch is requested while another is running.
	ErrFetchInFlight = errors.New("fetch already in flight")
)
