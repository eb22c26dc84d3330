package timezone

import "errors"

// Error definitions
var (
	// ErrParse reports a malformed timestamp or a malformed lookup response.
	ErrParse = errors.New("parse error")
	// ErrUnknownAirport reports an airport code with no cached zone entry.
	ErrUnknownAirport = errors.New("unknown airport")
	// ErrStorage reports an offset cache file that cannot be read or written.
	ErrStorage = errors.New("storage error")
	// ErrNetwork reports a failed call to the time zone lookup service.
	ErrNetwork = errors.New("network error")
)
