package dedupe

import "errors"

// Sentinel errors returned by Acquire.
var (
	ErrInFlight = errors.New("submission already in progress")
	ErrFull     = errors.New("too many submissions in progress")
)
