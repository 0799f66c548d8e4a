package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotReady   = errors.New("no data snapshot loaded")
	ErrNoLoader   = errors.New("no data loader configured")
	ErrNoPipeline = errors.New("submission pipeline not configured")
)
