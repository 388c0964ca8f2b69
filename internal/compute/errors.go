package compute

import "errors"

// Errors reported by backends. Wrapped errors carry the details.
var (
	ErrBuild           = errors.New("program build failed")
	ErrLaunch          = errors.New("launch failed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrReleased        = errors.New("resource already released")
	ErrUnsupported     = errors.New("unsupported by backend")
)
