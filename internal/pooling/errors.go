package pooling

import "errors"

var (
	// ErrInvalidGeometry reports pooling parameters that define no valid output.
	ErrInvalidGeometry = errors.New("invalid pooling geometry")

	// ErrBufferSize reports a buffer too small or of the wrong type for a call.
	ErrBufferSize = errors.New("buffer does not fit batch")

	// ErrUnknownVariant reports a variant name or index that does not exist.
	ErrUnknownVariant = errors.New("unknown pooling variant")
)
