package cookie

import "errors"

var (
	// ErrInvalidConfig is returned by NewManager for unusable settings.
	ErrInvalidConfig = errors.New("cookie: invalid config")

	// ErrInvalidRequest is reported for requests whose shape does not match
	// their kind or that lack a source texture.
	ErrInvalidRequest = errors.New("cookie: invalid request")
)
