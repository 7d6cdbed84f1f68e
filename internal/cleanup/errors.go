package cleanup

import "errors"

// ErrInvalidRequest is returned by Run before any filesystem access when the
// request cannot be executed.
var ErrInvalidRequest = errors.New("invalid cleanup request")
