package analysis

import "errors"

var (
	// ErrFieldRequired is returned when no text field is configured.
	ErrFieldRequired = errors.New("text field required")
)
