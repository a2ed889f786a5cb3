package index

import "errors"

var (
	// ErrTrialsExhausted is returned when every allowed attempt failed.
	ErrTrialsExhausted = errors.New("trial budget exhausted")

	// ErrDialerRequired is returned when a fetcher is built without a dialer.
	ErrDialerRequired = errors.New("index dialer required")

	// ErrInvalidRows is returned when a request asks for no rows.
	ErrInvalidRows = errors.New("rows must be greater than 0")
)

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that RetryFixed stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or any error it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
