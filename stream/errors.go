package stream

import "errors"

var (
	// ErrFetcherRequired is returned when a page fetcher is not provided.
	ErrFetcherRequired = errors.New("page fetcher required")

	// ErrInvalidInterval is returned when the batch interval is not positive.
	ErrInvalidInterval = errors.New("interval must be greater than zero")

	// ErrInvalidTransition is returned for an event a phase does not accept.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrConsumed is returned when Documents is called a second time.
	ErrConsumed = errors.New("stream already consumed")

	// ErrBatchExhausted is reported by Err when a batch failed every trial.
	ErrBatchExhausted = errors.New("batch trial budget exhausted")

	// ErrBatchRejected is reported by Err when a batch failed with an error
	// that retrying cannot fix.
	ErrBatchRejected = errors.New("batch rejected")
)
