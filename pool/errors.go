package pool

import "errors"

var (
	// ErrFetcherRequired is returned when a page fetcher is not provided.
	ErrFetcherRequired = errors.New("page fetcher required")

	// ErrPoolLive is returned by Acquire while another handle is still live.
	ErrPoolLive = errors.New("worker pool already acquired")

	// ErrPoolReleased is returned when a released handle is used.
	ErrPoolReleased = errors.New("worker pool released")
)
