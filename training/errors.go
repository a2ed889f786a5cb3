package training

import "errors"

var (
	// ErrDialerRequired is returned when a driver is built without an index dialer.
	ErrDialerRequired = errors.New("index dialer required")

	// ErrRepositoryRequired is returned when a driver is built without a checkpoint repository.
	ErrRepositoryRequired = errors.New("checkpoint repository required")

	// ErrConfigRequired is returned when a driver is built without a configuration.
	ErrConfigRequired = errors.New("configuration required")
)
