// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "errors"

// Domain errors
var (
	// ErrIndexUnavailable indicates the remote index could not be reached
	// within the configured trial budget.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrInvalidRange indicates a range or page with inconsistent bounds.
	ErrInvalidRange = errors.New("invalid range")

	// ErrInvalidState indicates a stream state that violates Cutoff <= Offset <= total.
	ErrInvalidState = errors.New("invalid stream state")

	// ErrInvalidCheckpoint indicates a Checkpoint failed validation.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")

	// ErrEmptyKey indicates the checkpoint Key field is empty.
	ErrEmptyKey = errors.New("checkpoint key cannot be empty")

	// ErrNegativeOffset indicates an offset below zero.
	ErrNegativeOffset = errors.New("offset cannot be negative")
)
