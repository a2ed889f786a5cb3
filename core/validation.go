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

import "fmt"

// ValidateRange validates a Range.
//
// Validation rules:
//   - Start must not be negative
//   - End must not be before Start
func ValidateRange(r Range) error {
	if r.Start < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRange, ErrNegativeOffset)
	}
	if r.End < r.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, r.End, r.Start)
	}
	return nil
}

// ValidatePage validates a Page.
//
// Validation rules:
//   - Offset must not be negative
//   - Size must be greater than zero
//   - Documents must not exceed Size
func ValidatePage(page *Page) error {
	if page == nil {
		return fmt.Errorf("%w: page is nil", ErrInvalidRange)
	}
	if page.Offset < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRange, ErrNegativeOffset)
	}
	if page.Size <= 0 {
		return fmt.Errorf("%w: page size %d", ErrInvalidRange, page.Size)
	}
	if len(page.Documents) > page.Size {
		return fmt.Errorf("%w: %d documents in page of size %d", ErrInvalidRange, len(page.Documents), page.Size)
	}
	return nil
}

// ValidateStreamState checks Cutoff <= Offset <= total.
func ValidateStreamState(state StreamState, total int) error {
	if state.Cutoff < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrNegativeOffset)
	}
	if state.Cutoff > state.Offset || state.Offset > total {
		return fmt.Errorf("%w: cutoff=%d offset=%d total=%d", ErrInvalidState, state.Cutoff, state.Offset, total)
	}
	if state.Done && state.Cutoff != total {
		return fmt.Errorf("%w: done with cutoff=%d total=%d", ErrInvalidState, state.Cutoff, total)
	}
	return nil
}

// ValidateCheckpoint validates a Checkpoint according to domain rules.
//
// Validation rules:
//   - Key must not be empty
//   - Offset must not be negative
//   - Completed implies VocabularyBuilt
func ValidateCheckpoint(cp *Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("%w: checkpoint is nil", ErrInvalidCheckpoint)
	}
	if cp.Key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCheckpoint, ErrEmptyKey)
	}
	if cp.Offset < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCheckpoint, ErrNegativeOffset)
	}
	if cp.Completed && !cp.VocabularyBuilt {
		return fmt.Errorf("%w: completed without vocabulary", ErrInvalidCheckpoint)
	}
	return nil
}
