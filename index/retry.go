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

package index

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// UnboundedTrials makes RetryFixed retry until the operation succeeds or
// the context ends.
const UnboundedTrials = -1

// RetryFixed retries an operation with a fixed delay between attempts.
// trials: number of attempts; negative retries indefinitely, zero makes no
// attempt and fails with ErrTrialsExhausted.
// Errors marked with Permanent are returned without further attempts.
// Returns the error from the last attempt, joined with ErrTrialsExhausted,
// if all attempts fail.
func RetryFixed(ctx context.Context, operation func() error, trials int, delay time.Duration) error {
	if trials == 0 {
		return ErrTrialsExhausted
	}

	var lastErr error
	for attempt := 1; trials < 0 || attempt <= trials; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if IsPermanent(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "trials", trials, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == trials {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return errors.Join(ErrTrialsExhausted, lastErr)
}
