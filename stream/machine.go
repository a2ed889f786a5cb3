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

package stream

import "fmt"

// Phase is the state of one batch in the retry loop.
type Phase int

const (
	// PhaseDispatch fetches every sub-range of the batch through the pool.
	PhaseDispatch Phase = iota
	// PhaseRetryBackoff sleeps for the backoff interval before redispatching.
	PhaseRetryBackoff
	// PhaseDegrade releases the pool, halves concurrency and spends a trial.
	PhaseDegrade
	// PhaseAbort stops the stream with Cutoff at the batch start. Terminal.
	PhaseAbort
	// PhaseCommit yields the batch and advances the offset. Terminal.
	PhaseCommit
)

func (p Phase) String() string {
	switch p {
	case PhaseDispatch:
		return "dispatch"
	case PhaseRetryBackoff:
		return "retry_backoff"
	case PhaseDegrade:
		return "degrade"
	case PhaseAbort:
		return "abort"
	case PhaseCommit:
		return "commit"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether the batch is finished in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseAbort || p == PhaseCommit
}

// Event drives a Phase change.
type Event int

const (
	// EventFetched means every sub-range of the batch was fetched.
	EventFetched Event = iota
	// EventFailed means at least one sub-range fetch failed.
	EventFailed
	// EventBudgetLeft means the batch may be tried again.
	EventBudgetLeft
	// EventBudgetExhausted means the batch has used all of its trials.
	EventBudgetExhausted
	// EventWoke means the backoff sleep has elapsed.
	EventWoke
	// EventCanceled means the context was canceled.
	EventCanceled
)

func (e Event) String() string {
	switch e {
	case EventFetched:
		return "fetched"
	case EventFailed:
		return "failed"
	case EventBudgetLeft:
		return "budget_left"
	case EventBudgetExhausted:
		return "budget_exhausted"
	case EventWoke:
		return "woke"
	case EventCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// transitions lists every legal (phase, event) pair.
var transitions = map[Phase]map[Event]Phase{
	PhaseDispatch: {
		EventFetched:  PhaseCommit,
		EventFailed:   PhaseDegrade,
		EventCanceled: PhaseAbort,
	},
	PhaseDegrade: {
		EventBudgetLeft:      PhaseRetryBackoff,
		EventBudgetExhausted: PhaseAbort,
		EventCanceled:        PhaseAbort,
	},
	PhaseRetryBackoff: {
		EventWoke:     PhaseDispatch,
		EventCanceled: PhaseAbort,
	},
}

// Transition returns the phase that follows from on ev.
// Terminal phases accept no events.
func Transition(from Phase, ev Event) (Phase, error) {
	next, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
	}
	return next, nil
}

// budget counts the trials spent on one batch.
// A negative limit never runs out.
type budget struct {
	limit int
	spent int
}

func (b *budget) empty() bool {
	return b.limit >= 0 && b.spent >= b.limit
}

// spend uses one trial and returns the event describing what is left.
func (b *budget) spend() Event {
	b.spent++
	if b.empty() {
		return EventBudgetExhausted
	}
	return EventBudgetLeft
}

// degrade halves concurrency with a floor of one.
func degrade(concurrency int) int {
	return max(1, concurrency/2)
}
