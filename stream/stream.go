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

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"time"

	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/index"
	"github.com/poiesic/corpusvec/pool"
)

const (
	// DefaultInterval is the number of documents in one batch.
	DefaultInterval = 20

	// DefaultBackoff is the pause before a failed batch is dispatched again.
	DefaultBackoff = 20 * time.Second
)

// Fetcher is what a stream needs from the index. index.Fetcher satisfies it.
type Fetcher interface {
	pool.PageFetcher
	Count(ctx context.Context, query string) (int, error)
}

// Config holds the parameters of one stream.
type Config struct {
	// Query selects the documents. Empty means all documents.
	Query string

	// Fields restricts the returned fields. Empty means all fields.
	Fields []string

	// Offset is the first document to fetch, usually a previous Cutoff.
	Offset int

	// Interval is the number of documents per batch.
	Interval int

	// Jobs is the number of sub-ranges each batch is split into and the
	// starting concurrency.
	Jobs int

	// MaxConn caps the number of concurrent fetches.
	MaxConn int

	// MaxTrials is the number of times a batch is dispatched before the
	// stream gives up. Negative retries forever, zero never dispatches.
	MaxTrials int

	// Backoff is the pause between two dispatches of the same batch.
	Backoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Query:     "*:*",
		Interval:  DefaultInterval,
		Jobs:      runtime.NumCPU(),
		MaxConn:   pool.DefaultMaxConn,
		MaxTrials: index.UnboundedTrials,
		Backoff:   DefaultBackoff,
	}
}

// Progress receives the number of documents yielded by every committed batch.
// training.ProgressTracker satisfies it.
type Progress interface {
	Increment(delta int)
}

// Step describes one transition of the batch state machine.
type Step struct {
	Batch       core.Range
	From        Phase
	Event       Event
	To          Phase
	Concurrency int
}

// Stream is a single-pass, resumable sequence of documents.
// It is not safe for concurrent use.
type Stream struct {
	pool     *pool.Pool
	cfg      Config
	total    int
	logger   *slog.Logger
	progress Progress
	observe  func(Step)

	concurrency int
	state       core.StreamState
	err         error
	consumed    bool
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stream) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// WithProgress reports committed documents to p.
func WithProgress(p Progress) Option {
	return func(s *Stream) {
		s.progress = p
	}
}

// WithObserver calls fn for every state machine transition.
func WithObserver(fn func(Step)) Option {
	return func(s *Stream) {
		s.observe = fn
	}
}

// New queries the total hit count once and prepares a stream starting at
// cfg.Offset. A failure to count is returned: the index is unusable with
// this configuration.
func New(ctx context.Context, fetcher Fetcher, cfg Config, opts ...Option) (*Stream, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if cfg.Interval < 0 {
		return nil, ErrInvalidInterval
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = runtime.NumCPU()
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.Offset < 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidState, core.ErrNegativeOffset)
	}

	s := &Stream{
		cfg:         cfg,
		logger:      slog.Default(),
		concurrency: cfg.Jobs,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "stream")

	p, err := pool.New(fetcher, cfg.MaxConn, pool.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.pool = p

	total, err := fetcher.Count(ctx, cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	s.total = total

	offset := cfg.Offset
	if offset > total {
		s.logger.Warn("offset beyond corpus, clamping", "offset", offset, "total", total)
		offset = total
	}
	s.state = core.StreamState{Offset: offset, Cutoff: offset}

	s.logger.Debug("stream ready", "total", total, "offset", offset, "interval", cfg.Interval, "jobs", cfg.Jobs)
	return s, nil
}

// Total returns the number of documents the index reported.
func (s *Stream) Total() int {
	return s.total
}

// State returns the current offset, cutoff and completion flag.
func (s *Stream) State() core.StreamState {
	return s.state
}

// Concurrency returns the current concurrency level. It never increases
// over the life of a stream and never drops below one.
func (s *Stream) Concurrency() int {
	return s.concurrency
}

// Err returns why the stream stopped before reaching the end, or nil.
func (s *Stream) Err() error {
	return s.err
}

// Documents returns the lazy document sequence. It can be ranged over once.
func (s *Stream) Documents(ctx context.Context) iter.Seq[core.Document] {
	return func(yield func(core.Document) bool) {
		if s.consumed {
			s.err = ErrConsumed
			return
		}
		s.consumed = true
		s.run(ctx, yield)
	}
}

func (s *Stream) run(ctx context.Context, yield func(core.Document) bool) {
	var handle *pool.Handle
	defer func() {
		if handle != nil {
			handle.Release()
		}
	}()

	req := index.Request{Query: s.cfg.Query, Fields: s.cfg.Fields}
	for _, batch := range Batches(s.state.Offset, s.total, s.cfg.Interval) {
		if !s.setState(core.StreamState{Offset: batch.Start, Cutoff: batch.Start}) {
			return
		}

		pages, ok := s.fetchBatch(ctx, &handle, req, batch)
		if !ok {
			s.logger.Warn("stream stopped early", "cutoff", s.state.Cutoff, "total", s.total, "err", s.err)
			return
		}

		yielded := 0
		for _, page := range pages {
			for _, doc := range page.Documents {
				if !yield(doc) {
					return
				}
				yielded++
			}
		}

		if !s.setState(core.StreamState{Offset: batch.End, Cutoff: batch.Start}) {
			return
		}
		if yielded < batch.Len() {
			s.logger.Debug("short batch", "start", batch.Start, "end", batch.End, "documents", yielded)
		}
		if s.progress != nil {
			s.progress.Increment(yielded)
		}
	}

	if s.setState(core.StreamState{Offset: s.total, Cutoff: s.total, Done: true}) {
		s.logger.Debug("stream complete", "total", s.total)
	}
}

// setState moves the stream to state. A state breaking
// Cutoff <= Offset <= total, or moving Cutoff backward, stops the stream.
func (s *Stream) setState(state core.StreamState) bool {
	err := core.ValidateStreamState(state, s.total)
	if err == nil && state.Cutoff < s.state.Cutoff {
		err = fmt.Errorf("%w: cutoff moved back from %d to %d", core.ErrInvalidState, s.state.Cutoff, state.Cutoff)
	}
	if err != nil {
		s.err = err
		s.logger.Error("invalid stream state", "err", err)
		return false
	}
	s.state = state
	return true
}

// fetchBatch runs the retry state machine for one batch. It reports false
// when the batch was abandoned.
func (s *Stream) fetchBatch(ctx context.Context, handle **pool.Handle, req index.Request, batch core.Range) ([]core.Page, bool) {
	trials := budget{limit: s.cfg.MaxTrials}
	if trials.empty() {
		s.err = fmt.Errorf("%w: batch [%d,%d) with zero trials", ErrBatchExhausted, batch.Start, batch.End)
		return nil, false
	}

	ranges := Split(batch, s.cfg.Jobs)

	var (
		pages   []core.Page
		lastErr error
		phase   = PhaseDispatch
	)
	for !phase.Terminal() {
		var ev Event
		switch phase {
		case PhaseDispatch:
			pages, lastErr = s.dispatch(ctx, handle, req, ranges)
			switch {
			case lastErr == nil:
				ev = EventFetched
			case ctx.Err() != nil:
				ev = EventCanceled
			default:
				ev = EventFailed
			}

		case PhaseDegrade:
			if *handle != nil {
				(*handle).Release()
				*handle = nil
			}
			s.concurrency = degrade(s.concurrency)
			ev = trials.spend()
			s.logger.Warn("batch failed",
				"start", batch.Start, "end", batch.End,
				"trial", trials.spent, "concurrency", s.concurrency, "err", lastErr)
			switch {
			case index.IsPermanent(lastErr):
				// Retrying cannot fix the request.
				ev = EventBudgetExhausted
			case ev == EventBudgetLeft && ctx.Err() != nil:
				ev = EventCanceled
			}

		case PhaseRetryBackoff:
			ev = EventWoke
			if err := sleep(ctx, s.cfg.Backoff); err != nil {
				ev = EventCanceled
			}
		}

		next, err := Transition(phase, ev)
		if err != nil {
			lastErr = err
			next = PhaseAbort
		}
		if s.observe != nil {
			s.observe(Step{Batch: batch, From: phase, Event: ev, To: next, Concurrency: s.concurrency})
		}
		phase = next
	}

	if phase == PhaseAbort {
		switch {
		case ctx.Err() != nil:
			s.err = ctx.Err()
		case index.IsPermanent(lastErr):
			s.err = fmt.Errorf("%w: batch [%d,%d) rejected by the index: %w", ErrBatchRejected, batch.Start, batch.End, lastErr)
		default:
			s.err = fmt.Errorf("%w: batch [%d,%d) after %d trials: %w", ErrBatchExhausted, batch.Start, batch.End, trials.spent, lastErr)
		}
		return nil, false
	}
	return pages, true
}

func (s *Stream) dispatch(ctx context.Context, handle **pool.Handle, req index.Request, ranges []core.Range) ([]core.Page, error) {
	if *handle == nil {
		h, err := s.pool.Acquire(s.concurrency)
		if err != nil {
			return nil, err
		}
		*handle = h
	}
	return (*handle).Fetch(ctx, req, ranges)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
