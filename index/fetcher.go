package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/corpusvec/core"
	"golang.org/x/time/rate"
)

const (
	// DefaultRetryDelay is the pause between two attempts of the same fetch.
	DefaultRetryDelay = 10 * time.Second
)

// Fetcher fetches pages from a remote index, retrying transient failures.
// Every attempt dials its own connection so a broken connection from a
// failed attempt is never reused.
type Fetcher struct {
	dialer  Dialer
	trials  int
	delay   time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTrials sets the number of attempts per fetch.
// Negative values retry indefinitely. Default is UnboundedTrials.
func WithTrials(trials int) FetcherOption {
	return func(f *Fetcher) {
		f.trials = trials
	}
}

// WithRetryDelay sets the fixed delay between attempts.
func WithRetryDelay(delay time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if delay < 0 {
			delay = 0
		}
		f.delay = delay
	}
}

// WithRateLimit caps the rate of attempts across all callers of the fetcher.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) FetcherOption {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithFetcherLogger sets a custom logger.
// Default is slog.Default().
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
	}
}

// NewFetcher creates a new fetcher over dialer.
func NewFetcher(dialer Dialer, opts ...FetcherOption) (*Fetcher, error) {
	if dialer == nil {
		return nil, ErrDialerRequired
	}

	f := &Fetcher{
		dialer: dialer,
		trials: UnboundedTrials,
		delay:  DefaultRetryDelay,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "fetcher")

	return f, nil
}

// Count returns the number of documents matching query.
func (f *Fetcher) Count(ctx context.Context, query string) (int, error) {
	var total int
	err := f.attempt(ctx, func(conn Conn) error {
		var err error
		total, err = conn.Count(ctx, query)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count %q: %w", core.ErrIndexUnavailable, query, err)
	}
	return total, nil
}

// FetchPage returns the page of documents selected by req.
// It fails with core.ErrIndexUnavailable once the trial budget is spent, and
// with a Permanent core.ErrInvalidRange error when the index answers with
// more documents than requested.
func (f *Fetcher) FetchPage(ctx context.Context, req Request) (core.Page, error) {
	if req.Rows <= 0 {
		return core.Page{}, ErrInvalidRows
	}

	var docs []core.Document
	err := f.attempt(ctx, func(conn Conn) error {
		var err error
		docs, err = conn.Search(ctx, req)
		return err
	})
	if err != nil {
		return core.Page{}, fmt.Errorf("%w: page start=%d rows=%d: %w", core.ErrIndexUnavailable, req.Start, req.Rows, err)
	}

	page := core.Page{Offset: req.Start, Size: req.Rows, Documents: docs}
	if err := core.ValidatePage(&page); err != nil {
		return core.Page{}, Permanent(fmt.Errorf("page start=%d rows=%d: %w", req.Start, req.Rows, err))
	}

	f.logger.Debug("fetched page", "start", req.Start, "rows", req.Rows, "documents", len(docs))
	return page, nil
}

// attempt runs fn against a freshly dialed connection under the retry policy.
func (f *Fetcher) attempt(ctx context.Context, fn func(Conn) error) error {
	return RetryFixed(ctx, func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		conn, err := f.dialer.Dial(ctx)
		if err != nil {
			f.logger.Warn("dial failed", "err", err)
			return err
		}
		defer conn.Close()

		if err := fn(conn); err != nil {
			f.logger.Warn("index request failed", "err", err)
			return err
		}
		return nil
	}, f.trials, f.delay)
}
