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

package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/index"
)

// DefaultMaxConn caps the number of concurrent connections to the index.
const DefaultMaxConn = 16

// PageFetcher fetches a single page. index.Fetcher satisfies it.
type PageFetcher interface {
	FetchPage(ctx context.Context, req index.Request) (core.Page, error)
}

// Pool owns the worker pool used to fetch sub-ranges of a batch.
// At most one Handle is live at a time.
type Pool struct {
	fetcher PageFetcher
	maxConn int
	logger  *slog.Logger

	mu   sync.Mutex
	live *Handle
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// New creates a pool that never runs more than maxConn fetches at once.
// A non-positive maxConn falls back to DefaultMaxConn.
func New(fetcher PageFetcher, maxConn int, opts ...Option) (*Pool, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if maxConn < 1 {
		maxConn = DefaultMaxConn
	}

	p := &Pool{
		fetcher: fetcher,
		maxConn: maxConn,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pool")

	return p, nil
}

// MaxConn returns the connection cap.
func (p *Pool) MaxConn() int {
	return p.maxConn
}

// Live reports whether a handle is currently acquired.
func (p *Pool) Live() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live != nil
}

// Acquire starts min(maxConn, concurrency) workers, at least one, and
// returns the handle that owns them.
// It fails with ErrPoolLive if the previous handle has not been released.
func (p *Pool) Acquire(concurrency int) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live != nil {
		return nil, ErrPoolLive
	}

	size := min(p.maxConn, concurrency)
	if size < 1 {
		size = 1
	}

	workers, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("start worker pool: %w", err)
	}

	h := &Handle{
		owner:   p,
		workers: workers,
		size:    size,
	}
	p.live = h
	p.logger.Debug("acquired worker pool", "size", size)
	return h, nil
}

func (p *Pool) release(h *Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live == h {
		p.live = nil
	}
}

// Handle is an acquired set of workers bound to one concurrency level.
// It must be used by a single goroutine.
type Handle struct {
	owner    *Pool
	workers  *ants.Pool
	size     int
	released bool
}

// Size returns the number of workers.
func (h *Handle) Size() int {
	return h.size
}

// Fetch fetches one page per range, filling in Start and Rows of req from
// each range. Pages are returned in completion order.
// Fetch waits for every dispatched fetch before returning; if any fails the
// joined errors are returned and the caller should release the handle.
func (h *Handle) Fetch(ctx context.Context, req index.Request, ranges []core.Range) ([]core.Page, error) {
	if h.released {
		return nil, ErrPoolReleased
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		pages = make([]core.Page, 0, len(ranges))
		errs  []error
	)

	for _, r := range ranges {
		if err := core.ValidateRange(r); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			continue
		}
		sub := req
		sub.Start = r.Start
		sub.Rows = r.Len()

		wg.Add(1)
		err := h.workers.Submit(func() {
			defer wg.Done()
			page, err := h.owner.fetcher.FetchPage(ctx, sub)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			pages = append(pages, page)
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("submit range [%d,%d): %w", r.Start, r.End, err))
			mu.Unlock()
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return pages, nil
}

// Release shuts the workers down and frees the pool for the next Acquire.
// It is safe to call more than once.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.workers.Release()
	h.owner.release(h)
	h.owner.logger.Debug("released worker pool", "size", h.size)
}
