// Package pool runs bounded, concurrent page fetches for one batch at a time.
//
// A Pool hands out at most one live Handle. The owner of the handle uses it
// for as many batches as it likes and releases it on failure or when it
// needs a different concurrency level:
//
//	h, err := p.Acquire(8)
//	if err != nil {
//	    return err
//	}
//	pages, err := h.Fetch(ctx, req, ranges)
//	if err != nil {
//	    h.Release()
//	    h, err = p.Acquire(4)
//	}
package pool
