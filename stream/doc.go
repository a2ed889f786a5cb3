// Package stream presents a remote corpus as one lazy, resumable sequence
// of documents.
//
// The range [offset, total) is cut into batches of Interval documents and
// each batch into Jobs sub-ranges that are fetched in parallel through a
// pool.Handle. Batches are yielded strictly in offset order; documents
// within a batch arrive in completion order.
//
// A failed batch is retried by a small state machine (see Transition): the
// handle is released, concurrency is halved, and after Backoff the same
// batch is dispatched again. When the batch budget runs out the stream stops
// early and State reports the batch start as Cutoff, which is where a new
// stream should resume:
//
//	s, err := stream.New(ctx, fetcher, cfg)
//	for doc := range s.Documents(ctx) {
//	    ...
//	}
//	if st := s.State(); !st.Done {
//	    cfg.Offset = st.Cutoff
//	}
package stream
