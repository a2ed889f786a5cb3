package stream

import "github.com/poiesic/corpusvec/core"

// Batches tiles [offset, total) with consecutive ranges of interval
// documents. The last range is shorter when interval does not divide the
// span. It returns nil when offset >= total or interval < 1.
func Batches(offset, total, interval int) []core.Range {
	if interval < 1 || offset >= total {
		return nil
	}
	if offset < 0 {
		offset = 0
	}

	batches := make([]core.Range, 0, (total-offset+interval-1)/interval)
	for start := offset; start < total; start += interval {
		batches = append(batches, core.Range{Start: start, End: min(start+interval, total)})
	}
	return batches
}

// Split partitions r into min(n, r.Len()) consecutive sub-ranges whose
// lengths differ by at most one. The first r.Len() % n sub-ranges carry the
// extra document, so no document of r is left out.
func Split(r core.Range, n int) []core.Range {
	size := r.Len()
	if size <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > size {
		n = size
	}

	base, extra := size/n, size%n
	parts := make([]core.Range, n)
	start := r.Start
	for i := range parts {
		length := base
		if i < extra {
			length++
		}
		parts[i] = core.Range{Start: start, End: start + length}
		start += length
	}
	return parts
}
