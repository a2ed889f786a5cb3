package training

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how far a pass over the corpus has progressed.
// It satisfies stream.Progress.
type ProgressTracker struct {
	writer         io.Writer
	label          string
	total          int
	current        int
	first          int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// label: the name of the pass, shown in front of every report
// reportInterval: report progress every N documents
func NewProgressTracker(writer io.Writer, label string, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		label:          label,
		reportInterval: reportInterval,
	}
}

// Start begins tracking a pass over total documents that resumes at current.
func (p *ProgressTracker) Start(total, current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current = min(max(current, 0), total)
	p.startTime = time.Now()
	p.started = true
	p.total = total
	p.current = current
	p.first = current
	p.lastReported = current
}

// Increment increases the current progress by the specified amount.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = min(p.current+delta, p.total)

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Current returns the number of documents processed, resumed ones included.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish prints the final progress. Pass done=false for an interrupted pass.
func (p *ProgressTracker) Finish(done bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if done {
		p.current = p.total
	}
	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(p.current-p.first) / secs
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\r%s: %d/%d (%.1f%%) - %.1f documents/s",
		p.label, p.current, p.total, percentage, rate)
}
