package stream

import (
	"context"
	"iter"

	"github.com/poiesic/corpusvec/core"
)

// Analyzer turns the raw document sequence into a sequence of derived units,
// such as token lists. It must consume docs in a single forward pass.
type Analyzer[U any] interface {
	Analyze(ctx context.Context, docs iter.Seq[core.Document]) iter.Seq[U]
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc[U any] func(ctx context.Context, docs iter.Seq[core.Document]) iter.Seq[U]

// Analyze calls f.
func (f AnalyzerFunc[U]) Analyze(ctx context.Context, docs iter.Seq[core.Document]) iter.Seq[U] {
	return f(ctx, docs)
}

// Analyze routes the documents of s through a.
func Analyze[U any](ctx context.Context, s *Stream, a Analyzer[U]) iter.Seq[U] {
	return a.Analyze(ctx, s.Documents(ctx))
}
