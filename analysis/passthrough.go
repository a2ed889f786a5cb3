package analysis

import (
	"context"
	"iter"

	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/stream"
)

// PassThrough yields documents unchanged.
type PassThrough struct{}

var _ stream.Analyzer[core.Document] = PassThrough{}

// Analyze returns docs as is.
func (PassThrough) Analyze(ctx context.Context, docs iter.Seq[core.Document]) iter.Seq[core.Document] {
	return docs
}
