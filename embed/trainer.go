package embed

import (
	"context"
	"iter"
)

// Trainer builds a vocabulary and word vectors from token sequences.
//
// A trainer reads a sequence to its end. It returns ctx.Err() without
// reading when ctx is already canceled, and after reading when ctx was
// canceled meanwhile.
type Trainer interface {
	// BuildVocabulary counts the words of sentences. With resume set the
	// counts of earlier calls are kept, otherwise they are discarded first.
	BuildVocabulary(ctx context.Context, sentences iter.Seq[[]string], resume bool) error

	// Update trains on sentences, adding to what was learned before.
	Update(ctx context.Context, sentences iter.Seq[[]string]) error

	// Save writes the trainer state to path.
	Save(path string) error
}

var _ Trainer = (*Model)(nil)
