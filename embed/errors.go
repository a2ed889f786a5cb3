package embed

import "errors"

var (
	// ErrInvalidParams is returned for non-positive dimension, window or min count.
	ErrInvalidParams = errors.New("invalid model parameters")

	// ErrEmptyVocabulary is returned by Update before any word reached MinCount.
	ErrEmptyVocabulary = errors.New("vocabulary is empty")

	// ErrUnknownWord is returned for a word outside the vocabulary.
	ErrUnknownWord = errors.New("word not in vocabulary")

	// ErrBadModelFile is returned when a model file cannot be decoded.
	ErrBadModelFile = errors.New("malformed model file")
)
