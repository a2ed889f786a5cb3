package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// CorpusKey returns the checkpoint key for a corpus, identified by the index
// endpoint and the query filter applied to it.
func CorpusKey(endpoint, query string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	return fmt.Sprintf("%016x", uint64(IDFromContent(endpoint+"\x00"+query)))
}

// Document is one record returned by the remote index, as a mapping of
// field name to value. It is passed through the pipeline unmodified.
type Document map[string]any

// Text returns the value of field rendered as a string.
// Multi-valued fields are joined with a single space.
// Missing fields yield the empty string.
func (d Document) Text(field string) string {
	v, ok := d[field]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, " ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(val)
	}
}

// Range is the half-open interval [Start, End) of corpus offsets.
type Range struct {
	Start int
	End   int
}

// Len returns the number of offsets covered by the range.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Page is one fetched slice of the corpus.
// Produced by a single fetch and never modified afterwards.
type Page struct {
	Offset    int
	Size      int
	Documents []Document
}

// StreamState tracks how far a document stream has progressed.
//
// Offset is the next offset to fetch. Cutoff is the last offset known to be
// fully and safely processed, and is the resume point after interruption.
// Done becomes true only once every batch of the pass has been consumed.
type StreamState struct {
	Offset int
	Cutoff int
	Done   bool
}

// Checkpoint is the persisted state of a multi-pass training job.
type Checkpoint struct {
	Key             string    // Corpus key, see CorpusKey
	Offset          int64     // Resume offset for the current pass
	VocabularyBuilt bool      // The vocabulary pass has fully completed
	Completed       bool      // Training finished and the final model was saved
	UpdatedAt       time.Time // When the checkpoint was last written
}

// IsZero reports whether the checkpoint carries no progress at all.
func (c *Checkpoint) IsZero() bool {
	return c.Offset == 0 && !c.VocabularyBuilt && !c.Completed
}
