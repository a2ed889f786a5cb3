package embed

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"
)

const (
	// DefaultDim is the vector dimensionality.
	DefaultDim = 100

	// DefaultWindow is the number of neighbours on each side of a word.
	DefaultWindow = 5

	// DefaultMinCount is the minimum frequency for a word to be kept.
	DefaultMinCount = 5

	// indexNonZero is the number of non-zero components of an index vector.
	indexNonZero = 10
)

// Params holds the hyperparameters of a Model.
type Params struct {
	Dim      int
	Window   int
	MinCount int
	Seed     uint64
}

// DefaultParams returns Params with sensible defaults.
func DefaultParams() Params {
	return Params{
		Dim:      DefaultDim,
		Window:   DefaultWindow,
		MinCount: DefaultMinCount,
		Seed:     1,
	}
}

// Validate checks that all sizes are positive.
func (p Params) Validate() error {
	if p.Dim <= 0 || p.Window <= 0 || p.MinCount <= 0 {
		return fmt.Errorf("%w: dim=%d window=%d min_count=%d", ErrInvalidParams, p.Dim, p.Window, p.MinCount)
	}
	return nil
}

// Neighbor is a word and its cosine similarity to a query word.
type Neighbor struct {
	Word       string
	Similarity float32
}

// Model is a random-indexing word-vector model.
// It is safe for concurrent use.
type Model struct {
	mu sync.RWMutex

	params Params
	counts map[string]int64

	// words and vectors are parallel; vocab maps a word to its row.
	words   []string
	vectors [][]float32
	vocab   map[string]int

	// sentences is the number of sentences seen by Update.
	sentences int64

	index map[string][]indexEntry
}

// NewModel creates an empty model.
func NewModel(params Params) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Model{
		params: params,
		counts: make(map[string]int64),
		vocab:  make(map[string]int),
		index:  make(map[string][]indexEntry),
	}, nil
}

// Params returns the model hyperparameters.
func (m *Model) Params() Params {
	return m.params
}

// BuildVocabulary counts the words of sentences and admits every word whose
// total count reaches MinCount. Without resume earlier counts are discarded.
// The vocabulary only grows: admitted words keep their rows and vectors.
//
// Every sentence is counted, even after ctx is canceled; the producer of
// sentences decides where to stop. A cancellation is reported afterwards.
func (m *Model) BuildVocabulary(ctx context.Context, sentences iter.Seq[[]string], resume bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	counts := make(map[string]int64)
	for sentence := range sentences {
		for _, word := range sentence {
			counts[word]++
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !resume {
		m.counts = make(map[string]int64, len(counts))
	}
	for word, n := range counts {
		m.counts[word] += n
	}
	m.rebuildVocab()
	return ctx.Err()
}

// rebuildVocab admits words that reached MinCount. Must be called with lock held.
func (m *Model) rebuildVocab() {
	var admitted []string
	for word, n := range m.counts {
		if n < int64(m.params.MinCount) {
			continue
		}
		if _, ok := m.vocab[word]; !ok {
			admitted = append(admitted, word)
		}
	}
	sort.Strings(admitted)

	for _, word := range admitted {
		m.vocab[word] = len(m.words)
		m.words = append(m.words, word)
		m.vectors = append(m.vectors, make([]float32, m.params.Dim))
	}
}

// Update adds the weighted index vectors of every in-vocabulary neighbour
// within Window to each in-vocabulary word of sentences. Closer neighbours
// weigh more: a neighbour at distance d contributes 1/d.
//
// Like BuildVocabulary, Update trains on every sentence it receives and
// reports a cancellation afterwards.
func (m *Model) Update(ctx context.Context, sentences iter.Seq[[]string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.words) == 0 {
		return ErrEmptyVocabulary
	}

	rows := make([]int, 0, 64)
	for sentence := range sentences {
		m.sentences++

		rows = rows[:0]
		for _, word := range sentence {
			if row, ok := m.vocab[word]; ok {
				rows = append(rows, row)
			}
		}
		m.train(rows)
	}
	return ctx.Err()
}

// train updates the context vectors of one sentence. Must be called with lock held.
func (m *Model) train(rows []int) {
	w := m.params.Window
	for i, row := range rows {
		target := m.vectors[row]
		lo, hi := max(0, i-w), min(len(rows)-1, i+w)
		for j := lo; j <= hi; j++ {
			if j == i {
				continue
			}
			weight := 1 / float32(abs(i-j))
			for _, e := range m.indexOf(m.words[rows[j]]) {
				target[e.pos] += e.sign * weight
			}
		}
	}
}

// indexOf returns the cached index vector of word. Must be called with lock held.
func (m *Model) indexOf(word string) []indexEntry {
	entries, ok := m.index[word]
	if !ok {
		entries = indexVector(word, m.params.Seed, m.params.Dim, indexNonZero)
		m.index[word] = entries
	}
	return entries
}

// Size returns the vocabulary size.
func (m *Model) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.words)
}

// Count returns how often word was seen while building the vocabulary.
func (m *Model) Count(word string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[word]
}

// Sentences returns the number of sentences trained on.
func (m *Model) Sentences() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sentences
}

// Words returns the vocabulary in row order.
func (m *Model) Words() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.words)
}

// Vector returns the unit-length vector of word.
func (m *Model) Vector(word string) ([]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.vocab[word]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWord, word)
	}
	return NormalizeVector(m.vectors[row]), nil
}

// MostSimilar returns up to n vocabulary words closest to word, most similar
// first. The word itself is excluded.
func (m *Model) MostSimilar(word string, n int) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.vocab[word]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWord, word)
	}
	if n <= 0 {
		return nil, nil
	}

	query := m.vectors[row]
	neighbors := make([]Neighbor, 0, len(m.words)-1)
	for i, other := range m.words {
		if i == row {
			continue
		}
		neighbors = append(neighbors, Neighbor{Word: other, Similarity: Cosine(query, m.vectors[i])})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].Word < neighbors[j].Word
	})
	if len(neighbors) > n {
		neighbors = neighbors[:n]
	}
	return neighbors, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
