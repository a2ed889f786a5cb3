// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analysis

import (
	"context"
	"iter"
	"log/slog"
	"runtime"
	"strings"
	"unicode"

	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/stream"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of documents tokenized together.
	DefaultBatchSize = 1000

	// DefaultChunkSize is the passage length below which the splitter stops
	// merging. One yields a passage per sentence.
	DefaultChunkSize = 1
)

// sentenceSeparators are tried in order by the recursive splitter.
var sentenceSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", "; "}

// Splitter splits text into passages. textsplitter.TextSplitter satisfies it.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// SentenceTokenizer yields one token list per sentence of a text field.
type SentenceTokenizer struct {
	field     string
	batchSize int
	jobs      int
	lowercase bool
	splitter  Splitter
	logger    *slog.Logger
}

var _ stream.Analyzer[[]string] = (*SentenceTokenizer)(nil)

// Option configures a SentenceTokenizer.
type Option func(*SentenceTokenizer)

// WithBatchSize sets how many documents are read before a batch is
// tokenized. Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(t *SentenceTokenizer) {
		if size > 0 {
			t.batchSize = size
		}
	}
}

// WithJobs sets the number of documents tokenized concurrently.
// Default is runtime.NumCPU().
func WithJobs(jobs int) Option {
	return func(t *SentenceTokenizer) {
		if jobs > 0 {
			t.jobs = jobs
		}
	}
}

// WithChunkSize sets the target passage length in characters.
// Default is DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(t *SentenceTokenizer) {
		if size > 0 {
			t.splitter = newSplitter(size)
		}
	}
}

// WithLowercase controls case folding of tokens. Default is true.
func WithLowercase(lowercase bool) Option {
	return func(t *SentenceTokenizer) {
		t.lowercase = lowercase
	}
}

// WithSplitter replaces the passage splitter.
func WithSplitter(s Splitter) Option {
	return func(t *SentenceTokenizer) {
		if s != nil {
			t.splitter = s
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *SentenceTokenizer) {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger
	}
}

// NewSentenceTokenizer creates a tokenizer reading field from every document.
func NewSentenceTokenizer(field string, opts ...Option) (*SentenceTokenizer, error) {
	if strings.TrimSpace(field) == "" {
		return nil, ErrFieldRequired
	}

	t := &SentenceTokenizer{
		field:     field,
		batchSize: DefaultBatchSize,
		jobs:      runtime.NumCPU(),
		lowercase: true,
		splitter:  newSplitter(DefaultChunkSize),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "tokenizer", "field", field)

	return t, nil
}

func newSplitter(chunkSize int) textsplitter.RecursiveCharacter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators(sentenceSeparators),
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(0),
	)
}

// Analyze reads docs in batches and yields the sentences of each batch in
// document order. Documents without text produce nothing.
//
// Nothing is read when ctx is already canceled. Otherwise docs is drained
// to its end: the stream decides where to stop, at a batch boundary, and
// every document it yielded before that point is tokenized.
func (t *SentenceTokenizer) Analyze(ctx context.Context, docs iter.Seq[core.Document]) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		if ctx.Err() != nil {
			return
		}

		batch := make([]core.Document, 0, t.batchSize)
		for doc := range docs {
			batch = append(batch, doc)
			if len(batch) == t.batchSize {
				if !t.flush(batch, yield) {
					return
				}
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			t.flush(batch, yield)
		}
	}
}

// flush tokenizes batch concurrently and yields the results in order.
// It reports false when the consumer stopped.
func (t *SentenceTokenizer) flush(batch []core.Document, yield func([]string) bool) bool {
	results := make([][][]string, len(batch))

	var g errgroup.Group
	g.SetLimit(t.jobs)
	for i, doc := range batch {
		g.Go(func() error {
			sentences, err := t.Sentences(doc.Text(t.field))
			if err != nil {
				t.logger.Warn("skipping document", "err", err)
				return nil
			}
			results[i] = sentences
			return nil
		})
	}
	_ = g.Wait()

	for _, sentences := range results {
		for _, sentence := range sentences {
			if !yield(sentence) {
				return false
			}
		}
	}
	return true
}

// Sentences splits text into passages and tokenizes each one.
// Passages without tokens are dropped.
func (t *SentenceTokenizer) Sentences(text string) ([][]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	passages, err := t.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	sentences := make([][]string, 0, len(passages))
	for _, passage := range passages {
		if tokens := Tokenize(passage, t.lowercase); len(tokens) > 0 {
			sentences = append(sentences, tokens)
		}
	}
	return sentences, nil
}

// Tokenize splits text into word tokens. Letters, digits and inner hyphens
// or apostrophes form words; everything else separates them.
func Tokenize(text string, lowercase bool) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})

	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-'")
		if f == "" {
			continue
		}
		if lowercase {
			f = strings.ToLower(f)
		}
		tokens = append(tokens, f)
	}
	return tokens
}
