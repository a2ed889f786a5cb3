// Package mock provides an in-memory document index for tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/index"
)

// Index is a test double for a remote document index.
// It allows custom failure injection via function fields.
type Index struct {
	// SearchFunc is called before every Search if set.
	// A non-nil error fails the search.
	SearchFunc func(req index.Request) error

	// CountFunc is called before every Count if set.
	CountFunc func(query string) error

	// DialFunc is called before every Dial if set.
	DialFunc func() error

	docs []core.Document

	mu       sync.Mutex
	dials    int
	open     int
	searches []index.Request
}

var _ index.Dialer = (*Index)(nil)

// NewIndex creates an index serving docs in order.
func NewIndex(docs []core.Document) *Index {
	return &Index{docs: docs}
}

// NewCorpus creates an index of n documents with "pmid" and "abstractText" fields.
// The abstract of document i mentions the words "protein" and "gene" and its own id.
func NewCorpus(n int) *Index {
	docs := make([]core.Document, n)
	for i := range docs {
		docs[i] = core.Document{
			"pmid":         i,
			"abstractText": fmt.Sprintf("Protein kinase binds gene promoter. Document number d%d regulates expression.", i),
		}
	}
	return NewIndex(docs)
}

// Dial opens a connection to the index.
func (m *Index) Dial(ctx context.Context) (index.Conn, error) {
	if m.DialFunc != nil {
		if err := m.DialFunc(); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dials++
	m.open++
	return &conn{index: m}, nil
}

// Dials returns the number of connections opened so far.
func (m *Index) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// Open returns the number of connections not yet closed.
func (m *Index) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Searches returns a copy of every successful search request, in arrival order.
func (m *Index) Searches() []index.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]index.Request(nil), m.searches...)
}

// Reset clears recorded calls and injected behavior.
func (m *Index) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dials = 0
	m.open = 0
	m.searches = nil
	m.SearchFunc = nil
	m.CountFunc = nil
	m.DialFunc = nil
}

type conn struct {
	index  *Index
	closed bool
}

func (c *conn) Count(ctx context.Context, query string) (int, error) {
	if c.index.CountFunc != nil {
		if err := c.index.CountFunc(query); err != nil {
			return 0, err
		}
	}
	return len(c.index.docs), nil
}

func (c *conn) Search(ctx context.Context, req index.Request) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.index.SearchFunc != nil {
		if err := c.index.SearchFunc(req); err != nil {
			return nil, err
		}
	}

	c.index.mu.Lock()
	c.index.searches = append(c.index.searches, req)
	c.index.mu.Unlock()

	start, end := req.Start, req.Start+req.Rows
	if end > len(c.index.docs) {
		end = len(c.index.docs)
	}
	if start >= end {
		return []core.Document{}, nil
	}
	out := make([]core.Document, end-start)
	copy(out, c.index.docs[start:end])
	return out, nil
}

func (c *conn) Close() error {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.index.open--
	}
	return nil
}
