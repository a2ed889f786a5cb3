package index

import (
	"context"

	"github.com/poiesic/corpusvec/core"
)

// Request selects one page of documents from the index.
type Request struct {
	Query  string   // Query filter, e.g. "*:*"
	Start  int      // Offset of the first document
	Rows   int      // Number of documents to return
	Fields []string // Field projection; nil returns every stored field
}

// Conn is a single connection to a remote document index.
// A Conn is used for one attempt and closed afterwards.
type Conn interface {
	// Count returns the total number of documents matching query.
	Count(ctx context.Context, query string) (int, error)

	// Search returns the page of documents selected by req, in index order.
	Search(ctx context.Context, req Request) ([]core.Document, error)

	// Close releases the connection.
	Close() error
}

// Dialer opens fresh connections to a remote document index.
// Implementations must be safe for concurrent use.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
