package ingest

import (
	"context"

	"github.com/agentic-research/dashlens/internal/fetch"
	"github.com/agentic-research/dashlens/internal/jsonval"
)

// Walker runs a selector against a document.
type Walker interface {
	// Query returns every sub-document the selector matches, in document order.
	Query(root jsonval.Value, selector string) ([]Match, error)
}

// Match is a single result from a query.
type Match interface {
	// Path is the normalized location of the match, e.g. $.users[0].name.
	Path() string
	// Value is the matched sub-document with its key order intact.
	Value() jsonval.Value
}

// Fetcher retrieves a document over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (jsonval.Value, error)
}
