package internal

import "github.com/ValentinKolb/dDoc/lib/store"

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTGet QueryType = iota // Retrieve a counter document by ID.
	QueryTLen                  // Number of counter documents.
)

func (q QueryType) String() string {
	switch q {
	case QueryTGet:
		return "Get"
	case QueryTLen:
		return "Len"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or StaleRead
type Query struct {
	Type QueryType // The type of Query to perform.
	Key  string    // The document ID (empty for QueryTLen).
}

// QueryResult is the result of a QueryTGet operation.
type QueryResult struct {
	Ok       bool
	Document store.Document
}
