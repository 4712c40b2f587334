package hilo

import (
	"context"
	"time"
)

// NextRangeRequest asks the server for the next range of a collection tag.
type NextRangeRequest struct {
	Tag      string
	Capacity int64
	// LastMax is the high end of the last range this generator received.
	// The server never grants values at or below it.
	LastMax int64
	// LastToken is the counter document token observed with the last grant.
	// Empty means unconditional.
	LastToken   string
	LastRangeAt time.Time
	Separator   string
}

// RangeGrant is the server's answer to a NextRangeRequest.
type RangeGrant struct {
	Range     RangeValue
	Prefix    string // tag + separator, e.g. "users/"
	ServerTag string // node tag, e.g. "A"
	Token     string
	RangeAt   time.Time
}

// ReturnRangeRequest hands the unused tail of a range back to the server.
type ReturnRangeRequest struct {
	Tag         string
	Low         int64
	High        int64
	LastRangeAt time.Time
}

// IRangeClient is the server side of the Hi-Lo protocol as seen by the generators.
//
// NextRange returns a *ConflictError if LastToken is stale. Any other error is
// passed through unchanged to the callers of the generator.
type IRangeClient interface {
	NextRange(ctx context.Context, database string, req NextRangeRequest) (RangeGrant, error)
	ReturnRange(ctx context.Context, database string, req ReturnRangeRequest) error
}
