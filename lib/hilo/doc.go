// Package hilo generates unique document IDs on the client without a server round
// trip per ID.
//
// The server keeps one counter document per collection tag. A Generator asks the
// server for a range of values, hands them out locally and only talks to the server
// again when the range runs out. The range size starts at Options.Capacity (32) and
// doubles with every exhausted range, so busy collections need fewer round trips.
//
// Key Components:
//
//   - RangeValue: an inclusive interval [Low, High] granted by the server.
//
//   - Generator: one per database and collection tag. NextID takes a value from the
//     current range without locking. When the range is exhausted exactly one fetch is
//     in flight and all callers wait for it. GenerateDocumentID formats the value as
//     {prefix}{id}-{serverTag}, e.g. "users/65-A".
//
//   - MultiDatabaseGenerator: a registry of generators keyed by database and tag, with
//     the tag derived from the entity type through conventions.Conventions.
//
//   - IRangeClient: the server protocol (next range, return range). The rpc client
//     package provides the implementation used by document stores.
//
// Server Protocol:
//
//	A next-range request carries the high end of the previous range (LastMax) and the
//	token of the counter document observed with it (LastToken). The server grants
//	values above max(counter, LastMax), so a counter lowered by somebody else never
//	leads to duplicates. If the token is stale the server answers with a conflict and
//	the generator retries with the fresh token. Conflicts never reach the caller.
//
//	On shutdown ReturnUnusedRange sends [next, High] back. The server lowers the counter
//	only if it still equals High, which makes the return idempotent.
//
// Usage:
//
//	g, err := hilo.NewGenerator(client, "shop", "users", nil)
//	if err != nil { ... }
//	id, err := g.GenerateDocumentID(ctx) // "users/1-A"
//	...
//	_ = g.ReturnUnusedRange(ctx)
//
// Thread Safety:
//
//	All types are safe for concurrent use.
package hilo
