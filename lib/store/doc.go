// Package store provides the server-side storage of Hi-Lo counter documents.
//
// Every collection tag of a database owns one counter document (Raven/Hilo/{tag})
// holding the highest value handed out so far. Clients never write the document
// directly. They ask for the next range, and the store advances the counter
// atomically, or they return the unused tail of their last range.
//
// Key Components:
//
//   - ICounterStore: The interface shared by all implementations. It is used by the
//     RPC server to serve the Hi-Lo endpoints of a database.
//
//   - Table: The pure apply logic. A Table is deterministic: given the same commands
//     and write indexes it always produces the same documents and tokens, which makes
//     it usable inside a replicated state machine.
//
//   - Error: Typed errors with return codes. A conflict error carries the current
//     document so the caller can retry with the fresh token.
//
// Concurrency Token:
//
//	Each write stores the write index of the operation as the document token. A range
//	request may carry the token observed with the previous grant. If the document was
//	written since, the request is rejected with RetCConflict and the client retries with
//	the token from the error. Requests without token are unconditional.
//
// Implementations:
//
//	- Local Store (lstore): single node, in memory.
//	  Available in the "github.com/ValentinKolb/dDoc/lib/store/lstore" package.
//
//	- Distributed Store (dstore): RAFT replicated via Dragonboat, one shard per database.
//	  Available in the "github.com/ValentinKolb/dDoc/lib/store/dstore" package.
package store
