// Package lstore implements a local, in-memory, single-node counter store based on the
// store.ICounterStore interface. It wraps a store.Table behind a mutex and manages the
// write index itself. Data is not persisted between process restarts.
//
// Implementation Details:
//
//   - Write Index Management: The store maintains an atomic counter that increments with
//     each write operation. The index becomes the token of the written counter document,
//     so every write produces a token that was never handed out before.
//
//   - Serialization: All operations run under one mutex. The Hi-Lo commands are tiny and
//     a database rarely has more than a few dozen counter documents, so a single lock
//     does not limit throughput in practice.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	res, err := s.NextRange(store.NextRangeArgs{Tag: "users", Capacity: 32})
//	// res.Low = 1, res.High = 32
//
// For multi-node deployments use the dstore package, which replicates the same
// table through RAFT.
package lstore
