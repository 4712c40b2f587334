// Package internal provides the wire format between the dstore client and the
// replicated counter state machine.
//
//   - Command: write operations (NextRange, ReturnRange, Put). Commands are serialized,
//     proposed to the RAFT cluster and applied by the state machine on every node.
//
//   - Query: read operations (Get, Len). Queries are executed locally on the state
//     machine and are never serialized.
//
// Command Format:
//
//	- 1 byte: Command type
//	- 8 bytes: Capacity (int64, big endian)
//	- 8 bytes: Max (int64, big endian)
//	- 8 bytes: Low (int64, big endian)
//	- 8 bytes: High (int64, big endian)
//	- 8 bytes: At, unix nanoseconds (int64, big endian)
//	- 4 bytes: Key length (uint32, big endian)
//	- N bytes: Key
//	- M bytes: Token (optional, the rest of the entry)
//
// The proposing node fills in At, so applying a command never reads the local
// clock and all replicas end up with identical documents.
package internal
