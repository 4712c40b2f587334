// Package dstore implements a distributed, fault-tolerant counter store using the
// Dragonboat RAFT consensus library. Each database is served by one RAFT shard whose
// state machine holds a store.Table.
//
// Architecture:
//
//   - Store Client: Implements store.ICounterStore. Every write is serialized into an
//     internal.Command and proposed with SyncPropose. Reads use SyncRead.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine (CounterStateMachine) that
//     applies commands to the table. The RAFT log index of an entry is used as write
//     index, so the concurrency tokens of the counter documents are the same on every
//     replica.
//
//   - Communication Protocol: Defined in the internal package.
//
// Results:
//
//	The state machine encodes each outcome as sm.Result. Value holds the store.RetCode,
//	Data holds a JSON payload for successful commands and for conflicts (the current
//	document) or the error message otherwise. The store client turns the result back
//	into a value or a *store.Error.
//
// Snapshotting and Recovery:
//
//	PrepareSnapshot serializes the table while updates are paused, SaveSnapshot writes
//	the captured bytes. RecoverFromSnapshot replaces the table. A recovered node then
//	replays the log entries committed after the snapshot.
//
// Usage:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	err = nh.StartConcurrentReplica(
//	    clusterMembers,
//	    false,
//	    dstore.CreateStateMachineFactory(),
//	    shardConfig)
//	if err != nil { ... }
//
//	s := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//
// Error Handling and Retries:
//
//	ErrSystemBusy from Dragonboat is retried after a short delay, up to five times.
//	All operations share the configured timeout.
package dstore
