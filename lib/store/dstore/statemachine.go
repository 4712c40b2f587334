package dstore

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// CounterStateMachine is a state machine implementation for Dragonboat RAFT.
// It applies the Hi-Lo commands of one database to a store.Table.
type CounterStateMachine struct {
	replicaID uint64
	shardID   uint64

	mu    sync.RWMutex
	table *store.Table
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host
func CreateStateMachineFactory() func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &CounterStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			table:     store.NewTable(),
		}
	}
}

// Lookup handles read-only queries.
func (fsm *CounterStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	fsm.mu.RLock()
	defer fsm.mu.RUnlock()

	switch q.Type {
	case internal.QueryTGet:
		doc, ok := fsm.table.Get(q.Key)
		return internal.QueryResult{
			Ok:       ok,
			Document: doc,
		}, nil
	case internal.QueryTLen:
		return fsm.table.Len(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}

// Update applies write commands to the table.
// The raft log index of each entry is used as write index, so the document tokens are identical on all replicas.
func (fsm *CounterStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	start := time.Now()

	fsm.mu.Lock()
	defer fsm.mu.Unlock()

	for idx, e := range entries {
		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}
			continue
		}

		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
			continue
		}

		entries[idx].Result = fsm.apply(cmd, e.Index)
	}

	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("Statemachine took long to update. Batch updated %d entries, took %.2fms:", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes a single command and encodes its outcome as a sm.Result.
// Successful results and conflicts carry a JSON payload in Data, all other errors carry the message.
func (fsm *CounterStateMachine) apply(cmd internal.Command, index uint64) sm.Result {
	var payload any
	var err error

	switch cmd.Type {
	case internal.CommandTNextRange:
		payload, err = fsm.table.NextRange(store.NextRangeArgs{
			Tag:       cmd.Key,
			Capacity:  cmd.Capacity,
			LastMax:   cmd.Max,
			LastToken: cmd.Token,
			At:        time.Unix(0, cmd.At).UTC(),
		}, index)
	case internal.CommandTReturnRange:
		var lastRangeAt time.Time
		if cmd.At != 0 {
			lastRangeAt = time.Unix(0, cmd.At).UTC()
		}
		payload, err = fsm.table.ReturnRange(store.ReturnRangeArgs{
			Tag:         cmd.Key,
			Low:         cmd.Low,
			High:        cmd.High,
			LastRangeAt: lastRangeAt,
		}, index)
	case internal.CommandTPut:
		payload, err = fsm.table.Put(store.PutArgs{
			ID:            cmd.Key,
			Max:           cmd.Max,
			ExpectedToken: cmd.Token,
		}, index)
	default:
		return sm.Result{
			Value: uint64(store.RetCInvalidOperation),
			Data:  []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type)),
		}
	}

	if err != nil {
		storeErr, ok := err.(*store.Error)
		if !ok {
			return sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(err.Error())}
		}
		if storeErr.Code == store.RetCConflict && storeErr.Current != nil {
			data, _ := json.Marshal(storeErr.Current)
			return sm.Result{Value: uint64(store.RetCConflict), Data: data}
		}
		return sm.Result{Value: uint64(storeErr.Code), Data: []byte(storeErr.Msg)}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(err.Error())}
	}
	return sm.Result{Value: uint64(store.RetCSuccess), Data: data}
}

// PrepareSnapshot captures the table while updates are paused.
func (fsm *CounterStateMachine) PrepareSnapshot() (interface{}, error) {
	fsm.mu.RLock()
	defer fsm.mu.RUnlock()

	var buf bytes.Buffer
	if err := fsm.table.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveSnapshot writes the state captured by PrepareSnapshot.
func (fsm *CounterStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	data, ok := ctx.([]byte)
	if !ok {
		return fmt.Errorf("unexpected snapshot context %T", ctx)
	}
	_, err := writer.Write(data)
	return err
}

// RecoverFromSnapshot replaces the table with the snapshot content.
func (fsm *CounterStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	table := store.NewTable()
	if err := table.Load(r); err != nil {
		return err
	}

	fsm.mu.Lock()
	fsm.table = table
	fsm.mu.Unlock()
	return nil
}

// Close performs any necessary cleanup.
func (fsm *CounterStateMachine) Close() error {
	return nil
}
