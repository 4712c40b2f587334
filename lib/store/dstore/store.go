package dstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/dstore/internal"
	jsoniter "github.com/json-iterator/go"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

var (
	retries = 5
	log     = logger.GetLogger("store")
	json    = jsoniter.ConfigCompatibleWithStandardLibrary
)

// storeImpl is the concrete implementation of the distributed counter store.
// It encapsulates a Dragonboat NodeHost which is used to communicate with the state machine.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// NewDistributedStore creates a new distributed counter store which uses raft consensus to ensure strict linearizability
// across multiple nodes. The shard must have been started with CreateStateMachineFactory.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) store.ICounterStore {
	cs := nh.GetNoOPSession(shardID)
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		cs:      cs,
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// write proposes a Command via SyncPropose and decodes the JSON payload of a successful result into out.
func (s *storeImpl) write(cmd internal.Command, out any) error {
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		res, err := s.nh.SyncPropose(ctx, s.cs, cmd.Serialize())
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}
		if err != nil {
			return store.NewError(store.RetCInternalError, err.Error())
		}
		return decodeResult(res, out)
	}
	return store.NewError(store.RetCInternalError, "timeout")
}

// decodeResult converts a state machine result back into a value or a *store.Error.
func decodeResult(res sm.Result, out any) error {
	switch store.RetCode(res.Value) {
	case store.RetCSuccess:
		if err := json.Unmarshal(res.Data, out); err != nil {
			return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to decode result: %v", err))
		}
		return nil
	case store.RetCConflict:
		var current store.Document
		if err := json.Unmarshal(res.Data, &current); err != nil {
			return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to decode conflict: %v", err))
		}
		return store.NewConflictError(current)
	default:
		return store.NewError(store.RetCode(res.Value), string(res.Data))
	}
}

// read is a generic helper function that queries the state machine
// and attempts to convert the response into the expected type R.
//
// This function uses the SyncRead function (dragonboat) by default to Query the state machine.
// If linearizability is not required, the stale parameter can be set to true to use the faster StaleRead function.
func read[R any](r *storeImpl, q internal.Query, stale bool) (R, error) {
	var zero R
	for i := 0; i < retries; i++ {
		var res interface{}
		var err error

		if stale {
			res, err = r.nh.StaleRead(r.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			res, err = r.nh.SyncRead(ctx, r.shardID, q)
			cancel()
		}

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(r.timeout / 10)
			continue
		}

		if err != nil {
			var storeErr *store.Error
			if errors.As(err, &storeErr) {
				return zero, storeErr
			}
			return zero, store.NewError(store.RetCInternalError, err.Error())
		}

		casted, ok := res.(R)
		if !ok {
			return zero, store.NewError(store.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, store.NewError(store.RetCInternalError, "timeout")
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) NextRange(args store.NextRangeArgs) (store.RangeResult, error) {
	at := args.At
	if at.IsZero() {
		at = time.Now()
	}
	var res store.RangeResult
	err := s.write(internal.Command{
		Type:     internal.CommandTNextRange,
		Key:      args.Tag,
		Capacity: args.Capacity,
		Max:      args.LastMax,
		At:       at.UnixNano(),
		Token:    args.LastToken,
	}, &res)
	return res, err
}

func (s *storeImpl) ReturnRange(args store.ReturnRangeArgs) (bool, error) {
	var at int64
	if !args.LastRangeAt.IsZero() {
		at = args.LastRangeAt.UnixNano()
	}
	var applied bool
	err := s.write(internal.Command{
		Type: internal.CommandTReturnRange,
		Key:  args.Tag,
		Low:  args.Low,
		High: args.High,
		At:   at,
	}, &applied)
	return applied, err
}

func (s *storeImpl) GetDocument(id string) (store.Document, bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type: internal.QueryTGet,
		Key:  id,
	}, false)
	if err != nil {
		return store.Document{}, false, err
	}
	return res.Document, res.Ok, nil
}

func (s *storeImpl) PutDocument(args store.PutArgs) (store.Document, error) {
	var doc store.Document
	err := s.write(internal.Command{
		Type:  internal.CommandTPut,
		Key:   args.ID,
		Max:   args.Max,
		Token: args.ExpectedToken,
	}, &doc)
	return doc, err
}

// Close does not stop the shard, the node host is owned by the server.
func (s *storeImpl) Close() error {
	return nil
}
