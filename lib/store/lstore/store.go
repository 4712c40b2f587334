package lstore

import (
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dDoc/lib/store"
)

type storeImpl struct {
	mu    sync.Mutex
	table *store.Table
	index atomic.Uint64
}

// NewLocalStore creates a new local counter store.
// This store implementation is not distributed and only works on a single node.
func NewLocalStore() store.ICounterStore {
	return &storeImpl{
		table: store.NewTable(),
	}
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each write operation has a unique index.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) NextRange(args store.NextRangeArgs) (store.RangeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.NextRange(args, s.incAndGetIndex())
}

func (s *storeImpl) ReturnRange(args store.ReturnRangeArgs) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.ReturnRange(args, s.incAndGetIndex())
}

func (s *storeImpl) GetDocument(id string) (store.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.table.Get(id)
	return doc, ok, nil
}

func (s *storeImpl) PutDocument(args store.PutArgs) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Put(args, s.incAndGetIndex())
}

func (s *storeImpl) Close() error {
	return nil
}
