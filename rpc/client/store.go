package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dDoc/lib/conventions"
	"github.com/ValentinKolb/dDoc/lib/hilo"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"sync"
	"sync/atomic"
)

// DocumentStore is the entry point of the client. It owns the request executor
// and the Hi-Lo id generators of all databases.
type DocumentStore struct {
	config      common.ClientConfig
	conventions *conventions.Conventions
	executor    *RequestExecutor
	generator   *hilo.MultiDatabaseGenerator

	// ops is held shared by every operation and exclusively by Close
	ops        sync.RWMutex
	closed     atomic.Bool
	mu         sync.Mutex
	afterClose []func()
}

// NewDocumentStore creates a store for the configured cluster.
// A nil conv uses conventions.DefaultConventions.
func NewDocumentStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	conv *conventions.Conventions,
) (*DocumentStore, error) {
	if config.Database == "" {
		return nil, fmt.Errorf("%w: default database must not be empty", hilo.ErrInvalidArgument)
	}
	if conv == nil {
		conv = conventions.DefaultConventions()
	}

	opts := hilo.DefaultOptions()
	if config.HiloCapacity > 0 {
		opts.Capacity = config.HiloCapacity
	}
	if config.HiloMaxCapacity > 0 {
		opts.MaxCapacity = config.HiloMaxCapacity
	}

	executor, err := NewRequestExecutor(config, transport)
	if err != nil {
		return nil, err
	}

	generator, err := hilo.NewMultiDatabaseGenerator(NewHiloRangeClient(executor), conv, config.Database, opts)
	if err != nil {
		_ = executor.Close()
		return nil, err
	}

	return &DocumentStore{
		config:      config,
		conventions: conv,
		executor:    executor,
		generator:   generator,
	}, nil
}

// Initialize fetches the cluster topology unless topology updates are disabled.
// A failure is logged, the configured endpoints stay in use.
func (s *DocumentStore) Initialize(ctx context.Context) error {
	if !s.enter() {
		return ErrStoreClosed
	}
	defer s.ops.RUnlock()
	if s.config.DisableTopologyUpdates {
		return nil
	}
	if err := s.executor.UpdateTopology(ctx); err != nil {
		Logger.Warningf("using configured endpoints: %v", err)
	}
	return nil
}

// Database returns the default database
func (s *DocumentStore) Database() string { return s.config.Database }

// Conventions returns the conventions used to name collections
func (s *DocumentStore) Conventions() *conventions.Conventions { return s.conventions }

// Executor returns the request executor
func (s *DocumentStore) Executor() *RequestExecutor { return s.executor }

// HiloGenerator returns the id generator registry
func (s *DocumentStore) HiloGenerator() *hilo.MultiDatabaseGenerator { return s.generator }

// GenerateDocumentID returns a new id like users/65-A for the collection of entity.
// An empty database selects the default database.
func (s *DocumentStore) GenerateDocumentID(ctx context.Context, database string, entity any) (string, error) {
	if !s.enter() {
		return "", ErrStoreClosed
	}
	defer s.ops.RUnlock()
	return s.generator.GenerateDocumentID(ctx, database, entity)
}

// GenerateDocumentIDForTag is GenerateDocumentID for a known collection tag
func (s *DocumentStore) GenerateDocumentIDForTag(ctx context.Context, database, tag string) (string, error) {
	if !s.enter() {
		return "", ErrStoreClosed
	}
	defer s.ops.RUnlock()
	return s.generator.GenerateDocumentIDForTag(ctx, database, tag)
}

// GetHiloDocument reads the counter document of a collection tag
func (s *DocumentStore) GetHiloDocument(ctx context.Context, database, tag string) (common.HiloDocument, bool, error) {
	if !s.enter() {
		return common.HiloDocument{}, false, ErrStoreClosed
	}
	defer s.ops.RUnlock()
	cmd := NewGetHiloDocumentCommand(s.database(database), tag)
	if err := s.executor.Execute(ctx, cmd); err != nil {
		return common.HiloDocument{}, false, err
	}
	return cmd.Result, cmd.Found, nil
}

// PutHiloDocument overwrites the counter of a collection tag.
// A non-empty expectedToken makes the write conditional.
func (s *DocumentStore) PutHiloDocument(ctx context.Context, database, tag string, value int64, expectedToken string) (common.HiloDocument, error) {
	if !s.enter() {
		return common.HiloDocument{}, ErrStoreClosed
	}
	defer s.ops.RUnlock()
	cmd := NewPutHiloDocumentCommand(s.database(database), tag, value, expectedToken)
	if err := s.executor.Execute(ctx, cmd); err != nil {
		return common.HiloDocument{}, err
	}
	return cmd.Result, nil
}

// OnAfterClose registers fn to run once the store is closed
func (s *DocumentStore) OnAfterClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterClose = append(s.afterClose, fn)
}

// Close waits for running operations, returns the unused ranges of all generators,
// waits for the returns to finish and closes the transport. Failed returns are
// logged only. Operations started after Close fail with ErrStoreClosed.
// Closing a closed store is a no-op.
func (s *DocumentStore) Close(ctx context.Context) error {
	s.ops.Lock()
	wasClosed := s.closed.Swap(true)
	s.ops.Unlock()
	if wasClosed {
		return nil
	}

	s.generator.ReturnUnusedRange(ctx)
	err := s.executor.Close()

	s.mu.Lock()
	hooks := s.afterClose
	s.afterClose = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return err
}

// enter registers a running operation. If it returns true the caller must call s.ops.RUnlock.
func (s *DocumentStore) enter() bool {
	s.ops.RLock()
	if s.closed.Load() {
		s.ops.RUnlock()
		return false
	}
	return true
}

func (s *DocumentStore) database(database string) string {
	if database == "" {
		return s.config.Database
	}
	return database
}
