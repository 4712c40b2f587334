package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/dstore"
	"github.com/ValentinKolb/dDoc/lib/store/lstore"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
	"io"
	"net/http"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

// maxBodyBytes limits the size of request bodies, all messages are tiny
const maxBodyBytes = 1 << 20

// NewRPCServer creates a new RPC server
// It takes a config and a transport as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:    config,
		transport: transport,
		databases: xsync.NewMapOf[string, store.ICounterStore](),
		adapters: []IRPCServerAdapter{
			NewHiloServerAdapter(config.NodeTag),
			NewDocumentServerAdapter(),
		},
	}
}

// RPCServer serves the Hi-Lo protocol and the counter documents of all configured databases
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	adapters  []IRPCServerAdapter
	databases *xsync.MapOf[string, store.ICounterStore]
	nodeHost  *dragonboat.NodeHost
}

// Init creates the databases and registers all routes at the transport
func (s *RPCServer) Init() error {
	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	// Only create the NodeHost if we have raft backed databases
	if s.config.HasDistributedDatabase() {
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nodeHost
	}

	// Configure the timeout for the distributed store
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	for _, db := range s.config.Databases {
		switch db.Type {
		case common.DatabaseTypeLocal:
			s.databases.Store(db.Name, lstore.NewLocalStore())
			Logger.Infof("created local store for database %s", db.Name)

		case common.DatabaseTypeDistributed:
			if err := s.nodeHost.StartConcurrentReplica(
				s.config.ClusterMembers, false,
				dstore.CreateStateMachineFactory(),
				s.config.ToDragonboatConfig(db.ShardID),
			); err != nil {
				return fmt.Errorf("failed to start shard %d for database %s: %w", db.ShardID, db.Name, err)
			}
			s.databases.Store(db.Name, dstore.NewDistributedStore(s.nodeHost, db.ShardID, timeout))
			Logger.Infof("created distributed store for database %s on shard %d", db.Name, db.ShardID)

		default:
			return fmt.Errorf("invalid database type %q for database %s", db.Type, db.Name)
		}
	}

	// Register routes
	for _, adapter := range s.adapters {
		for pattern, handle := range adapter.Routes() {
			s.transport.Handle(pattern, s.databaseHandler(pattern, handle))
		}
	}
	s.transport.Handle("GET /cluster/topology", s.handleTopology)
	s.transport.Handle("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(w)
	})

	Logger.Infof("dDoc setup completed successfully")
	return nil
}

// Serve initializes the server and starts the transport layer.
// It blocks until the transport is shut down.
func (s *RPCServer) Serve() error {
	if err := s.Init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Handler returns the HTTP handler of the server, Init must have been called
func (s *RPCServer) Handler() http.Handler {
	return s.transport.Handler()
}

// Close shuts down the transport and releases all databases
func (s *RPCServer) Close(ctx context.Context) error {
	err := s.transport.Shutdown(ctx)

	s.databases.Range(func(name string, db store.ICounterStore) bool {
		if cerr := db.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close database %s: %w", name, cerr))
		}
		return true
	})
	s.databases.Clear()

	if s.nodeHost != nil {
		s.nodeHost.Close()
		s.nodeHost = nil
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// database returns the store of a database, creating a local one if enabled
func (s *RPCServer) database(name string) (store.ICounterStore, bool) {
	if db, ok := s.databases.Load(name); ok {
		return db, true
	}
	if !s.config.AutoCreateDatabases {
		return nil, false
	}
	db, loaded := s.databases.LoadOrCompute(name, func() store.ICounterStore {
		return lstore.NewLocalStore()
	})
	if !loaded {
		Logger.Infof("created local store for database %s on first use", name)
	}
	return db, true
}

// databaseHandler wraps an adapter handler with codec selection, database lookup and error mapping
func (s *RPCServer) databaseHandler(route string, handle AdapterHandleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		codec, ok := serializer.ByContentType(r.Header.Get("Content-Type"))
		if !ok {
			status := s.writeError(w, serializer.NewJSONSerializer(), http.StatusUnsupportedMediaType, &common.ErrorResponse{
				Type:    common.ErrTBadRequest,
				Message: fmt.Sprintf("unsupported content type %q", r.Header.Get("Content-Type")),
			})
			observe(route, status, start)
			return
		}

		name := r.PathValue("database")
		db, ok := s.database(name)
		if !ok {
			status := s.writeError(w, codec, http.StatusNotFound, &common.ErrorResponse{
				Type:    common.ErrTDatabaseDoesNotExist,
				Message: fmt.Sprintf("database %s does not exist", name),
			})
			observe(route, status, start)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			status := s.writeError(w, codec, http.StatusBadRequest, &common.ErrorResponse{
				Type:    common.ErrTBadRequest,
				Message: fmt.Sprintf("failed to read request body: %v", err),
			})
			observe(route, status, start)
			return
		}

		resp, err := handle(&request{database: name, http: r, body: body, codec: codec}, db)
		var status int
		if err != nil {
			status = s.writeStoreError(w, codec, err)
		} else {
			status = s.write(w, codec, resp.status, resp.body)
		}
		observe(route, status, start)
	}
}

func (s *RPCServer) handleTopology(w http.ResponseWriter, r *http.Request) {
	codec, ok := serializer.ByContentType(r.Header.Get("Content-Type"))
	if !ok {
		codec = serializer.NewJSONSerializer()
	}

	topology := common.Topology{Etag: 1, Nodes: []common.TopologyNode{}}
	tags := make([]string, 0, len(s.config.ClusterNodes))
	for tag := range s.config.ClusterNodes {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		topology.Nodes = append(topology.Nodes, common.TopologyNode{URL: s.config.ClusterNodes[tag], ClusterTag: tag})
	}

	s.write(w, codec, http.StatusOK, &topology)
}

// writeStoreError maps an error returned by a store onto an ErrorResponse
func (s *RPCServer) writeStoreError(w http.ResponseWriter, codec serializer.IRPCSerializer, err error) int {
	var storeErr *store.Error
	if !errors.As(err, &storeErr) {
		Logger.Errorf("request failed: %v", err)
		return s.writeError(w, codec, http.StatusInternalServerError, &common.ErrorResponse{Type: common.ErrTInternal, Message: err.Error()})
	}

	switch storeErr.Code {
	case store.RetCInvalidOperation:
		return s.writeError(w, codec, http.StatusBadRequest, &common.ErrorResponse{Type: common.ErrTBadRequest, Message: storeErr.Msg})
	case store.RetCNotFound:
		return s.writeError(w, codec, http.StatusNotFound, &common.ErrorResponse{Type: common.ErrTNotFound, Message: storeErr.Msg})
	case store.RetCConflict:
		resp := &common.ErrorResponse{Type: common.ErrTConflict, Message: storeErr.Msg}
		if storeErr.Current != nil {
			resp.Max = storeErr.Current.Max
			resp.Token = storeErr.Current.Token
		}
		return s.writeError(w, codec, http.StatusConflict, resp)
	default:
		Logger.Errorf("request failed: %v", err)
		return s.writeError(w, codec, http.StatusInternalServerError, &common.ErrorResponse{Type: common.ErrTInternal, Message: storeErr.Msg})
	}
}

func (s *RPCServer) writeError(w http.ResponseWriter, codec serializer.IRPCSerializer, status int, resp *common.ErrorResponse) int {
	return s.write(w, codec, status, resp)
}

// write serializes body with the codec of the request and returns the written status
func (s *RPCServer) write(w http.ResponseWriter, codec serializer.IRPCSerializer, status int, body any) int {
	if body == nil {
		w.WriteHeader(status)
		return status
	}

	data, err := codec.Serialize(body)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		http.Error(w, "failed to serialize response", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", codec.ContentType())
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		Logger.Warningf("failed to write response: %v", err)
	}
	return status
}
