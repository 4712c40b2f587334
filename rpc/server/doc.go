// Package server implements the dDoc HTTP server: the peer of the Hi-Lo
// protocol and the home of the counter documents.
//
// Routes:
//
//	POST /databases/{database}/hilo/next     NextRangeRequest -> NextRangeResponse, 409 on a stale token
//	POST /databases/{database}/hilo/return   ReturnRangeRequest -> 204
//	GET  /databases/{database}/docs?id=      -> HiloDocument, 404 if missing
//	PUT  /databases/{database}/docs?id=      HiloDocument (Token = expected token) -> HiloDocument, 409
//	GET  /cluster/topology                   -> Topology
//	GET  /metrics                            Prometheus text format
//
// Bodies are encoded with the codec named by the request Content-Type and the
// answer uses the same codec. Errors are always an ErrorResponse.
//
// Key Components:
//
//   - IRPCServerAdapter: Maps the routes of one resource onto a store.ICounterStore.
//     NewHiloServerAdapter serves the two Hi-Lo endpoints, NewDocumentServerAdapter
//     the counter documents.
//
//   - RPCServer: Creates one counter store per configured database (local or raft
//     backed), wraps the adapters with database lookup, codec selection and error
//     mapping, and registers everything at the transport. Unknown databases are
//     created as local stores on first use if AutoCreateDatabases is set.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Databases: []common.ServerDatabase{
//	    {Name: "shop", Type: common.DatabaseTypeLocal},
//	    {Name: "orders", Type: common.DatabaseTypeDistributed, ShardID: 100},
//	  },
//	  NodeTag: "A",
//	  Endpoint: "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	s := server.NewRPCServer(config, http.NewHttpServerTransport())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("server failed: %v", err)
//	}
package server
