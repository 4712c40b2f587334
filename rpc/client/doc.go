// Package client implements the dDoc client: a request executor that talks to
// the nodes of a cluster, the commands it executes, and the DocumentStore that
// ties them together with the Hi-Lo id generators.
//
// Key Components:
//
//   - RequestExecutor: Sends an ICommand to the cluster. The first node is picked
//     by the read balance behavior (none, round-robin, fastest). Transport errors
//     and 5xx answers fail over to the next node and put the failed node into a
//     cool-down. Whole passes are retried with exponential backoff. When no node
//     answers, an *AllNodesUnavailableError is returned. The node list can be
//     refreshed from the cluster with UpdateTopology.
//
//   - Commands: NextHiloCommand, HiloReturnCommand, GetHiloDocumentCommand,
//     PutHiloDocumentCommand and GetTopologyCommand. Non-2xx answers become a
//     *ServerError.
//
//   - NewHiloRangeClient: The hilo.IRangeClient on top of the executor. A 409
//     answer becomes a *hilo.ConflictError.
//
//   - DocumentStore: Owns conventions, executor and the generators of all
//     databases. Close returns the unused ranges before the transport is closed.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{"A=http://localhost:8080", "B=http://localhost:8081"},
//	  Database:      "shop",
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	s, err := client.NewDocumentStore(config, http.NewHttpClientTransport(), nil)
//	if err != nil {
//	  return err
//	}
//	defer s.Close(context.Background())
//
//	_ = s.Initialize(ctx)
//	id, err := s.GenerateDocumentID(ctx, "", &User{}) // users/1-A
//
// Thread Safety:
//
//	All types are safe for concurrent use from multiple goroutines.
package client
