// Package transport defines the interfaces for the communication between dDoc
// clients and servers. It keeps the client request executor and the server
// routes independent of the concrete transport implementation.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and sends a single request to a single node.
//     Node selection, failover and retries are done by the caller.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to the registered handlers.
package transport
