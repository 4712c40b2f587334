// Package rpc contains the client/server layer of dDoc. Clients reserve Hi-Lo
// ranges and manage counter documents on the server over HTTP.
//
// The package is organized into several subpackages:
//
//   - common: Wire types shared by client and server (range requests, counter
//     documents, topology, error responses), configuration structures and logging.
//
//   - transport: Network communication abstractions with an HTTP implementation.
//
//   - serializer: Body encodings (JSON, MessagePack, GOB), selected by content type.
//
//   - client: The document store, its request executor with failover and read
//     balancing, and the commands it sends.
//
//   - server: The HTTP server that routes requests to the counter stores of each database.
package rpc
