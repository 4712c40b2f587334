// Package http implements the HTTP transport of dDoc. It provides concrete
// implementations of the transport interfaces defined in the parent package.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport on top of a pooled
//     net/http client. Every Send targets exactly one node; the response is
//     returned for any status code so the caller can decide about failover.
//
//   - httpServerTransport: Implements IRPCServerTransport with a ServeMux using
//     method and wildcard patterns. With log level debug every request is
//     logged together with its status code and duration.
//
// Thread Safety:
//
//	Both transports are safe for concurrent use. Close and Shutdown may be
//	called while requests are in flight.
package http
