package transport

import (
	"context"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"net/http"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IRPCServerTransport is the interface for the RPC server transport layer
type IRPCServerTransport interface {
	// Handle registers a handler for a method and path pattern,
	// e.g. "POST /databases/{database}/hilo/next"
	Handle(pattern string, handler http.HandlerFunc)
	// Handler returns the routing handler with all registered patterns
	Handler() http.Handler
	// Listen starts the transport layer and blocks until it is shut down
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting requests and waits for running ones
	Shutdown(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// Request is a single request to one server node
type Request struct {
	Method      string
	URL         string
	ContentType string
	Body        []byte
}

// Response is the answer of a server node. Non-2xx status codes are not errors
// on the transport level.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response.
	// An error means the node could not be reached.
	Send(ctx context.Context, req *Request) (*Response, error)
	// Close closes the transport connection
	Close() error
}
