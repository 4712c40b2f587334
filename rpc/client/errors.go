package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"net/http"
	"strings"
)

var (
	// ErrAllNodesUnavailable matches every *AllNodesUnavailableError.
	ErrAllNodesUnavailable = errors.New("all nodes are unavailable")
	// ErrStoreClosed is returned by every DocumentStore operation after Close.
	ErrStoreClosed = errors.New("document store is closed")
	// ErrNoEndpoints is returned when a client is configured without any endpoint.
	ErrNoEndpoints = errors.New("no endpoints configured")
)

// AllNodesUnavailableError is returned when no node answered a request,
// after all retries. Err holds the failure of every node of the last pass.
type AllNodesUnavailableError struct {
	Attempts int
	Err      error
}

func (e *AllNodesUnavailableError) Error() string {
	return fmt.Sprintf("all nodes are unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *AllNodesUnavailableError) Is(target error) bool {
	return target == ErrAllNodesUnavailable
}

func (e *AllNodesUnavailableError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx answer of a server node.
type ServerError struct {
	StatusCode int
	Type       common.ErrorType
	Message    string
	// Max and Token are set for conflicts
	Max   int64
	Token string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// IsConflict reports whether the server rejected a stale concurrency token.
func (e *ServerError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict || e.Type == common.ErrTConflict
}

// newServerError decodes an ErrorResponse body. Bodies that are no ErrorResponse
// (e.g. from a proxy) end up in Message.
func newServerError(status int, body []byte, s serializer.IRPCSerializer) *ServerError {
	var resp common.ErrorResponse
	if len(body) > 0 && s.Deserialize(body, &resp) == nil && (resp.Message != "" || resp.Type != common.ErrTUnknown) {
		return &ServerError{
			StatusCode: status,
			Type:       resp.Type,
			Message:    resp.Message,
			Max:        resp.Max,
			Token:      resp.Token,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &ServerError{StatusCode: status, Message: msg}
}

// nodeError marks a failure of a single node that allows to fail over to the next one
type nodeError struct {
	node ServerNode
	err  error
}

func (e *nodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.node, e.err)
}

func (e *nodeError) Unwrap() error {
	return e.err
}
