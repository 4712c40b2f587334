package server

import (
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"net/http"
)

// request is a decoded request addressed to one database
type request struct {
	database string
	http     *http.Request
	body     []byte
	codec    serializer.IRPCSerializer
}

// decode deserializes the request body into v
func (r *request) decode(v any) error {
	if len(r.body) == 0 {
		return store.NewError(store.RetCInvalidOperation, "request body is empty")
	}
	if err := r.codec.Deserialize(r.body, v); err != nil {
		return store.NewError(store.RetCInvalidOperation, "failed to deserialize request: "+err.Error())
	}
	return nil
}

// response is the status code and body written back to the client.
// A nil body writes no content.
type response struct {
	status int
	body   any
}

// IRPCServerAdapter maps the HTTP routes of one resource onto a counter store
type IRPCServerAdapter interface {
	// Routes returns the handled patterns with their handler
	Routes() map[string]AdapterHandleFunc
}

// AdapterHandleFunc handles a request against the store of the addressed database.
// Errors are translated into an ErrorResponse, *store.Error codes select the status.
type AdapterHandleFunc func(req *request, db store.ICounterStore) (response, error)
