package client

import (
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"net/http"
	"net/url"
)

// Request is the node independent part of an HTTP request.
// Body is serialized by the executor, a nil Body sends no content.
type Request struct {
	Method string
	URI    string
	Body   any
}

// ICommand is a single operation executed by the RequestExecutor
type ICommand interface {
	// CreateRequest builds the request for the given node
	CreateRequest(node *ServerNode) (*Request, error)
	// SetResponse is called with every answer that is no node failure (status < 500).
	// It returns an error for answers the command does not accept.
	SetResponse(status int, body []byte, s serializer.IRPCSerializer) error
}

func databaseURI(database, path string) string {
	return "/databases/" + url.PathEscape(database) + path
}

func documentURI(database, tag string) string {
	return databaseURI(database, "/docs?id="+url.QueryEscape(store.HiloDocumentID(tag)))
}

// decodeResponse accepts the expected status and decodes the body into out
func decodeResponse(status, expected int, body []byte, s serializer.IRPCSerializer, out any) error {
	if status != expected {
		return newServerError(status, body, s)
	}
	if out == nil {
		return nil
	}
	return s.Deserialize(body, out)
}

// --------------------------------------------------------------------------
// Hi-Lo Commands
// --------------------------------------------------------------------------

// NextHiloCommand asks for the next range of a collection tag
type NextHiloCommand struct {
	Database string
	Request  common.NextRangeRequest
	Result   common.NextRangeResponse
}

func NewNextHiloCommand(database string, req common.NextRangeRequest) *NextHiloCommand {
	return &NextHiloCommand{Database: database, Request: req}
}

func (c *NextHiloCommand) CreateRequest(*ServerNode) (*Request, error) {
	return &Request{Method: http.MethodPost, URI: databaseURI(c.Database, "/hilo/next"), Body: &c.Request}, nil
}

func (c *NextHiloCommand) SetResponse(status int, body []byte, s serializer.IRPCSerializer) error {
	return decodeResponse(status, http.StatusOK, body, s, &c.Result)
}

// HiloReturnCommand hands the unused tail of a range back
type HiloReturnCommand struct {
	Database string
	Request  common.ReturnRangeRequest
}

func NewHiloReturnCommand(database string, req common.ReturnRangeRequest) *HiloReturnCommand {
	return &HiloReturnCommand{Database: database, Request: req}
}

func (c *HiloReturnCommand) CreateRequest(*ServerNode) (*Request, error) {
	return &Request{Method: http.MethodPost, URI: databaseURI(c.Database, "/hilo/return"), Body: &c.Request}, nil
}

func (c *HiloReturnCommand) SetResponse(status int, body []byte, s serializer.IRPCSerializer) error {
	return decodeResponse(status, http.StatusNoContent, body, s, nil)
}

// --------------------------------------------------------------------------
// Document Commands
// --------------------------------------------------------------------------

// GetHiloDocumentCommand reads the counter document of a collection tag.
// Found is false if the document does not exist.
type GetHiloDocumentCommand struct {
	Database string
	Tag      string
	Result   common.HiloDocument
	Found    bool
}

func NewGetHiloDocumentCommand(database, tag string) *GetHiloDocumentCommand {
	return &GetHiloDocumentCommand{Database: database, Tag: tag}
}

func (c *GetHiloDocumentCommand) CreateRequest(*ServerNode) (*Request, error) {
	return &Request{Method: http.MethodGet, URI: documentURI(c.Database, c.Tag)}, nil
}

func (c *GetHiloDocumentCommand) SetResponse(status int, body []byte, s serializer.IRPCSerializer) error {
	if status == http.StatusNotFound {
		if err := newServerError(status, body, s); err.Type != common.ErrTNotFound {
			return err
		}
		c.Found = false
		return nil
	}
	if err := decodeResponse(status, http.StatusOK, body, s, &c.Result); err != nil {
		return err
	}
	c.Found = true
	return nil
}

// PutHiloDocumentCommand overwrites the counter document of a collection tag.
// A non-empty Document.Token makes the write conditional.
type PutHiloDocumentCommand struct {
	Database string
	Document common.HiloDocument
	Result   common.HiloDocument
}

func NewPutHiloDocumentCommand(database, tag string, value int64, expectedToken string) *PutHiloDocumentCommand {
	return &PutHiloDocumentCommand{
		Database: database,
		Document: common.HiloDocument{ID: store.HiloDocumentID(tag), Max: value, Token: expectedToken},
	}
}

func (c *PutHiloDocumentCommand) CreateRequest(*ServerNode) (*Request, error) {
	tag, _ := store.TagFromDocumentID(c.Document.ID)
	return &Request{Method: http.MethodPut, URI: documentURI(c.Database, tag), Body: &c.Document}, nil
}

func (c *PutHiloDocumentCommand) SetResponse(status int, body []byte, s serializer.IRPCSerializer) error {
	return decodeResponse(status, http.StatusOK, body, s, &c.Result)
}

// --------------------------------------------------------------------------
// Cluster Commands
// --------------------------------------------------------------------------

// GetTopologyCommand reads the cluster topology
type GetTopologyCommand struct {
	Result common.Topology
}

func (c *GetTopologyCommand) CreateRequest(*ServerNode) (*Request, error) {
	return &Request{Method: http.MethodGet, URI: "/cluster/topology"}, nil
}

func (c *GetTopologyCommand) SetResponse(status int, body []byte, s serializer.IRPCSerializer) error {
	return decodeResponse(status, http.StatusOK, body, s, &c.Result)
}
