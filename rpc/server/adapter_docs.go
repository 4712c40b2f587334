package server

import (
	"fmt"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"net/http"
)

// NewDocumentServerAdapter creates the adapter for reading and writing counter documents
func NewDocumentServerAdapter() IRPCServerAdapter {
	return &documentServerAdapterImpl{}
}

type documentServerAdapterImpl struct{}

func (a *documentServerAdapterImpl) Routes() map[string]AdapterHandleFunc {
	return map[string]AdapterHandleFunc{
		"GET /databases/{database}/docs": a.handleGet,
		"PUT /databases/{database}/docs": a.handlePut,
	}
}

// documentID reads and validates the id query parameter
func documentID(req *request) (string, error) {
	id := req.http.URL.Query().Get("id")
	if _, ok := store.TagFromDocumentID(id); !ok {
		return "", store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("invalid document id %q: only %s{tag} documents are supported", id, store.HiloDocumentPrefix))
	}
	return id, nil
}

func toWireDocument(doc store.Document) *common.HiloDocument {
	return &common.HiloDocument{
		ID:          doc.ID,
		Max:         doc.Max,
		LastRangeAt: doc.LastRangeAt,
		Token:       doc.Token,
	}
}

func (a *documentServerAdapterImpl) handleGet(req *request, db store.ICounterStore) (response, error) {
	id, err := documentID(req)
	if err != nil {
		return response{}, err
	}

	doc, ok, err := db.GetDocument(id)
	if err != nil {
		return response{}, err
	}
	if !ok {
		return response{}, store.NewError(store.RetCNotFound, fmt.Sprintf("document %s does not exist", id))
	}
	return response{status: http.StatusOK, body: toWireDocument(doc)}, nil
}

func (a *documentServerAdapterImpl) handlePut(req *request, db store.ICounterStore) (response, error) {
	id, err := documentID(req)
	if err != nil {
		return response{}, err
	}

	var msg common.HiloDocument
	if err := req.decode(&msg); err != nil {
		return response{}, err
	}
	if msg.ID != "" && msg.ID != id {
		return response{}, store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("document id %q does not match query id %q", msg.ID, id))
	}

	doc, err := db.PutDocument(store.PutArgs{ID: id, Max: msg.Max, ExpectedToken: msg.Token})
	if err != nil {
		return response{}, err
	}
	return response{status: http.StatusOK, body: toWireDocument(doc)}, nil
}
