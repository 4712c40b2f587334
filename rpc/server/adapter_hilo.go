package server

import (
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"net/http"
	"time"
)

const defaultSeparator = "/"

// NewHiloServerAdapter creates the adapter for the two Hi-Lo endpoints.
// serverTag is appended by clients to every generated document id.
func NewHiloServerAdapter(serverTag string) IRPCServerAdapter {
	return &hiloServerAdapterImpl{serverTag: serverTag, now: time.Now}
}

type hiloServerAdapterImpl struct {
	serverTag string
	now       func() time.Time
}

func (a *hiloServerAdapterImpl) Routes() map[string]AdapterHandleFunc {
	return map[string]AdapterHandleFunc{
		"POST /databases/{database}/hilo/next":   a.handleNext,
		"POST /databases/{database}/hilo/return": a.handleReturn,
	}
}

func (a *hiloServerAdapterImpl) handleNext(req *request, db store.ICounterStore) (response, error) {
	var msg common.NextRangeRequest
	if err := req.decode(&msg); err != nil {
		return response{}, err
	}

	res, err := db.NextRange(store.NextRangeArgs{
		Tag:       msg.Tag,
		Capacity:  msg.Capacity,
		LastMax:   msg.LastMax,
		LastToken: msg.LastToken,
		At:        a.now().UTC(),
	})
	if err != nil {
		return response{}, err
	}
	serverMetrics.rangesGranted(req.database).Inc()

	separator := msg.Separator
	if separator == "" {
		separator = defaultSeparator
	}

	return response{status: http.StatusOK, body: &common.NextRangeResponse{
		Prefix:      msg.Tag + separator,
		Low:         res.Low,
		High:        res.High,
		Max:         res.Document.Max,
		Token:       res.Document.Token,
		ServerTag:   a.serverTag,
		LastRangeAt: res.Document.LastRangeAt,
	}}, nil
}

func (a *hiloServerAdapterImpl) handleReturn(req *request, db store.ICounterStore) (response, error) {
	var msg common.ReturnRangeRequest
	if err := req.decode(&msg); err != nil {
		return response{}, err
	}

	applied, err := db.ReturnRange(store.ReturnRangeArgs{
		Tag:         msg.Tag,
		Low:         msg.Low,
		High:        msg.High,
		LastRangeAt: msg.LastRangeAt.UTC(),
	})
	if err != nil {
		return response{}, err
	}
	if applied {
		serverMetrics.rangesReturned(req.database).Inc()
	} else {
		Logger.Debugf("ignored return of [%d, %d] for %s/%s, counter moved on", msg.Low, msg.High, req.database, msg.Tag)
	}

	return response{status: http.StatusNoContent}, nil
}
