package hilo

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/lstore"
)

var errUnavailable = errors.New("server unavailable")

// fakeClient serves the range protocol from in-process counter stores.
type fakeClient struct {
	serverTag string

	mu     sync.Mutex
	stores map[string]store.ICounterStore

	nextCalls   atomic.Int64
	returnCalls atomic.Int64
	conflicts   atomic.Int64
	failNext    atomic.Bool
	failReturn  atomic.Bool

	// gate blocks NextRange until closed, if set
	gate chan struct{}
}

func newFakeClient(serverTag string) *fakeClient {
	return &fakeClient{
		serverTag: serverTag,
		stores:    make(map[string]store.ICounterStore),
	}
}

func (f *fakeClient) db(database string) store.ICounterStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stores[database]
	if !ok {
		s = lstore.NewLocalStore()
		f.stores[database] = s
	}
	return s
}

func (f *fakeClient) NextRange(_ context.Context, database string, req NextRangeRequest) (RangeGrant, error) {
	f.nextCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.failNext.Load() {
		return RangeGrant{}, errUnavailable
	}

	res, err := f.db(database).NextRange(store.NextRangeArgs{
		Tag:       req.Tag,
		Capacity:  req.Capacity,
		LastMax:   req.LastMax,
		LastToken: req.LastToken,
		At:        time.Now(),
	})
	if store.HasCode(err, store.RetCConflict) {
		f.conflicts.Add(1)
		current := err.(*store.Error).Current
		return RangeGrant{}, &ConflictError{Max: current.Max, Token: current.Token}
	}
	if err != nil {
		return RangeGrant{}, err
	}

	return RangeGrant{
		Range:     RangeValue{Low: res.Low, High: res.High},
		Prefix:    req.Tag + req.Separator,
		ServerTag: f.serverTag,
		Token:     res.Document.Token,
		RangeAt:   res.Document.LastRangeAt,
	}, nil
}

func (f *fakeClient) ReturnRange(_ context.Context, database string, req ReturnRangeRequest) error {
	f.returnCalls.Add(1)
	if f.failReturn.Load() {
		return errUnavailable
	}
	_, err := f.db(database).ReturnRange(store.ReturnRangeArgs{Tag: req.Tag, Low: req.Low, High: req.High, LastRangeAt: req.LastRangeAt})
	return err
}

// setMax plays the external writer of the counter document.
func (f *fakeClient) setMax(database, tag string, value int64) {
	if _, err := f.db(database).PutDocument(store.PutArgs{ID: store.HiloDocumentID(tag), Max: value}); err != nil {
		panic(err)
	}
}

func (f *fakeClient) max(database, tag string) int64 {
	doc, _, err := f.db(database).GetDocument(store.HiloDocumentID(tag))
	if err != nil {
		panic(err)
	}
	return doc.Max
}

// stubClient answers every NextRange with a fixed grant.
type stubClient struct {
	grant RangeGrant
	err   error
}

func (s *stubClient) NextRange(context.Context, string, NextRangeRequest) (RangeGrant, error) {
	return s.grant, s.err
}

func (s *stubClient) ReturnRange(context.Context, string, ReturnRangeRequest) error {
	return nil
}

// churningClient plays a counter that an outside writer changes before every request.
// After settleAfter conflicts (never if zero) it grants the requested range.
type churningClient struct {
	settleAfter int64
	calls       atomic.Int64
	lastReq     atomic.Pointer[NextRangeRequest]
}

func (c *churningClient) NextRange(_ context.Context, _ string, req NextRangeRequest) (RangeGrant, error) {
	n := c.calls.Add(1)
	c.lastReq.Store(&req)
	if c.settleAfter == 0 || n <= c.settleAfter {
		return RangeGrant{}, &ConflictError{Max: n * 10, Token: strconv.FormatInt(n, 10)}
	}
	return RangeGrant{
		Range: RangeValue{Low: req.LastMax + 1, High: req.LastMax + req.Capacity},
		Token: "granted",
	}, nil
}

func (c *churningClient) ReturnRange(context.Context, string, ReturnRangeRequest) error {
	return nil
}
