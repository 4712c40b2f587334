package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	transport "github.com/ValentinKolb/dDoc/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, config common.ServerConfig) *httptest.Server {
	t.Helper()
	if config.NodeTag == "" {
		config.NodeTag = "A"
	}
	if config.Databases == nil {
		config.Databases = []common.ServerDatabase{{Name: "shop", Type: common.DatabaseTypeLocal}}
	}

	s := NewRPCServer(config, transport.NewHttpServerTransport())
	require.NoError(t, s.Init())

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		assert.NoError(t, s.Close(context.Background()))
	})
	return ts
}

// call sends body encoded with codec and decodes a 2xx answer into out or a
// non-2xx answer into the returned ErrorResponse
func call(t *testing.T, codec serializer.IRPCSerializer, method, url string, body, out any) (int, *common.ErrorResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := codec.Serialize(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", codec.ContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if resp.StatusCode >= 300 {
		var errResp common.ErrorResponse
		require.NoError(t, codec.Deserialize(data, &errResp), string(data))
		return resp.StatusCode, &errResp
	}
	if out != nil {
		assert.Equal(t, codec.ContentType(), resp.Header.Get("Content-Type"))
		require.NoError(t, codec.Deserialize(data, out))
	}
	return resp.StatusCode, nil
}

var jsonCodec = serializer.NewJSONSerializer()

func next(t *testing.T, baseURL, db string, req common.NextRangeRequest) (int, common.NextRangeResponse, *common.ErrorResponse) {
	var resp common.NextRangeResponse
	status, errResp := call(t, jsonCodec, http.MethodPost, baseURL+"/databases/"+db+"/hilo/next", &req, &resp)
	return status, resp, errResp
}

func TestNextRangeGrantsConsecutiveRanges(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{})

	status, first, _ := next(t, ts.URL, "shop", common.NextRangeRequest{Tag: "users", Capacity: 32, Separator: "/"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "users/", first.Prefix)
	assert.Equal(t, int64(1), first.Low)
	assert.Equal(t, int64(32), first.High)
	assert.Equal(t, int64(32), first.Max)
	assert.Equal(t, "A", first.ServerTag)
	assert.NotEmpty(t, first.Token)
	assert.False(t, first.LastRangeAt.IsZero())

	status, second, _ := next(t, ts.URL, "shop", common.NextRangeRequest{
		Tag: "users", Capacity: 64, LastMax: first.High, LastToken: first.Token, LastRangeAt: first.LastRangeAt,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "users/", second.Prefix, "empty separator defaults to /")
	assert.Equal(t, int64(33), second.Low)
	assert.Equal(t, int64(96), second.High)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestNextRangeConflictCarriesCurrentDocument(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{})

	_, grant, _ := next(t, ts.URL, "shop", common.NextRangeRequest{Tag: "users", Capacity: 32})

	// external writer lowers the counter
	var doc common.HiloDocument
	status, _ := call(t, jsonCodec, http.MethodPut, ts.URL+"/databases/shop/docs?id=Raven/Hilo/users",
		&common.HiloDocument{Max: 12}, &doc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(12), doc.Max)

	status, _, errResp := next(t, ts.URL, "shop", common.NextRangeRequest{
		Tag: "users", Capacity: 64, LastMax: grant.High, LastToken: grant.Token,
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, common.ErrTConflict, errResp.Type)
	assert.Equal(t, int64(12), errResp.Max)
	assert.Equal(t, doc.Token, errResp.Token)

	// retry with the fresh token and the old floor
	status, retry, _ := next(t, ts.URL, "shop", common.NextRangeRequest{
		Tag: "users", Capacity: 64, LastMax: grant.High, LastToken: errResp.Token,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(33), retry.Low)
}

func TestNextRangeRejectsInvalidRequests(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{})

	status, _, errResp := next(t, ts.URL, "shop", common.NextRangeRequest{Tag: "users", Capacity: 0})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, common.ErrTBadRequest, errResp.Type)

	status, errResp = call(t, jsonCodec, http.MethodPost, ts.URL+"/databases/shop/hilo/next", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, common.ErrTBadRequest, errResp.Type)
}

func TestReturnRangeLowersCounter(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{})

	_, grant, _ := next(t, ts.URL, "shop", common.NextRangeRequest{Tag: "users", Capacity: 32})
	held := grant.LastRangeAt.Add(-time.Minute)

	status, _ := call(t, jsonCodec, http.MethodPost, ts.URL+"/databases/shop/hilo/return",
		&common.ReturnRangeRequest{Tag: "users", Low: 3, High: grant.High, LastRangeAt: held}, nil)
	require.Equal(t, http.StatusNoContent, status)

	// returning twice is a no-op
	status, _ = call(t, jsonCodec, http.MethodPost, ts.URL+"/databases/shop/hilo/return",
		&common.ReturnRangeRequest{Tag: "users", Low: 3, High: grant.High}, nil)
	require.Equal(t, http.StatusNoContent, status)

	var doc common.HiloDocument
	status, _ = call(t, jsonCodec, http.MethodGet, ts.URL+"/databases/shop/docs?id=Raven/Hilo/users", nil, &doc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Raven/Hilo/users", doc.ID)
	assert.Equal(t, int64(2), doc.Max)
	assert.True(t, held.Equal(doc.LastRangeAt), "got %s", doc.LastRangeAt)
}

func TestDocuments(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{})

	status, errResp := call(t, jsonCodec, http.MethodGet, ts.URL+"/databases/shop/docs?id=Raven/Hilo/orders", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, common.ErrTNotFound, errResp.Type)

	status, errResp = call(t, jsonCodec, http.MethodGet, ts.URL+"/databases/shop/docs?id=users/1-A", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, common.ErrTBadRequest, errResp.Type)

	var doc common.HiloDocument
	status, _ = call(t, jsonCodec, http.MethodPut, ts.URL+"/databases/shop/docs?id=Raven/Hilo/orders",
		&common.HiloDocument{ID: "Raven/Hilo/orders", Max: 100}, &doc)
	require.Equal(t, http.StatusOK, status)

	// conditional write with a stale token
	status, errResp = call(t, jsonCodec, http.MethodPut, ts.URL+"/databases/shop/docs?id=Raven/Hilo/orders",
		&common.HiloDocument{Max: 5, Token: doc.Token + "0"}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, int64(100), errResp.Max)

	// mismatching ids
	status, _ = call(t, jsonCodec, http.MethodPut, ts.URL+"/databases/shop/docs?id=Raven/Hilo/orders",
		&common.HiloDocument{ID: "Raven/Hilo/users", Max: 5}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnknownDatabase(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{})
	status, _, errResp := next(t, ts.URL, "other", common.NextRangeRequest{Tag: "users", Capacity: 32})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, common.ErrTDatabaseDoesNotExist, errResp.Type)

	auto := newTestServer(t, common.ServerConfig{AutoCreateDatabases: true})
	status, grant, _ := next(t, auto.URL, "other", common.NextRangeRequest{Tag: "users", Capacity: 32})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), grant.Low)
}

func TestCodecs(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{})

	for _, codec := range []serializer.IRPCSerializer{serializer.NewMsgpackSerializer(), serializer.NewGOBSerializer()} {
		t.Run(codec.ContentType(), func(t *testing.T) {
			var resp common.NextRangeResponse
			status, _ := call(t, codec, http.MethodPost, ts.URL+"/databases/shop/hilo/next",
				&common.NextRangeRequest{Tag: "products", Capacity: 8}, &resp)
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, "products/", resp.Prefix)
			assert.Equal(t, resp.Low+7, resp.High)

			status, errResp := call(t, codec, http.MethodPost, ts.URL+"/databases/shop/hilo/next",
				&common.NextRangeRequest{Tag: "products", Capacity: 8, LastToken: "stale"}, nil)
			require.Equal(t, http.StatusConflict, status)
			assert.Equal(t, common.ErrTConflict, errResp.Type)
		})
	}
}

func TestUnsupportedContentType(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{})

	resp, err := http.Post(ts.URL+"/databases/shop/hilo/next", "text/plain", bytes.NewBufferString("users"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestTopology(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{ClusterNodes: map[string]string{
		"B": "http://b:8080",
		"A": "http://a:8080",
	}})

	var topology common.Topology
	status, _ := call(t, jsonCodec, http.MethodGet, ts.URL+"/cluster/topology", nil, &topology)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), topology.Etag)
	assert.Equal(t, []common.TopologyNode{
		{URL: "http://a:8080", ClusterTag: "A"},
		{URL: "http://b:8080", ClusterTag: "B"},
	}, topology.Nodes)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, common.ServerConfig{Databases: []common.ServerDatabase{{Name: "metricsdb", Type: common.DatabaseTypeLocal}}})

	status, _, _ := next(t, ts.URL, "metricsdb", common.NextRangeRequest{Tag: "users", Capacity: 32})
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `ddoc_server_ranges_granted_total{database="metricsdb"} 1`)
	assert.Contains(t, string(body), `ddoc_server_requests_total{route="POST /databases/{database}/hilo/next",status="200"}`)
}
