package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientServerRoundTrip(t *testing.T) {
	srv := NewHttpServerTransport()
	srv.Handle("POST /databases/{database}/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(append([]byte(r.PathValue("database")+":"), body...))
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewHttpClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{TimeoutSecond: 5}))
	defer client.Close()

	resp, err := client.Send(context.Background(), &transport.Request{
		Method:      http.MethodPost,
		URL:         ts.URL + "/databases/shop/echo",
		ContentType: "application/json",
		Body:        []byte(`{"tag":"users"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.Equal(t, `shop:{"tag":"users"}`, string(resp.Body))

	// unknown routes are a response, not a transport error
	resp, err = client.Send(context.Background(), &transport.Request{Method: http.MethodGet, URL: ts.URL + "/nope"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendFailsWhenNotConnected(t *testing.T) {
	_, err := NewHttpClientTransport().Send(context.Background(), &transport.Request{Method: http.MethodGet, URL: "http://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestSendFailsForUnreachableNode(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := NewHttpClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{TimeoutSecond: 1}))
	_, err := client.Send(context.Background(), &transport.Request{Method: http.MethodGet, URL: url})
	assert.Error(t, err)
}

func TestShutdownWithoutListen(t *testing.T) {
	assert.NoError(t, NewHttpServerTransport().Shutdown(context.Background()))
}
