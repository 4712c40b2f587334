package http

import (
	"bytes"
	"context"
	"fmt"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"io"
	"net/http"
	"sync"
	"time"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	mu     sync.RWMutex
	client *http.Client
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	timeout := time.Duration(config.TimeoutSecond) * time.Second

	// Create client with a pooled transport
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.client = client
	return nil
}

func (t *httpClientTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()

	// Check if the transport is initialized
	if client == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	if req.ContentType != "" {
		httpRequest.Header.Set("Content-Type", req.ContentType)
		httpRequest.Header.Set("Accept", req.ContentType)
	}

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, err
	}

	return &transport.Response{
		StatusCode:  httpResponse.StatusCode,
		ContentType: httpResponse.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

func (t *httpClientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	t.client = nil

	return nil
}
