package client

import (
	"fmt"
	gometrics "github.com/rcrowley/go-metrics"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// ServerNode is a single server of the cluster
type ServerNode struct {
	URL        string
	ClusterTag string
}

func (n ServerNode) String() string {
	if n.ClusterTag == "" {
		return n.URL
	}
	return n.ClusterTag + "=" + n.URL
}

// ParseEndpoint parses an endpoint given as TAG=URL or as plain URL
func ParseEndpoint(endpoint string) (ServerNode, error) {
	endpoint = strings.TrimSpace(endpoint)
	tag, rawURL, found := strings.Cut(endpoint, "=")
	if !found || strings.Contains(tag, "/") {
		tag, rawURL = "", endpoint
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ServerNode{}, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ServerNode{}, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return ServerNode{}, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	return ServerNode{
		URL:        strings.TrimSuffix(u.String(), "/"),
		ClusterTag: strings.TrimSpace(tag),
	}, nil
}

// nodeState tracks the health and latency of a node
type nodeState struct {
	node ServerNode
	// failedUntil is the end of the cool-down in unix nanoseconds
	failedUntil atomic.Int64
	// latency in microseconds
	latency gometrics.Histogram
}

func newNodeState(node ServerNode) *nodeState {
	return &nodeState{
		node:    node,
		latency: gometrics.NewHistogram(gometrics.NewExpDecaySample(1028, 0.015)),
	}
}

func (n *nodeState) markFailed(cooldown time.Duration) {
	n.failedUntil.Store(time.Now().Add(cooldown).UnixNano())
}

func (n *nodeState) markHealthy() {
	n.failedUntil.Store(0)
}

func (n *nodeState) isFailed(now time.Time) bool {
	return now.UnixNano() < n.failedUntil.Load()
}

func (n *nodeState) observe(d time.Duration) {
	n.latency.Update(d.Microseconds())
}

// meanLatency is zero for nodes without samples, so they are tried early
func (n *nodeState) meanLatency() float64 {
	return n.latency.Mean()
}
