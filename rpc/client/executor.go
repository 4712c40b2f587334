package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultFailoverCooldown = 5 * time.Second
	retryInitialInterval    = 50 * time.Millisecond
	retryMaxInterval        = 2 * time.Second
)

// RequestExecutor sends commands to the nodes of a cluster.
//
// Every attempt is a pass over all nodes, starting with the node selected by the
// read balance behavior. Transport errors and 5xx answers put a node into a
// cool-down and the next node is tried. Failed passes are retried with
// exponential backoff up to RetryCount times.
type RequestExecutor struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
	codec     serializer.IRPCSerializer
	balance   common.ReadBalanceBehavior
	cooldown  time.Duration

	mu           sync.RWMutex
	nodes        []*nodeState
	topologyEtag int64

	counter atomic.Uint64
}

// NewRequestExecutor parses the endpoints of the config and connects the transport
func NewRequestExecutor(config common.ClientConfig, transport transport.IRPCClientTransport) (*RequestExecutor, error) {
	if len(config.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	nodes := make([]*nodeState, 0, len(config.Endpoints))
	for _, endpoint := range config.Endpoints {
		node, err := ParseEndpoint(endpoint)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, newNodeState(node))
	}

	codec, err := serializer.ByName(config.Serializer)
	if err != nil {
		return nil, err
	}

	balance, err := common.ParseReadBalanceBehavior(string(config.ReadBalance))
	if err != nil {
		return nil, err
	}

	cooldown := defaultFailoverCooldown
	if config.FailoverCooldownSecond > 0 {
		cooldown = time.Duration(config.FailoverCooldownSecond) * time.Second
	}

	if err := transport.Connect(config); err != nil {
		return nil, fmt.Errorf("failed to connect transport: %w", err)
	}

	return &RequestExecutor{
		config:    config,
		transport: transport,
		codec:     codec,
		balance:   balance,
		cooldown:  cooldown,
		nodes:     nodes,
	}, nil
}

// Nodes returns the current topology
func (e *RequestExecutor) Nodes() []ServerNode {
	e.mu.RLock()
	defer e.mu.RUnlock()

	nodes := make([]ServerNode, len(e.nodes))
	for i, n := range e.nodes {
		nodes[i] = n.node
	}
	return nodes
}

// Execute sends the command to the cluster.
// Errors returned by the command itself (4xx answers) are not retried.
func (e *RequestExecutor) Execute(ctx context.Context, cmd ICommand) error {
	attempts := 0

	op := func() error {
		attempts++
		err := e.executeOnce(ctx, cmd)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}

		var nodeErr *nodeError
		if !errors.As(err, &nodeErr) {
			return backoff.Permanent(err)
		}
		Logger.Debugf("attempt %d failed: %v", attempts, err)
		return err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = retryInitialInterval
	exp.MaxInterval = retryMaxInterval
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(max(0, e.config.RetryCount))), ctx)

	err := backoff.Retry(op, b)
	var nodeErr *nodeError
	if errors.As(err, &nodeErr) {
		return &AllNodesUnavailableError{Attempts: attempts, Err: err}
	}
	return err
}

// executeOnce tries every node once. It returns the first success, the first
// error of a command or the aggregated node errors.
func (e *RequestExecutor) executeOnce(ctx context.Context, cmd ICommand) error {
	var errs error
	for _, n := range e.orderedNodes() {
		err := e.send(ctx, n, cmd)
		if err == nil {
			n.markHealthy()
			return nil
		}

		var nodeErr *nodeError
		if !errors.As(err, &nodeErr) || ctx.Err() != nil {
			return err
		}

		Logger.Warningf("node %s failed, trying next node: %v", n.node, nodeErr.err)
		n.markFailed(e.cooldown)
		errs = multierr.Append(errs, err)
	}
	return errs
}

// send executes the command against a single node
func (e *RequestExecutor) send(ctx context.Context, n *nodeState, cmd ICommand) error {
	req, err := cmd.CreateRequest(&n.node)
	if err != nil {
		return err
	}

	var body []byte
	if req.Body != nil {
		if body, err = e.codec.Serialize(req.Body); err != nil {
			return fmt.Errorf("failed to serialize request: %w", err)
		}
	}

	start := time.Now()
	resp, err := e.transport.Send(ctx, &transport.Request{
		Method:      req.Method,
		URL:         n.node.URL + req.URI,
		ContentType: e.codec.ContentType(),
		Body:        body,
	})
	if err != nil {
		return &nodeError{node: n.node, err: err}
	}
	n.observe(time.Since(start))

	if resp.StatusCode >= http.StatusInternalServerError {
		return &nodeError{node: n.node, err: newServerError(resp.StatusCode, resp.Body, e.codec)}
	}
	return cmd.SetResponse(resp.StatusCode, resp.Body, e.codec)
}

// orderedNodes returns the nodes in the order they are tried: rotated to the
// node selected by the read balance behavior, nodes in cool-down last
func (e *RequestExecutor) orderedNodes() []*nodeState {
	e.mu.RLock()
	nodes := e.nodes
	e.mu.RUnlock()

	if len(nodes) == 0 {
		return nil
	}

	start := 0
	switch e.balance {
	case common.ReadBalanceRoundRobin:
		start = int((e.counter.Add(1) - 1) % uint64(len(nodes)))
	case common.ReadBalanceFastest:
		best := nodes[0].meanLatency()
		for i, n := range nodes[1:] {
			if l := n.meanLatency(); l < best {
				start, best = i+1, l
			}
		}
	}

	now := time.Now()
	healthy := make([]*nodeState, 0, len(nodes))
	var failed []*nodeState
	for i := range nodes {
		n := nodes[(start+i)%len(nodes)]
		if n.isFailed(now) {
			failed = append(failed, n)
		} else {
			healthy = append(healthy, n)
		}
	}
	return append(healthy, failed...)
}

// UpdateTopology replaces the nodes with the topology announced by the cluster,
// if it is newer than the current one. An empty topology is ignored.
func (e *RequestExecutor) UpdateTopology(ctx context.Context) error {
	cmd := &GetTopologyCommand{}
	if err := e.Execute(ctx, cmd); err != nil {
		return fmt.Errorf("failed to fetch topology: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(cmd.Result.Nodes) == 0 || cmd.Result.Etag <= e.topologyEtag {
		return nil
	}

	known := make(map[string]*nodeState, len(e.nodes))
	for _, n := range e.nodes {
		known[n.node.URL] = n
	}

	nodes := make([]*nodeState, 0, len(cmd.Result.Nodes))
	for _, tn := range cmd.Result.Nodes {
		node, err := ParseEndpoint(tn.URL)
		if err != nil {
			return fmt.Errorf("invalid topology: %w", err)
		}
		node.ClusterTag = tn.ClusterTag

		// keep health and latency of known nodes
		state := newNodeState(node)
		if old, ok := known[node.URL]; ok {
			state.latency = old.latency
			state.failedUntil.Store(old.failedUntil.Load())
		}
		nodes = append(nodes, state)
	}

	e.nodes = nodes
	e.topologyEtag = cmd.Result.Etag
	Logger.Infof("updated topology to etag %d with %d node(s)", cmd.Result.Etag, len(nodes))
	return nil
}

// Close closes the transport
func (e *RequestExecutor) Close() error {
	return e.transport.Close()
}
