// Package rpcfanout dispatches every JSON-RPC call to a static list of
// endpoints concurrently and reduces the responses to a single result
// according to a per-method consensus policy. It never bans an endpoint
// permanently: every call gets a fresh chance across the full list.
package rpcfanout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/blocksentry/watchtower/internal/pkg/errkind"
	"github.com/blocksentry/watchtower/internal/pkg/logger"
	"github.com/blocksentry/watchtower/internal/pkg/transport/jsonrpc"
)

// Policy names the consensus strategy used to reduce N endpoint responses
// into one.
type Policy int

const (
	// PolicyFirstSuccess accepts the first non-error response; the default.
	PolicyFirstSuccess Policy = iota
	// PolicyHighestBlock parses every result as a hex-encoded integer and
	// keeps the numerically greatest.
	PolicyHighestBlock
	// PolicyMostLogs parses every result as a JSON array and keeps the
	// longest.
	PolicyMostLogs
)

// PolicyForMethod returns the statically configured policy for a JSON-RPC
// method name, per the method -> policy bindings: block-number methods use
// highest-block, get-logs uses most-logs, everything else is first-success.
func PolicyForMethod(method string) Policy {
	switch method {
	case "eth_blockNumber":
		return PolicyHighestBlock
	case "eth_getLogs":
		return PolicyMostLogs
	default:
		return PolicyFirstSuccess
	}
}

type endpoint struct {
	url    string
	client jsonrpc.Client
}

// Client fans a JSON-RPC call out to every configured endpoint and reduces
// the responses to one, per PolicyForMethod.
type Client struct {
	endpoints []endpoint
	deadline  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithDeadline overrides the default 3s per-call shared deadline.
func WithDeadline(d time.Duration) Option {
	return func(c *Client) { c.deadline = d }
}

// New builds a fan-out Client over the given jsonrpc clients, one per
// configured endpoint URL (used for logging only).
func New(endpointURLs []string, clients []jsonrpc.Client, opts ...Option) *Client {
	eps := make([]endpoint, len(endpointURLs))
	for i, u := range endpointURLs {
		eps[i] = endpoint{url: u, client: clients[i]}
	}

	c := &Client{
		endpoints: eps,
		deadline:  3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type endpointResult struct {
	url     string
	latency time.Duration
	result  json.RawMessage
	err     error
}

// Call executes method against every endpoint under a shared deadline and
// reduces the responses according to the method's consensus policy. If
// every endpoint fails, it returns *errkind.AllEndpointsFailedError
// carrying the last error observed per endpoint.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	// results is filled in completion order, so first-success picks the
	// endpoint that answered first rather than the first one configured.
	results := make([]endpointResult, 0, len(c.endpoints))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, ep := range c.endpoints {
		wg.Add(1)
		go func(ep endpoint) {
			defer wg.Done()

			start := time.Now()
			res, err := ep.client.Fetch(ctx, method, params...)
			latency := time.Since(start)

			mu.Lock()
			results = append(results, endpointResult{url: ep.url, latency: latency, result: res, err: err})
			mu.Unlock()
			c.logOutcome(ctx, method, ep.url, latency, res, err)
		}(ep)
	}
	wg.Wait()

	return reduce(method, results)
}

func (c *Client) logOutcome(ctx context.Context, method, url string, latency time.Duration, res json.RawMessage, err error) {
	if err != nil {
		logger.Warn(ctx, "rpc endpoint call failed", "method", method, "endpoint", url, "latency_ms", latency.Milliseconds(), "error", err)
		return
	}

	kv := []any{"method", method, "endpoint", url, "latency_ms", latency.Milliseconds()}
	if method == "eth_blockNumber" {
		var height hexUint
		if uerr := json.Unmarshal(res, &height); uerr == nil {
			kv = append(kv, "height", uint64(height))
		}
	}
	logger.Info(ctx, "rpc endpoint call succeeded", kv...)
}

func reduce(method string, results []endpointResult) (json.RawMessage, error) {
	switch PolicyForMethod(method) {
	case PolicyHighestBlock:
		return reduceHighestBlock(method, results)
	case PolicyMostLogs:
		return reduceMostLogs(method, results)
	default:
		return reduceFirstSuccess(method, results)
	}
}

func reduceFirstSuccess(method string, results []endpointResult) (json.RawMessage, error) {
	errs := map[string]error{}
	for _, r := range results {
		if r.err == nil {
			return r.result, nil
		}
		errs[r.url] = r.err
	}
	return nil, &errkind.AllEndpointsFailedError{Method: method, Errors: errs}
}

func reduceHighestBlock(method string, results []endpointResult) (json.RawMessage, error) {
	errs := map[string]error{}
	var (
		best      json.RawMessage
		bestValue uint64
		found     bool
	)
	for _, r := range results {
		if r.err != nil {
			errs[r.url] = r.err
			continue
		}
		var v hexUint
		if uerr := json.Unmarshal(r.result, &v); uerr != nil {
			errs[r.url] = uerr
			continue
		}
		if !found || uint64(v) > bestValue {
			best, bestValue, found = r.result, uint64(v), true
		}
	}
	if !found {
		return nil, &errkind.AllEndpointsFailedError{Method: method, Errors: errs}
	}
	return best, nil
}

func reduceMostLogs(method string, results []endpointResult) (json.RawMessage, error) {
	errs := map[string]error{}
	var (
		best      json.RawMessage
		bestCount = -1
	)
	for _, r := range results {
		if r.err != nil {
			errs[r.url] = r.err
			continue
		}
		var arr []json.RawMessage
		if uerr := json.Unmarshal(r.result, &arr); uerr != nil {
			errs[r.url] = uerr
			continue
		}
		if len(arr) > bestCount {
			best, bestCount = r.result, len(arr)
		}
	}
	if bestCount < 0 {
		return nil, &errkind.AllEndpointsFailedError{Method: method, Errors: errs}
	}
	return best, nil
}
