package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nrnviz/blender-bridge/pkg/logging"
)

// HTTPConfig configures the JSON-RPC HTTP client
type HTTPConfig struct {
	Endpoint    string        // e.g. "http://127.0.0.1:8000"
	CallTimeout time.Duration // per-call HTTP timeout
	QueueSize   int           // capacity of the async dispatch queue
}

// HTTPClient implements Client over JSON-RPC 2.0 HTTP POST requests.
//
// All calls go through a circuit breaker: once the renderer stops answering,
// further calls fail immediately instead of each waiting out a full HTTP
// timeout. The breaker never retries on its own.
type HTTPClient struct {
	endpoint string
	httpc    *http.Client
	breaker  *gobreaker.CircuitBreaker
	nextID   atomic.Int64

	queue   chan job
	done    chan struct{}
	drained chan struct{}

	mu          sync.Mutex
	dispatchErr error
}

type job struct {
	method string
	args   []any
	flush  chan struct{} // non-nil for flush markers
}

type rpcRequest struct {
	Version string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewHTTPClient creates a client and starts its dispatch goroutine
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	c := &HTTPClient{
		endpoint: cfg.Endpoint,
		httpc:    &http.Client{Timeout: cfg.CallTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "renderer",
			Timeout: 5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		queue:   make(chan job, cfg.QueueSize),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go c.dispatch()
	return c
}

// Call performs a synchronous request/response method call
func (c *HTTPClient) Call(ctx context.Context, method string, result any, args ...any) error {
	id := c.nextID.Add(1)
	raw, err := c.post(ctx, rpcRequest{Version: "2.0", ID: &id, Method: method, Params: argsOrEmpty(args)})
	if err != nil {
		return fmt.Errorf("calling %s on %s: %w", method, c.endpoint, err)
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// Enqueue schedules a fire-and-forget notification. Blocks only when the
// queue is full, which preserves FIFO order under backpressure.
func (c *HTTPClient) Enqueue(method string, args ...any) error {
	select {
	case <-c.done:
		return fmt.Errorf("enqueue %s: client closed", method)
	default:
	}
	c.queue <- job{method: method, args: argsOrEmpty(args)}
	return nil
}

// Flush waits for the queue to drain and reports the first dispatch error
// recorded since the last Flush
func (c *HTTPClient) Flush(ctx context.Context) error {
	marker := make(chan struct{})
	select {
	case <-c.done:
		return fmt.Errorf("flush: client closed")
	case c.queue <- job{flush: marker}:
	}

	select {
	case <-marker:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.dispatchErr
	c.dispatchErr = nil
	return err
}

// Ping probes the renderer
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.Call(ctx, MethodPing, nil)
}

// Close stops accepting new calls and blocks until every queued call has
// been dispatched
func (c *HTTPClient) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	close(c.done)
	close(c.queue)
	<-c.drained
	return nil
}

// dispatch drains the queue on a single goroutine; one sender means the
// renderer receives calls in exactly the order they were enqueued
func (c *HTTPClient) dispatch() {
	defer close(c.drained)
	for j := range c.queue {
		if j.flush != nil {
			close(j.flush)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.httpc.Timeout)
		_, err := c.post(ctx, rpcRequest{Version: "2.0", Method: j.method, Params: j.args})
		cancel()

		if err != nil {
			logging.Warn("async dispatch failed", "method", j.method, "error", err.Error())
			c.mu.Lock()
			if c.dispatchErr == nil {
				c.dispatchErr = fmt.Errorf("dispatching %s to %s: %w", j.method, c.endpoint, err)
			}
			c.mu.Unlock()
		}
	}
}

func (c *HTTPClient) post(ctx context.Context, req rpcRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	raw, err := c.breaker.Execute(func() (any, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}

		// Notifications carry no id and need no response decoding
		if req.ID == nil {
			return json.RawMessage(nil), nil
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(data, &rpcResp); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		if rpcResp.Error != nil {
			return nil, rpcResp.Error
		}
		return rpcResp.Result, nil
	})
	if err != nil {
		return nil, err
	}
	return raw.(json.RawMessage), nil
}

func argsOrEmpty(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
