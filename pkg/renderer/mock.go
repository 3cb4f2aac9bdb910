package renderer

import (
	"context"
	"sync"
)

// RecordedCall is one method invocation captured by RecordingClient
type RecordedCall struct {
	Method string
	Args   []any
	Async  bool
}

// RecordingClient is a Client for tests: it records every call in order and
// returns configurable errors.
type RecordingClient struct {
	mu    sync.Mutex
	calls []RecordedCall

	PingErr    error
	EnqueueErr error
	CallErr    error
	FlushErr   error
}

func (r *RecordingClient) Call(ctx context.Context, method string, result any, args ...any) error {
	if r.CallErr != nil {
		return r.CallErr
	}
	r.record(RecordedCall{Method: method, Args: args})
	return nil
}

func (r *RecordingClient) Enqueue(method string, args ...any) error {
	if r.EnqueueErr != nil {
		return r.EnqueueErr
	}
	r.record(RecordedCall{Method: method, Args: args, Async: true})
	return nil
}

func (r *RecordingClient) Flush(ctx context.Context) error { return r.FlushErr }

func (r *RecordingClient) Ping(ctx context.Context) error { return r.PingErr }

func (r *RecordingClient) Close() error { return nil }

func (r *RecordingClient) record(c RecordedCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns the recorded calls in invocation order
func (r *RecordingClient) Calls() []RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedCall(nil), r.calls...)
}

// CallsTo returns the recorded calls to one method
func (r *RecordingClient) CallsTo(method string) []RecordedCall {
	var out []RecordedCall
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}
