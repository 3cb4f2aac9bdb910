// Package renderer talks to the remote Blender-side renderer process over
// JSON-RPC. Synchronous calls block for a result; enqueued calls are
// dispatched fire-and-forget on a single background goroutine so their order
// is preserved.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Remote method names exposed by the renderer addon
const (
	MethodClear                  = "clear"
	MethodVisualizeGroup         = "visualize_group"
	MethodCreateCons             = "create_cons"
	MethodSetSegmentActivities   = "set_segment_activities"
	MethodLinkObjects            = "link_objects"
	MethodShowFullScene          = "show_full_scene"
	MethodColorByUniqueMaterials = "color_by_unique_materials"
	MethodSetRenderParams        = "set_render_params"
	MethodPing                   = "ping"
)

// ErrNotReady is returned when the renderer does not answer pings before the
// readiness timeout expires.
var ErrNotReady = errors.New("renderer not ready")

// Client is the call surface of the remote renderer.
type Client interface {
	// Call invokes a method and waits for its result. A non-nil result is
	// unmarshaled from the response.
	Call(ctx context.Context, method string, result any, args ...any) error

	// Enqueue dispatches a one-way method call asynchronously. Enqueued
	// calls are sent in FIFO order. A dispatch failure is not retried; it
	// is reported by the next Flush.
	Enqueue(method string, args ...any) error

	// Flush blocks until every enqueued call has been dispatched and
	// returns the first dispatch error since the previous Flush, if any.
	Flush(ctx context.Context) error

	// Ping probes the renderer for liveness. It has no side effects; an
	// error means the renderer is unreachable.
	Ping(ctx context.Context) error

	// Close drains the dispatch queue and releases the client.
	Close() error
}

// WaitReady polls the renderer's ping until it responds, with a fixed
// backoff, failing after timeout. It must be called before starting a
// transmission session.
func WaitReady(ctx context.Context, c Client, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := c.Ping(ctx); err == nil {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s: is Blender running with the renderer addon active?",
				ErrNotReady, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
