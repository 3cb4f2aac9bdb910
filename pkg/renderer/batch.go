package renderer

import (
	"github.com/nrnviz/blender-bridge/pkg/model"
)

// BatchLimit is the maximum number of named series sent in one
// set_segment_activities call. The renderer deserializes each call in one
// piece, so unbounded payloads stall its event loop.
const BatchLimit = 1000

// Batcher groups named series into size-bounded set_segment_activities
// dispatches, preserving the order series were added in.
type Batcher struct {
	client Client
	limit  int
	batch  []model.NamedSeries
	sent   int
}

// NewBatcher returns a batcher dispatching through c. A limit of zero means
// BatchLimit.
func NewBatcher(c Client, limit int) *Batcher {
	if limit <= 0 {
		limit = BatchLimit
	}
	return &Batcher{
		client: c,
		limit:  limit,
		batch:  make([]model.NamedSeries, 0, limit),
	}
}

// Add appends one series, dispatching the current batch when it reaches the
// size limit
func (b *Batcher) Add(s model.NamedSeries) error {
	b.batch = append(b.batch, s)
	if len(b.batch) >= b.limit {
		return b.send()
	}
	return nil
}

// Flush dispatches the final partial batch. It must always be called at the
// end of a send; the size-triggered dispatch in Add never covers the tail.
func (b *Batcher) Flush() error {
	if len(b.batch) == 0 {
		return nil
	}
	return b.send()
}

// Sent returns the number of series dispatched so far
func (b *Batcher) Sent() int { return b.sent }

func (b *Batcher) send() error {
	payload := b.batch
	b.batch = make([]model.NamedSeries, 0, b.limit)

	if err := b.client.Enqueue(MethodSetSegmentActivities, payload); err != nil {
		return err
	}
	b.sent += len(payload)
	return nil
}
