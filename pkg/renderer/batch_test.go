package renderer

import (
	"fmt"
	"testing"

	"github.com/nrnviz/blender-bridge/pkg/model"
)

func TestBatcherSplitsAtLimit(t *testing.T) {
	client := &RecordingClient{}
	b := NewBatcher(client, BatchLimit)

	for i := 0; i < 2500; i++ {
		s := model.NamedSeries{Name: fmt.Sprintf("seg[%d]", i)}
		if err := b.Add(s); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	calls := client.CallsTo(MethodSetSegmentActivities)
	if len(calls) != 3 {
		t.Fatalf("got %d dispatches, want 3", len(calls))
	}

	wantSizes := []int{1000, 1000, 500}
	next := 0
	for i, call := range calls {
		payload, ok := call.Args[0].([]model.NamedSeries)
		if !ok {
			t.Fatalf("dispatch %d payload has type %T", i, call.Args[0])
		}
		if len(payload) != wantSizes[i] {
			t.Errorf("dispatch %d size = %d, want %d", i, len(payload), wantSizes[i])
		}
		// Series arrive in their original order across batch boundaries
		for _, s := range payload {
			want := fmt.Sprintf("seg[%d]", next)
			if s.Name != want {
				t.Fatalf("series out of order: got %q, want %q", s.Name, want)
			}
			next++
		}
		if !call.Async {
			t.Errorf("dispatch %d was synchronous, want fire-and-forget", i)
		}
	}

	if b.Sent() != 2500 {
		t.Errorf("Sent() = %d, want 2500", b.Sent())
	}
}

func TestBatcherFlushesPartialTail(t *testing.T) {
	client := &RecordingClient{}
	b := NewBatcher(client, 10)

	for i := 0; i < 7; i++ {
		if err := b.Add(model.NamedSeries{Name: fmt.Sprintf("s%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(client.CallsTo(MethodSetSegmentActivities)); got != 0 {
		t.Fatalf("dispatched %d batches before Flush, want 0", got)
	}
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	calls := client.CallsTo(MethodSetSegmentActivities)
	if len(calls) != 1 {
		t.Fatalf("got %d dispatches, want 1", len(calls))
	}
	if payload := calls[0].Args[0].([]model.NamedSeries); len(payload) != 7 {
		t.Errorf("tail batch size = %d, want 7", len(payload))
	}
}

func TestBatcherEmptyFlushSendsNothing(t *testing.T) {
	client := &RecordingClient{}
	b := NewBatcher(client, 10)

	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := len(client.Calls()); got != 0 {
		t.Errorf("empty Flush() dispatched %d calls, want 0", got)
	}
}

func TestBatcherExactMultipleOfLimit(t *testing.T) {
	client := &RecordingClient{}
	b := NewBatcher(client, 5)

	for i := 0; i < 10; i++ {
		if err := b.Add(model.NamedSeries{Name: fmt.Sprintf("s%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}

	calls := client.CallsTo(MethodSetSegmentActivities)
	if len(calls) != 2 {
		t.Fatalf("got %d dispatches, want 2 (no trailing empty batch)", len(calls))
	}
}
