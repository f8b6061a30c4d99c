package opcflux

import (
	"errors"
	"testing"
	"time"
)

func TestNewCallbackSink(t *testing.T) {
	var received []Point
	sink := NewCallbackSink("cb", func(batch []Point) error {
		received = append(received, batch...)
		return nil
	})

	input := Point{
		NodeID:    "ns=2;s=Demo.Temperature",
		Value:     3.14,
		Timestamp: time.Unix(1, 0),
		Seq:       42,
	}

	if err := sink.WriteBatch([]*PipelinePoint{input.toDomain()}); err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 batch entry, got %d", len(received))
	}
	got := received[0]
	if got.NodeID != input.NodeID || got.Seq != input.Seq {
		t.Fatalf("mismatched point payload: %+v vs %+v", got, input)
	}
	if got.Value != 3.14 {
		t.Fatalf("expected value to be carried over, got %v", got.Value)
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	p := Point{NodeID: "ns=2;s=x"}
	err := sink.WriteBatch([]*PipelinePoint{p.toDomain()})
	if err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := Point{NodeID: "ns=2;s=y", Seq: 7}
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.WriteBatch([]*PipelinePoint{input.toDomain()})
	}()

	var batch []Point
	select {
	case batch = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel batch")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(batch) != 1 || batch[0].NodeID != input.NodeID {
		t.Fatalf("unexpected batch data: %+v", batch)
	}

	closeFn()
	if err := sink.WriteBatch([]*PipelinePoint{input.toDomain()}); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}
