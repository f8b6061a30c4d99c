package opcflux

import (
	"errors"
	"fmt"
	"sync"

	"opcflux/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("opcflux: channel sink closed")

// NewCallbackSink adapts a PointBatchSink into a full Sink implementation so callers
// can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn PointBatchSink) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan []Point, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Point, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   PointBatchSink
}

func (s *callbackSink) WriteBatch(points []*domain.DataPoint) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(points) == 0 {
		return nil
	}
	return s.fn(convertDomainBatch(points))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Point
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteBatch(points []*domain.DataPoint) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(points) == 0 {
		return nil
	}

	batch := convertDomainBatch(points)

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

func convertDomainBatch(points []*domain.DataPoint) []Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = pointFromDomain(p)
	}
	return out
}
