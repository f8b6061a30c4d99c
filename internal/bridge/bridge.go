// Package bridge connects a remote OPC UA address space to the local
// publish pipeline. It owns the connection lifecycle, keeps one server-side
// subscription per configured node, and can walk the address space to
// discover nodes.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"opcflux/internal/domain"
	"opcflux/internal/ports"
)

// Status is the externally visible connection state of a Bridge.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusConnected:
		return "CONNECTED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// TransportFactory builds the transport client on demand. Start calls it at
// most once per bridge; the client is reused across stop/start cycles.
type TransportFactory func() (ports.Transport, error)

// Config holds everything a Bridge needs besides its transport.
type Config struct {
	Subscriptions []ports.SubscriptionConfig
}

// Bridge drives a single transport client through its lifecycle and keeps
// the runtime record of active subscriptions.
type Bridge struct {
	cfg     Config
	factory TransportFactory
	sink    ports.PublishSink
	obs     ports.Observability

	status atomic.Int32
	seq    atomic.Uint64

	mu        sync.RWMutex
	transport ports.Transport
	records   map[uint32]ports.SubscriptionConfig
}

func New(cfg Config, factory TransportFactory, sink ports.PublishSink, obs ports.Observability) *Bridge {
	if obs == nil {
		obs = ports.NopObservability{}
	}
	return &Bridge{
		cfg:     cfg,
		factory: factory,
		sink:    sink,
		obs:     obs,
		records: make(map[uint32]ports.SubscriptionConfig),
	}
}

// Status reports the current connection state without blocking on any
// in-flight lifecycle call.
func (b *Bridge) Status() Status {
	return Status(b.status.Load())
}

// Start connects the transport and creates one subscription per configured
// node. Calling Start again re-drives the connect and re-creates every
// subscription. A factory failure leaves the status untouched; a connect or
// subscribe failure moves the bridge to StatusError.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.transport == nil {
		t, err := b.factory()
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("bridge: build transport: %w", err)
		}
		t.SetTransferFailureHandler(b.onSubscriptionTransferFailed)
		b.transport = t
	}
	t := b.transport
	b.mu.Unlock()

	if err := t.Connect(ctx); err != nil {
		b.status.Store(int32(StatusError))
		return fmt.Errorf("bridge: connect: %w", err)
	}

	if err := b.createAll(ctx, t); err != nil {
		b.status.Store(int32(StatusError))
		return err
	}

	b.status.Store(int32(StatusConnected))
	b.obs.LogInfo("bridge started", ports.Field{Key: "subscriptions", Value: len(b.cfg.Subscriptions)})
	return nil
}

// Stop disconnects the transport but keeps the client and the subscription
// records so a later Start can reuse them.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.RLock()
	t := b.transport
	b.mu.RUnlock()

	if t == nil {
		b.status.Store(int32(StatusDisconnected))
		return nil
	}
	if err := t.Disconnect(ctx); err != nil {
		b.status.Store(int32(StatusError))
		return fmt.Errorf("bridge: disconnect: %w", err)
	}
	b.status.Store(int32(StatusDisconnected))
	return nil
}

// Close tears the bridge down entirely. The subscription records are
// cleared and the transport is dropped; a subsequent Start builds a fresh
// client through the factory.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	t := b.transport
	b.transport = nil
	b.records = make(map[uint32]ports.SubscriptionConfig)
	b.mu.Unlock()

	b.status.Store(int32(StatusDisconnected))
	if t == nil {
		return nil
	}
	if err := t.Close(ctx); err != nil {
		return fmt.Errorf("bridge: close: %w", err)
	}
	return nil
}

// SubscriptionCount reports how many subscription records are live.
func (b *Bridge) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func (b *Bridge) createAll(ctx context.Context, t ports.Transport) error {
	subs := b.cfg.Subscriptions
	if len(subs) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(subs))
	for _, sc := range subs {
		wg.Add(1)
		go func(sc ports.SubscriptionConfig) {
			defer wg.Done()
			if err := b.subscribe(ctx, t, sc); err != nil {
				errCh <- err
			}
		}(sc)
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return fmt.Errorf("bridge: subscribe: %w", err)
	}
	return nil
}

func (b *Bridge) forward(nodeID string, value any, ts time.Time) {
	p := &domain.DataPoint{
		NodeID:    nodeID,
		Value:     value,
		Timestamp: ts,
		Seq:       b.seq.Add(1),
	}
	if err := b.sink.Publish(p); err != nil {
		b.obs.LogError("publish failed", err, ports.Field{Key: "node", Value: nodeID})
		return
	}
	b.obs.IncCounter("opcflux_points_ingested_total", 1)
}
