package opcflux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"opcflux/internal/adapters/observability"
	"opcflux/internal/adapters/queue"
	"opcflux/internal/adapters/wal"
	"opcflux/internal/domain"
	"opcflux/internal/ports"
)

// ErrQueueFull indicates the in-memory queue rejected the point according to policy.
var ErrQueueFull = errors.New("opcflux: queue full")

// ErrWALFull indicates the WAL is at capacity and OnWALFull != "block".
var ErrWALFull = errors.New("opcflux: wal full")

// Point mirrors the internal domain.DataPoint but is safe for external callers.
type Point struct {
	NodeID       string
	Value        any
	Timestamp    time.Time
	Seq          uint64
	TransformVer uint16
}

// PointBatchSink is invoked with ordered batches dequeued from the pipeline.
type PointBatchSink func([]Point) error

// PublisherConfig configures the WAL-backed publisher used by callers.
type PublisherConfig struct {
	Policy Policy
	WAL    WALConfig
}

// applyDefaults fills in sane thresholds so callers only override what they need.
func (c *PublisherConfig) applyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 10 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/opcflux-wal"
	}
}

func (c *PublisherConfig) validate() error {
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	if c.Policy.MaxQueueLen <= 0 {
		return fmt.Errorf("policy.max_queue_len must be > 0")
	}
	if c.Policy.MaxBatchSize <= 0 {
		return fmt.Errorf("policy.max_batch_size must be > 0")
	}
	return nil
}

// Publisher exposes the WAL→queue→sink pipeline to external producers.
type Publisher struct {
	policy      Policy
	wal         ports.WAL
	queue       ports.PointQueue
	obs         ports.Observability
	transformer ports.Transformer
	sink        PointBatchSink

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewPublisher wires a WAL + bounded queue + sink callback so callers can
// push arbitrary points while reusing the durability/backpressure policies.
func NewPublisher(cfg *PublisherConfig, sink PointBatchSink) (*Publisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink callback is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	walAdapter, err := wal.NewFileWAL(cfg.WAL.Dir)
	if err != nil {
		return nil, err
	}
	q := queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	obs := observability.NewPromObs()

	if err := replayWALIntoQueue(walAdapter, q, cfg.Policy, obs); err != nil {
		return nil, err
	}

	pub := &Publisher{
		policy:      cfg.Policy,
		wal:         walAdapter,
		queue:       q,
		obs:         obs,
		transformer: &noopTransformer{},
		sink:        sink,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	go pub.runIngest()
	return pub, nil
}

// Publish appends the point to the WAL and enqueues it according to policy.
func (p *Publisher) Publish(point Point) error {
	dom := point.toDomain()

	if !waitForLocalWALCapacity(p.wal, p.policy, p.obs) {
		return ErrWALFull
	}

	id, err := p.wal.Append(dom)
	if err != nil {
		return err
	}

	if !enqueueWithLocalPolicy(p.queue, id, dom, p.policy, p.obs) {
		return ErrQueueFull
	}
	return nil
}

// Close waits for the ingest loop to exit, respecting the provided context.
func (p *Publisher) Close(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) runIngest() {
	defer close(p.doneCh)
	idle := p.policy.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		batch := p.queue.DequeueBatch(p.policy.MaxBatchSize)
		if len(batch) == 0 {
			time.Sleep(idle)
			continue
		}

		var (
			converted = make([]Point, 0, len(batch))
			maxID     ports.WALEntryID
		)

		for _, item := range batch {
			pt, err := p.transformer.Transform(item.Point)
			if err != nil {
				p.obs.RecordDLQ(item.ID, item.Point, err)
				continue
			}
			pt.TransformVer = p.transformer.Version()
			converted = append(converted, pointFromDomain(pt))
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		if len(converted) == 0 {
			_ = p.wal.Commit(maxID)
			continue
		}

		if err := p.sink(converted); err != nil {
			p.obs.LogError("publisher_sink_failed", err)
			time.Sleep(idle)
			continue
		}

		p.obs.IncCounter("opcflux_points_published_total", float64(len(converted)))
		if err := p.wal.Commit(maxID); err != nil {
			p.obs.LogError("wal_commit_failed", err)
		}
	}
}

func (p Point) toDomain() *domain.DataPoint {
	return &domain.DataPoint{
		NodeID:       p.NodeID,
		Value:        p.Value,
		Timestamp:    p.Timestamp,
		Seq:          p.Seq,
		TransformVer: p.TransformVer,
	}
}

func pointFromDomain(p *domain.DataPoint) Point {
	return Point{
		NodeID:       p.NodeID,
		Value:        p.Value,
		Timestamp:    p.Timestamp,
		Seq:          p.Seq,
		TransformVer: p.TransformVer,
	}
}

func waitForLocalWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithLocalPolicy(q ports.PointQueue, id ports.WALEntryID, p *domain.DataPoint, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(id, p); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
