package observability

import (
	"log"

	"opcflux/internal/domain"
	"opcflux/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opcflux_points_ingested_total",
		Help: "Total data points received from subscriptions.",
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opcflux_points_published_total",
		Help: "Total data points successfully written to the sink.",
	})
	recoveries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opcflux_subscription_recoveries_total",
		Help: "Subscriptions recreated after a failed server-side transfer.",
	})
	walGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "opcflux_wal_size_bytes",
		Help: "Size of WAL on disk.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "opcflux_queue_length",
		Help: "Current number of points buffered in the in-memory queue.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "opcflux_sink_latency_seconds",
		Help:    "End-to-end latency from dequeued point to sink commit.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	dlq := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opcflux_dlq_total",
		Help: "Points sent to DLQ due to transform/sink failures.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opcflux_queue_dropped_total",
		Help: "Points lost due to queue backpressure policies.",
	})

	prometheus.MustRegister(ingested, published, recoveries, walGauge, queueGauge, latency, dlq, queueDrops)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"opcflux_points_ingested_total":         ingested,
			"opcflux_points_published_total":        published,
			"opcflux_subscription_recoveries_total": recoveries,
			"opcflux_dlq_total":                     dlq,
			"opcflux_queue_dropped_total":           queueDrops,
		},
		gauges: map[string]prometheus.Gauge{
			"opcflux_wal_size_bytes": walGauge,
			"opcflux_queue_length":   queueGauge,
		},
		histos: map[string]prometheus.Observer{
			"opcflux_sink_latency_seconds": latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v", msg, err)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDLQ(id ports.WALEntryID, pt *domain.DataPoint, err error) {
	p.IncCounter("opcflux_dlq_total", 1)
	if err != nil && pt != nil {
		log.Printf("DLQ point node=%s err=%v", pt.NodeID, err)
	}
}

var _ ports.Observability = (*PromObs)(nil)
