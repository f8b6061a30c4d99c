package opcflux

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opcflux/internal/adapters/observability"
	"opcflux/internal/adapters/opcua"
	"opcflux/internal/adapters/queue"
	"opcflux/internal/adapters/sink"
	"opcflux/internal/adapters/wal"
	"opcflux/internal/app/pipeline"
	"opcflux/internal/bridge"
	"opcflux/internal/domain"
	"opcflux/internal/ports"
)

// TransportFactory builds the OPC UA transport used by the bridge. Custom
// factories can inject simulators or recorded sessions.
type TransportFactory func() (Transport, error)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	transport     TransportFactory
	sink          Sink
	transformer   Transformer
	wal           WAL
	queue         PointQueue
	observability Observability
}

// WithTransportFactory injects a custom transport (simulators, replays, test fakes).
func WithTransportFactory(f TransportFactory) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.transport = f
	}
}

// WithSink injects a custom sink so points can be sent to any database or API.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithTransformer overrides the default no-op transformer.
func WithTransformer(t Transformer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.transformer = t
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an existing instance.
func WithWAL(w WAL) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.wal = w
	}
}

// WithPointQueue injects a custom queue implementation (e.g., lock-free, sharded).
func WithPointQueue(q PointQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend (OpenTelemetry, structured logs, etc.).
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// Runtime wires up the bridge → WAL → queue → sink pipeline and exposes
// simple lifecycle hooks for embedding opcflux inside any Go service.
type Runtime struct {
	cfg         *Config
	policy      ports.Policy
	obs         ports.Observability
	wal         ports.WAL
	queue       ports.PointQueue
	bridge      *bridge.Bridge
	transformer ports.Transformer
	sink        ports.Sink
	db          *sql.DB
	points      chan *domain.DataPoint
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// NewRuntime bootstraps the default adapters (OPC UA transport, file WAL,
// in-memory queue, Timescale sink, Prometheus observability). Callers can use
// RuntimeOption values to override any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	var (
		walAdapter ports.WAL
		err        error
	)
	if overrides.wal != nil {
		walAdapter = overrides.wal
	} else {
		walAdapter, err = wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return nil, err
		}
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	if err := replayWALIntoQueue(walAdapter, q, cfg.Policy, obs); err != nil {
		return nil, err
	}

	factory := overrides.transport
	if factory == nil {
		endpoint := cfg.Endpoint
		factory = func() (Transport, error) {
			return opcua.NewClient(endpoint)
		}
	}

	var (
		db  *sql.DB
		snk ports.Sink
	)
	if overrides.sink != nil {
		snk = overrides.sink
	} else {
		db, err = sql.Open("postgres", cfg.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		snk = sink.NewTimescaleSink(db, cfg.Timescale.Table)
	}

	tr := overrides.transformer
	if tr == nil {
		tr = &noopTransformer{}
	}

	points := make(chan *domain.DataPoint, cfg.Policy.MaxQueueLen)

	br := bridge.New(
		bridge.Config{Subscriptions: cfg.Subscriptions},
		bridge.TransportFactory(factory),
		ports.PublishFunc(func(p *domain.DataPoint) error {
			points <- p
			return nil
		}),
		obs,
	)

	return &Runtime{
		cfg:         cfg,
		policy:      cfg.Policy,
		obs:         obs,
		wal:         walAdapter,
		queue:       q,
		bridge:      br,
		transformer: tr,
		sink:        snk,
		db:          db,
		points:      points,
	}, nil
}

// Start connects the bridge, begins the edge + ingest pipelines, and launches
// the observability stack. It returns once the bridge is connected; call Run
// to block on a context instead.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}

	pipeline.RunEdgePipeline(r.points, r.wal, r.queue, r.policy, r.obs)
	go pipeline.RunIngestPipeline(r.wal, r.queue, r.transformer, r.sink, r.policy, r.obs)

	if err := r.bridge.Start(ctx); err != nil {
		return err
	}

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Status reports the bridge connection state.
func (r *Runtime) Status() Status {
	return r.bridge.Status()
}

// Discover walks the remote address space and reports nodes to fn. The
// runtime must be started first.
func (r *Runtime) Discover(ctx context.Context, root string, depth int, fn DiscoverySink) error {
	return r.bridge.Discover(ctx, root, depth, fn)
}

// Shutdown stops the bridge, metrics server, and DB connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.bridge != nil {
		if err := r.bridge.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := r.wal.Stats()
			r.obs.SetGauge("opcflux_wal_size_bytes", float64(stats.SizeBytes))
			r.obs.SetGauge("opcflux_queue_length", float64(r.queue.Len()))
		}
	}
}

func replayWALIntoQueue(walAdapter ports.WAL, q ports.PointQueue, pol ports.Policy, obs ports.Observability) error {
	stats := walAdapter.Stats()
	if stats.LatestAppended == 0 {
		return nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return nil
	}

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	var replayed int
	err := walAdapter.Iterate(start, func(id ports.WALEntryID, p *domain.DataPoint) error {
		for {
			if q.Enqueue(id, p) {
				replayed++
				return nil
			}
			switch pol.OnQueueFull {
			case "drop", "reject":
				return fmt.Errorf("queue full during WAL replay")
			default:
				time.Sleep(sleep)
			}
		}
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		obs.LogInfo("wal_replay_complete",
			ports.Field{Key: "points", Value: replayed},
			ports.Field{Key: "from_id", Value: start})
	}
	return nil
}

type noopTransformer struct{}

func (n *noopTransformer) Transform(p *domain.DataPoint) (*domain.DataPoint, error) { return p, nil }
func (n *noopTransformer) Version() uint16                                          { return 1 }
