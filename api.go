package opcflux

import (
	base "opcflux/pkg/opcflux"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrWALFull           = base.ErrWALFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import opcflux directly.
type (
	Config             = base.Config
	Policy             = base.Policy
	EndpointConfig     = base.EndpointConfig
	SubscriptionConfig = base.SubscriptionConfig
	DiscoveryConfig    = base.DiscoveryConfig
	TimescaleConfig    = base.TimescaleConfig
	MetricsConfig      = base.MetricsConfig
	WALConfig          = base.WALConfig
	Flow               = base.Flow
	FlowOption         = base.FlowOption
	StreamInOption     = base.StreamInOption
	StreamOutOption    = base.StreamOutOption
	Runtime            = base.Runtime
	RuntimeOption      = base.RuntimeOption
	TransportFactory   = base.TransportFactory
	Transport          = base.Transport
	SubscriptionHandle = base.SubscriptionHandle
	BrowsePage         = base.BrowsePage
	Reference          = base.Reference
	ValueChangeHandler = base.ValueChangeHandler
	Point              = base.Point
	PointBatchSink     = base.PointBatchSink
	Sink               = base.Sink
	Transformer        = base.Transformer
	PointQueue         = base.PointQueue
	WAL                = base.WAL
	Observability      = base.Observability
	Field              = base.Field
	QueuedPoint        = base.QueuedPoint
	PipelinePoint      = base.PipelinePoint
	WALEntryID         = base.WALEntryID
	WALStats           = base.WALStats
	Publisher          = base.Publisher
	PublisherConfig    = base.PublisherConfig
	Status             = base.Status
	DiscoveredNode     = base.DiscoveredNode
	NodeClassification = base.NodeClassification
	DiscoverySink      = base.DiscoverySink
)

// Bridge status values.
const (
	StatusDisconnected = base.StatusDisconnected
	StatusConnected    = base.StatusConnected
	StatusError        = base.StatusError
)

// Node classification values.
const (
	ClassificationObject      = base.ClassificationObject
	ClassificationValue       = base.ClassificationValue
	ClassificationFolder      = base.ClassificationFolder
	ClassificationUnspecified = base.ClassificationUnspecified
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInTransport(factory TransportFactory) StreamInOption {
	return base.StreamInTransport(factory)
}

func StreamInQueue(q PointQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInWAL(w WAL) StreamInOption {
	return base.StreamInWAL(w)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutTransformer(tr Transformer) StreamOutOption {
	return base.StreamOutTransformer(tr)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn PointBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithTransportFactory(f TransportFactory) RuntimeOption {
	return base.WithTransportFactory(f)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithTransformer(tr Transformer) RuntimeOption {
	return base.WithTransformer(tr)
}

func WithWAL(w WAL) RuntimeOption {
	return base.WithWAL(w)
}

func WithPointQueue(q PointQueue) RuntimeOption {
	return base.WithPointQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Sink adapters.
func NewCallbackSink(name string, fn PointBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Point, func()) {
	return base.NewChannelSink(name, buffer)
}

// External publisher.
func NewPublisher(cfg *PublisherConfig, sink PointBatchSink) (*Publisher, error) {
	return base.NewPublisher(cfg, sink)
}
