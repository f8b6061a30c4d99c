package opcflux

import (
	"opcflux/internal/bridge"
	"opcflux/internal/domain"
	"opcflux/internal/ports"
)

// PipelinePoint is the data structure that flows through the WAL→queue→sink
// pipeline. It mirrors internal/domain.DataPoint but is exported so custom
// adapters can reference it.
type PipelinePoint = domain.DataPoint

// QueuedPoint represents an item buffered inside the bounded queue.
type QueuedPoint = ports.QueuedPoint

// Transport is the OPC UA session abstraction the bridge drives. Custom
// implementations can replace the default client for testing or simulation.
type Transport = ports.Transport

// SubscriptionHandle is one live remote subscription.
type SubscriptionHandle = ports.SubscriptionHandle

// BrowsePage is one page of references returned by a browse call.
type BrowsePage = ports.BrowsePage

// Reference is one entry in a browse page.
type Reference = ports.Reference

// ValueChangeHandler receives monitored value updates from a subscription.
type ValueChangeHandler = ports.ValueChangeHandler

// PointQueue is the bounded, in-memory queue that decouples the bridge and sink.
type PointQueue = ports.PointQueue

// Transformer lets callers mutate points (unit conversion, calibration, enrichment) before persistence.
type Transformer = ports.Transformer

// Sink consumes batches of points and persists them to any downstream system.
type Sink = ports.Sink

// Observability emits metrics/logs about throughput, latency, and DLQ conditions.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID

// Status is the bridge connection state.
type Status = bridge.Status

const (
	StatusDisconnected = bridge.StatusDisconnected
	StatusConnected    = bridge.StatusConnected
	StatusError        = bridge.StatusError
)

// DiscoveredNode is one node reported during an address space walk.
type DiscoveredNode = domain.DiscoveredNode

// NodeClassification is the coarse OBJECT/VALUE/FOLDER grouping.
type NodeClassification = domain.NodeClassification

const (
	ClassificationObject      = domain.ClassificationObject
	ClassificationValue       = domain.ClassificationValue
	ClassificationFolder      = domain.ClassificationFolder
	ClassificationUnspecified = domain.ClassificationUnspecified
)

// DiscoverySink receives nodes as the walker finds them.
type DiscoverySink = bridge.DiscoverySink
