package ports

import (
	"context"
	"time"

	"opcflux/internal/domain"
)

// SubscriptionConfig describes one desired value subscription.
type SubscriptionConfig struct {
	NodeID             string        `yaml:"node_id"`
	PublishingInterval time.Duration `yaml:"publishing_interval"`
}

// Reference is one forward reference returned by a browse call. NodeID is in
// parseable form and already resolved against the server namespace table.
type Reference struct {
	NodeID      string
	BrowseName  string
	DisplayName string
	Class       domain.NodeClass
}

// BrowsePage is a single page of browse results. A non-empty
// ContinuationPoint means more pages must be fetched with BrowseNext.
type BrowsePage struct {
	References        []Reference
	ContinuationPoint []byte
}

// ValueChangeHandler receives value-change notifications for monitored nodes.
type ValueChangeHandler func(nodeID string, value any, ts time.Time)

// SubscriptionHandle is a live server-side subscription.
type SubscriptionHandle interface {
	ID() uint32
	MonitorValue(ctx context.Context, nodeID string) error
}

// Transport is the session-level client the bridge talks through.
// Implementations own session negotiation, security, and wire encoding.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Close(ctx context.Context) error

	Browse(ctx context.Context, nodeID string) (BrowsePage, error)
	BrowseNext(ctx context.Context, continuation []byte) (BrowsePage, error)

	CreateSubscription(ctx context.Context, interval time.Duration, onValue ValueChangeHandler) (SubscriptionHandle, error)

	// SetTransferFailureHandler registers the callback invoked when a live
	// subscription could not be carried over to a re-established session.
	SetTransferFailureHandler(fn func(subscriptionID uint32))
}
