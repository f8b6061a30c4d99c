package bridge

import (
	"context"
	"fmt"
	"time"

	"opcflux/internal/ports"
)

// subscribe creates one remote subscription for a single configured node,
// attaches a value monitor, and records the pairing so the bridge can
// resubscribe if the server drops the subscription later.
func (b *Bridge) subscribe(ctx context.Context, t ports.Transport, sc ports.SubscriptionConfig) error {
	if _, err := parseStrictNodeID(sc.NodeID); err != nil {
		return fmt.Errorf("invalid node id %q: %w", sc.NodeID, err)
	}

	interval := sc.PublishingInterval
	if interval <= 0 {
		interval = time.Second
	}

	handle, err := t.CreateSubscription(ctx, interval, b.forward)
	if err != nil {
		return fmt.Errorf("node %q: %w", sc.NodeID, err)
	}
	if err := handle.MonitorValue(ctx, sc.NodeID); err != nil {
		return fmt.Errorf("node %q: %w", sc.NodeID, err)
	}

	b.mu.Lock()
	b.records[handle.ID()] = sc
	b.mu.Unlock()

	b.obs.LogInfo("subscription created",
		ports.Field{Key: "node", Value: sc.NodeID},
		ports.Field{Key: "subscription_id", Value: handle.ID()})
	return nil
}

// onSubscriptionTransferFailed runs when the server refuses to transfer a
// subscription after a reconnect. The original record stays in place; the
// replacement subscription adds its own entry. Failures to resubscribe are
// logged and otherwise swallowed so the remaining subscriptions keep
// flowing.
func (b *Bridge) onSubscriptionTransferFailed(subscriptionID uint32) {
	b.mu.RLock()
	sc, ok := b.records[subscriptionID]
	t := b.transport
	b.mu.RUnlock()

	if !ok {
		b.obs.LogInfo("transfer failure for unknown subscription",
			ports.Field{Key: "subscription_id", Value: subscriptionID})
		return
	}
	if t == nil {
		return
	}

	b.obs.LogInfo("resubscribing after transfer failure",
		ports.Field{Key: "node", Value: sc.NodeID},
		ports.Field{Key: "subscription_id", Value: subscriptionID})

	if err := b.subscribe(context.Background(), t, sc); err != nil {
		b.obs.LogError("resubscribe failed", err,
			ports.Field{Key: "node", Value: sc.NodeID},
			ports.Field{Key: "subscription_id", Value: subscriptionID})
		return
	}
	b.obs.IncCounter("opcflux_subscription_recoveries_total", 1)
}
