package pipeline

import (
	"fmt"
	"time"

	"opcflux/internal/domain"
	"opcflux/internal/ports"
)

// RunEdgePipeline drains the point channel into the WAL and the in-memory
// queue, honoring the backpressure policy. It returns after starting the
// drain goroutine; closing the channel stops it.
func RunEdgePipeline(points <-chan *domain.DataPoint, wal ports.WAL, q ports.PointQueue, pol ports.Policy, obs ports.Observability) {
	go func() {
		for p := range points {
			if !waitForWALCapacity(wal, pol, obs) {
				continue
			}

			id, err := wal.Append(p)
			if err != nil {
				obs.LogCritical("wal_append_failed", err)
				continue
			}

			if !enqueueWithPolicy(q, id, p, pol, obs) {
				obs.IncCounter("opcflux_queue_dropped_total", 1)
			}
		}
	}()
}

func waitForWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
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

func enqueueWithPolicy(q ports.PointQueue, id ports.WALEntryID, p *domain.DataPoint, pol ports.Policy, obs ports.Observability) bool {
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
