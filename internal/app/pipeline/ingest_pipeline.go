package pipeline

import (
	"time"

	"opcflux/internal/domain"
	"opcflux/internal/ports"
)

func RunIngestPipeline(wal ports.WAL, q ports.PointQueue, tr ports.Transformer, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	for {
		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			time.Sleep(pol.IdleSleep)
			continue
		}

		var (
			out   = make([]*domain.DataPoint, 0, len(batch))
			maxID ports.WALEntryID
		)

		for _, item := range batch {
			p, err := tr.Transform(item.Point)
			if err != nil {
				obs.RecordDLQ(item.ID, item.Point, err)
				continue
			}
			p.TransformVer = tr.Version()
			out = append(out, p)
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		if len(out) == 0 {
			_ = wal.Commit(maxID)
			continue
		}

		start := time.Now()
		if err := sink.WriteBatch(out); err != nil {
			obs.LogError("sink_write_failed", err)
			// keep WAL; replays later
			continue
		}
		obs.ObserveLatency("opcflux_sink_latency_seconds", time.Since(start).Seconds())
		obs.IncCounter("opcflux_points_published_total", float64(len(out)))

		if err := wal.Commit(maxID); err != nil {
			obs.LogError("wal_commit_failed", err)
		}
	}
}
