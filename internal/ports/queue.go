package ports

import "opcflux/internal/domain"

type QueuedPoint struct {
	ID    WALEntryID
	Point *domain.DataPoint
}

type PointQueue interface {
	Enqueue(id WALEntryID, p *domain.DataPoint) bool
	DequeueBatch(max int) []QueuedPoint
	Len() int
}
