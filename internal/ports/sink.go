package ports

import "opcflux/internal/domain"

type Sink interface {
	WriteBatch(points []*domain.DataPoint) error
	Name() string
}
