package ports

import "opcflux/internal/domain"

type Transformer interface {
	Transform(*domain.DataPoint) (*domain.DataPoint, error)
	Version() uint16
}
