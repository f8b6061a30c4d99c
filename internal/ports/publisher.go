package ports

import "opcflux/internal/domain"

// PublishSink receives every value-change record produced by the bridge.
type PublishSink interface {
	Publish(p *domain.DataPoint) error
}

// PublishFunc adapts a plain function into a PublishSink.
type PublishFunc func(*domain.DataPoint) error

func (f PublishFunc) Publish(p *domain.DataPoint) error { return f(p) }
