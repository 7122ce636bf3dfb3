package invalidation

import (
	"context"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/metrics"
)

// Local is the broadcaster of a deployment with a single process
type Local struct {
	entities *cache.Entities
}

func NewLocal(entities *cache.Entities) *Local {
	return &Local{entities: entities}
}

func (l *Local) Invalidate(ctx context.Context, kind cache.Kind, id string) error {
	l.entities.Delete(kind, id)
	metrics.InvalidationsSent.WithLabelValues("local").Inc()
	return nil
}

func (l *Local) Close() error {
	return nil
}
