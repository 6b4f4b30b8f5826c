package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/queue"
)

// emitter publishes events after commit.  Failures are logged and
// swallowed.
type emitter struct {
	pub queue.Publisher
	log *zap.Logger
}

func newEmitter(pub queue.Publisher, log *zap.Logger) emitter {
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return emitter{pub: pub, log: log}
}

func (e emitter) emit(ctx context.Context, typ string, actor, resource uint64, detail string) {
	ev := queue.Event{
		Type:       typ,
		AccountID:  actor,
		ResourceID: resource,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
	// detached from the request so a client disconnect does not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := e.pub.Publish(ctx, ev); err != nil {
		e.log.Warn("publish event failed", zap.String("type", typ), zap.Uint64("resource_id", resource), zap.Error(err))
	}
}
