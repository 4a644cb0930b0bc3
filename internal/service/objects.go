package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"

	cfotel "github.com/Strob0t/commitcast/internal/adapter/otel"
	"github.com/Strob0t/commitcast/internal/config"
	"github.com/Strob0t/commitcast/internal/domain/object"
	"github.com/Strob0t/commitcast/internal/fanout"
	"github.com/Strob0t/commitcast/internal/logger"
	"github.com/Strob0t/commitcast/internal/port/broadcast"
	"github.com/Strob0t/commitcast/internal/wire"
)

var _ broadcast.ObjectPublisher = (*ObjectUpdates)(nil)

// ObjectUpdates broadcasts written-object batches on the object socket.
type ObjectUpdates struct {
	ch       *fanout.Channel[object.Batch]
	absorbed absorbCounter
}

// NewObjectUpdates binds the object socket and starts its goroutines.
func NewObjectUpdates(cfg config.Channel, log *slog.Logger) (*ObjectUpdates, error) {
	ch, err := fanout.Open[object.Batch](
		fanout.EncoderFunc[object.Batch](wire.EncodeObjectFrame),
		channelOptions(ObjectsChannel, cfg, log),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s channel: %w", ObjectsChannel, err)
	}
	return &ObjectUpdates{ch: ch}, nil
}

// Enqueue queues updates for every observer connected when the batch is
// dispatched. The batch must not be modified afterwards.
func (s *ObjectUpdates) Enqueue(ctx context.Context, updates object.Batch) error {
	ctx, span := cfotel.StartPublishSpan(ctx, ObjectsChannel)
	defer span.End()

	if err := s.ch.Publish(ctx, updates); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		return fmt.Errorf("enqueue object updates: %w", err)
	}
	return nil
}

// NotifyWritten queues updates and absorbs any error.
func (s *ObjectUpdates) NotifyWritten(ctx context.Context, updates object.Batch) {
	if err := s.Enqueue(ctx, updates); err != nil {
		s.absorbed.inc()
		log := logger.FromContext(ctx).With("channel", ObjectsChannel, "updates", len(updates))
		if errors.Is(err, fanout.ErrQueueClosed) {
			log.Debug("object updates not queued, channel closed")
			return
		}
		log.Warn("object updates not queued", "error", err)
	}
}

// ConnectionCount returns the number of connected observers.
func (s *ObjectUpdates) ConnectionCount() int { return s.ch.ConnectionCount() }

// Path returns the socket path.
func (s *ObjectUpdates) Path() string { return s.ch.Path() }

// Status returns the channel's counters.
func (s *ObjectUpdates) Status() Status {
	return Status{Stats: s.ch.Stats(), Absorbed: s.absorbed.load()}
}

// Close shuts the channel down. See fanout.Channel.Close.
func (s *ObjectUpdates) Close(ctx context.Context) error { return s.ch.Close(ctx) }
