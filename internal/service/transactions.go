package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	cfotel "github.com/Strob0t/commitcast/internal/adapter/otel"
	"github.com/Strob0t/commitcast/internal/config"
	"github.com/Strob0t/commitcast/internal/domain/transaction"
	"github.com/Strob0t/commitcast/internal/fanout"
	"github.com/Strob0t/commitcast/internal/logger"
	"github.com/Strob0t/commitcast/internal/port/broadcast"
	"github.com/Strob0t/commitcast/internal/wire"
)

var _ broadcast.TransactionPublisher = (*TxEffects)(nil)

// TxEffects broadcasts transaction effects and events on the transaction socket.
type TxEffects struct {
	ch       *fanout.Channel[transaction.Message]
	absorbed absorbCounter
}

// NewTxEffects binds the transaction socket and starts its goroutines.
func NewTxEffects(cfg config.Channel, log *slog.Logger) (*TxEffects, error) {
	ch, err := fanout.Open[transaction.Message](
		fanout.EncoderFunc[transaction.Message](wire.EncodeTxMessage),
		channelOptions(TransactionsChannel, cfg, log),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s channel: %w", TransactionsChannel, err)
	}
	return &TxEffects{ch: ch}, nil
}

// Enqueue queues one transaction's effects and events.
func (s *TxEffects) Enqueue(ctx context.Context, effects transaction.Effects, events []transaction.Event) error {
	ctx, span := cfotel.StartPublishSpan(ctx, TransactionsChannel)
	defer span.End()
	span.SetAttributes(
		attribute.String("tx.digest", effects.TransactionDigest),
		attribute.Int("tx.events", len(events)),
	)

	if err := s.ch.Publish(ctx, transaction.Message{Effects: effects, Events: events}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		return fmt.Errorf("enqueue tx %s: %w", effects.TransactionDigest, err)
	}
	return nil
}

// SendEffectsAndEvents queues one transaction and absorbs any error.
func (s *TxEffects) SendEffectsAndEvents(ctx context.Context, effects transaction.Effects, events []transaction.Event) {
	if err := s.Enqueue(ctx, effects, events); err != nil {
		s.absorbed.inc()
		log := logger.FromContext(ctx).With("channel", TransactionsChannel, "tx_digest", effects.TransactionDigest)
		if errors.Is(err, fanout.ErrQueueClosed) {
			log.Debug("transaction not queued, channel closed")
			return
		}
		log.Warn("transaction not queued", "error", err)
	}
}

// ConnectionCount returns the number of connected observers.
func (s *TxEffects) ConnectionCount() int { return s.ch.ConnectionCount() }

// Path returns the socket path.
func (s *TxEffects) Path() string { return s.ch.Path() }

// Status returns the channel's counters.
func (s *TxEffects) Status() Status {
	return Status{Stats: s.ch.Stats(), Absorbed: s.absorbed.load()}
}

// Close shuts the channel down. See fanout.Channel.Close.
func (s *TxEffects) Close(ctx context.Context) error { return s.ch.Close(ctx) }
