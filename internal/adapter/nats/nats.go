// Package nats bridges the execution engine to the broadcast channels over NATS
// core subjects, for deployments where the engine runs in another process.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/Strob0t/commitcast/internal/domain/object"
	"github.com/Strob0t/commitcast/internal/domain/transaction"
	"github.com/Strob0t/commitcast/internal/logger"
	"github.com/Strob0t/commitcast/internal/port/broadcast"
)

// Default subjects.
const (
	DefaultObjectsSubject = "commitcast.objects"
	DefaultTxSubject      = "commitcast.tx"
)

// ErrMalformedPayload is returned by handlers for messages that do not decode.
var ErrMalformedPayload = errors.New("malformed ingress payload")

// Handler processes the payload received on subject.
type Handler func(ctx context.Context, subject string, data []byte) error

// Ingress subscribes to the engine subjects and forwards into the publishers.
// A nil publisher leaves its subject unsubscribed.
type Ingress struct {
	nc      *nats.Conn
	objects broadcast.ObjectPublisher
	txs     broadcast.TransactionPublisher

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewIngress wraps an established connection. Use Connect to dial one.
func NewIngress(nc *nats.Conn, objects broadcast.ObjectPublisher, txs broadcast.TransactionPublisher) *Ingress {
	return &Ingress{nc: nc, objects: objects, txs: txs}
}

// Connect dials url with reconnects enabled and logs connection state changes.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("commitcast"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slog.Info("nats connected", "url", url)
	return nc, nil
}

// Start subscribes to the given subjects. Empty subjects fall back to the defaults.
func (in *Ingress) Start(objectsSubject, txSubject string) error {
	if objectsSubject == "" {
		objectsSubject = DefaultObjectsSubject
	}
	if txSubject == "" {
		txSubject = DefaultTxSubject
	}

	if in.objects != nil {
		if err := in.subscribe(objectsSubject, in.HandleObjects); err != nil {
			return err
		}
	}
	if in.txs != nil {
		if err := in.subscribe(txSubject, in.HandleTx); err != nil {
			in.Stop()
			return err
		}
	}
	return nil
}

func (in *Ingress) subscribe(subject string, handler Handler) error {
	sub, err := in.nc.Subscribe(subject, func(msg *nats.Msg) {
		log := slog.Default().With("subject", msg.Subject)
		ctx := logger.WithLogger(context.Background(), log)
		if err := handler(ctx, msg.Subject, msg.Data); err != nil {
			log.Error("ingress message rejected", "error", err, "bytes", len(msg.Data))
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	in.mu.Lock()
	in.subs = append(in.subs, sub)
	in.mu.Unlock()

	slog.Info("nats ingress subscribed", "subject", subject)
	return nil
}

// HandleObjects decodes a JSON array of object updates and forwards it.
func (in *Ingress) HandleObjects(ctx context.Context, subject string, data []byte) error {
	var batch object.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, subject, err)
	}
	in.objects.NotifyWritten(ctx, batch)
	return nil
}

// HandleTx decodes a JSON {effects, events} document and forwards it.
func (in *Ingress) HandleTx(ctx context.Context, subject string, data []byte) error {
	var msg transaction.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, subject, err)
	}
	if msg.Effects.TransactionDigest == "" {
		return fmt.Errorf("%w: %s: missing effects.transaction_digest", ErrMalformedPayload, subject)
	}
	in.txs.SendEffectsAndEvents(ctx, msg.Effects, msg.Events)
	return nil
}

// Stop drains every subscription. Messages already delivered to a handler
// finish normally.
func (in *Ingress) Stop() {
	in.mu.Lock()
	subs := in.subs
	in.subs = nil
	in.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			slog.Warn("nats drain failed", "subject", sub.Subject, "error", err)
		}
	}
}
