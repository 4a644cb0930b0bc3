// Package broadcast defines the ports the execution engine uses to hand committed
// data to the local observer sockets.
package broadcast

import (
	"context"

	"github.com/Strob0t/commitcast/internal/domain/object"
	"github.com/Strob0t/commitcast/internal/domain/transaction"
)

// ObjectPublisher broadcasts batches of written objects.
type ObjectPublisher interface {
	// Enqueue queues updates for delivery and reports whether they were accepted.
	Enqueue(ctx context.Context, updates object.Batch) error
	// NotifyWritten is the fire-and-forget form of Enqueue. It never fails.
	NotifyWritten(ctx context.Context, updates object.Batch)
}

// TransactionPublisher broadcasts the effects and events of executed transactions.
type TransactionPublisher interface {
	// Enqueue queues one transaction for delivery and reports whether it was accepted.
	Enqueue(ctx context.Context, effects transaction.Effects, events []transaction.Event) error
	// SendEffectsAndEvents is the fire-and-forget form of Enqueue. It never fails.
	SendEffectsAndEvents(ctx context.Context, effects transaction.Effects, events []transaction.Event)
}
