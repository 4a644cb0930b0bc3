// Package service exposes the producer-facing broadcast channels.
package service

import (
	"log/slog"
	"sync/atomic"

	"github.com/Strob0t/commitcast/internal/config"
	"github.com/Strob0t/commitcast/internal/fanout"
)

// Channel names used in logs, metrics and status output.
const (
	ObjectsChannel      = "objects"
	TransactionsChannel = "transactions"
)

// Status is a channel's fanout stats plus the producer calls whose errors were
// absorbed by a fire-and-forget wrapper.
type Status struct {
	fanout.Stats
	Absorbed uint64 `json:"absorbed"`
}

// channelOptions maps validated channel config onto fanout options.
func channelOptions(name string, cfg config.Channel, log *slog.Logger) fanout.Options {
	mode := fanout.FanoutLocked
	if cfg.FanoutMode == config.FanoutSnapshot {
		mode = fanout.FanoutSnapshot
	}
	overflow := fanout.OverflowReject
	if cfg.Overflow == config.OverflowDropOldest {
		overflow = fanout.OverflowDropOldest
	}

	return fanout.Options{
		Name:                 name,
		SocketPath:           cfg.SocketPath,
		ProbeTimeout:         cfg.ProbeTimeout,
		QueueCapacity:        cfg.QueueCapacity,
		Overflow:             overflow,
		Mode:                 mode,
		WriteTimeout:         cfg.WriteTimeout,
		AcceptBackoffInitial: cfg.AcceptBackoffInitial,
		AcceptBackoffMax:     cfg.AcceptBackoffMax,
		Logger:               log,
	}
}

type absorbCounter struct{ n atomic.Uint64 }

func (a *absorbCounter) inc()         { a.n.Add(1) }
func (a *absorbCounter) load() uint64 { return a.n.Load() }
