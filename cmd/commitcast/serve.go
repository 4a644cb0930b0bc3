package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cfnats "github.com/Strob0t/commitcast/internal/adapter/nats"
	cfotel "github.com/Strob0t/commitcast/internal/adapter/otel"
	"github.com/Strob0t/commitcast/internal/config"
	"github.com/Strob0t/commitcast/internal/logger"
	"github.com/Strob0t/commitcast/internal/port/broadcast"
	"github.com/Strob0t/commitcast/internal/service"
)

const (
	channelCloseTimeout = 10 * time.Second
	httpShutdownTimeout = 5 * time.Second
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Bind the broadcast sockets and run until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closer := logger.New(cfg.Logging)
	defer closer.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"objects_socket", cfg.Objects.SocketPath,
		"objects_enabled", cfg.Objects.Enabled,
		"tx_socket", cfg.Transactions.SocketPath,
		"tx_enabled", cfg.Transactions.Enabled,
		"log_level", cfg.Logging.Level,
	)

	shutdownTelemetry, err := cfotel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Channels ---

	var (
		sources   []statusSource
		objectPub broadcast.ObjectPublisher
		txPub     broadcast.TransactionPublisher
	)

	if cfg.Objects.Enabled {
		objects, err := service.NewObjectUpdates(cfg.Objects, log)
		if err != nil {
			return err
		}
		defer closeChannel(service.ObjectsChannel, objects.Close)
		objectPub = objects
		sources = append(sources, objects)
	}

	if cfg.Transactions.Enabled {
		txs, err := service.NewTxEffects(cfg.Transactions, log)
		if err != nil {
			return err
		}
		defer closeChannel(service.TransactionsChannel, txs.Close)
		txPub = txs
		sources = append(sources, txs)
	}

	if len(sources) == 0 {
		return errors.New("no channel enabled")
	}

	// --- Ingress ---

	if cfg.NATS.URL != "" {
		nc, err := cfnats.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Close()

		ingress := cfnats.NewIngress(nc, objectPub, txPub)
		if err := ingress.Start(cfg.NATS.ObjectsSubject, cfg.NATS.TxSubject); err != nil {
			return err
		}
		defer ingress.Stop()
	}

	// --- Admin HTTP ---

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Admin.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Admin.Addr,
			Handler:           newAdminRouter(cfg.Telemetry.ServiceName, sources),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		g.Go(func() error {
			slog.Info("starting admin server", "addr", cfg.Admin.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	slog.Info("commitcast running", "channels", len(sources))
	err = g.Wait()
	slog.Info("shutting down")
	return err
}

func closeChannel(name string, closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), channelCloseTimeout)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		slog.Warn("channel close incomplete", "channel", name, "error", err)
	}
}
