package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Strob0t/commitcast/internal/config"
	"github.com/Strob0t/commitcast/internal/wire"
)

// Channels accepted by tail.
const (
	tailObjects = "objects"
	tailTx      = "tx"
)

func newTailCmd(configPath *string) *cobra.Command {
	var (
		channel     string
		socket      string
		effectsOnly bool
		maxSection  uint32
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Connect to a broadcast socket and print each frame as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if socket == "" {
				cfg, err := config.LoadFrom(*configPath)
				if err != nil {
					return fmt.Errorf("config: %w", err)
				}
				switch channel {
				case tailObjects:
					socket = cfg.Objects.SocketPath
				case tailTx:
					socket = cfg.Transactions.SocketPath
				}
			}
			reader, err := frameReader(channel, effectsOnly, maxSection)
			if err != nil {
				return err
			}
			return runTail(cmd.Context(), cmd.OutOrStdout(), socket, reader)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", tailObjects, `channel to read: "objects" or "tx"`)
	cmd.Flags().StringVar(&socket, "socket", "", "socket path (default from config)")
	cmd.Flags().BoolVar(&effectsOnly, "effects-only", false, "tx channel: skip the event section")
	cmd.Flags().Uint32Var(&maxSection, "max-section", wire.DefaultMaxSection, "largest accepted section in bytes")
	return cmd
}

// readFunc reads one frame and returns its decoded form.
type readFunc func(r io.Reader) (any, error)

func frameReader(channel string, effectsOnly bool, limit uint32) (readFunc, error) {
	switch {
	case channel == tailObjects:
		return func(r io.Reader) (any, error) { return wire.ReadObjectFrame(r, limit) }, nil
	case channel == tailTx && effectsOnly:
		return func(r io.Reader) (any, error) { return wire.ReadTxEffectsOnly(r, limit) }, nil
	case channel == tailTx:
		return func(r io.Reader) (any, error) { return wire.ReadTxFrame(r, limit) }, nil
	default:
		return nil, fmt.Errorf("unknown channel %q", channel)
	}
}

func runTail(ctx context.Context, out io.Writer, socket string, read readFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return fmt.Errorf("connect %s: %w", socket, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	err = copyFrames(conn, out, read, isTerminal(out))
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// copyFrames decodes frames from r until EOF and writes one JSON document per frame.
func copyFrames(r io.Reader, w io.Writer, read readFunc, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}

	for {
		v, err := read(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
