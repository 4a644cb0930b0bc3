package fanout

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultProbeTimeout bounds the liveness probe made before binding.
const DefaultProbeTimeout = time.Second

// Endpoint is a bound Unix socket listener together with the socket file it
// created. Only the Endpoint that created the file removes it.
type Endpoint struct {
	path     string
	listener *net.UnixListener
	file     os.FileInfo
	log      *slog.Logger

	releaseOnce sync.Once
}

// Bind claims path for a new listening socket.
//
// A live listener already on path is a fatal ErrAddressInUse. A socket file left
// behind by a crashed process is removed. A path occupied by anything other than
// a socket is refused with ErrInvalidPath and left untouched.
func Bind(path string, probeTimeout time.Duration, log *slog.Logger) (*Endpoint, error) {
	if log == nil {
		log = slog.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPath, path, err)
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	parentDir := filepath.Dir(absPath)
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		log.Error("failed to create socket directory", "dir", parentDir, "error", err)
	}

	if probe(absPath, probeTimeout) {
		return nil, fmt.Errorf("%w: %s is served by another process", ErrAddressInUse, absPath)
	}

	if err := removeStale(absPath, log); err != nil {
		return nil, err
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: absPath, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBind, absPath, err)
	}
	// Removal is explicit in Release so that it can be checked and logged.
	ln.SetUnlinkOnClose(false)

	fi, err := os.Lstat(absPath)
	if err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrBind, absPath, err)
	}

	log.Info("socket bound", "path", absPath)
	return &Endpoint{path: absPath, listener: ln, file: fi, log: log}, nil
}

// probe reports whether something accepts connections on path.
func probe(path string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// removeStale deletes a leftover socket file at path. Failure to remove it is
// logged; the following bind reports the real problem if there is one.
func removeStale(path string, log *slog.Logger) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to stat socket path", "path", path, "error", err)
		}
		return nil
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%w: %s exists and is not a socket", ErrInvalidPath, path)
	}

	log.Info("removing stale socket file", "path", path)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove stale socket file", "path", path, "error", err)
	}
	return nil
}

// Path returns the absolute socket path.
func (e *Endpoint) Path() string { return e.path }

// Listener returns the bound listener.
func (e *Endpoint) Listener() *net.UnixListener { return e.listener }

// Release closes the listener and removes the socket file if it is still the
// one this Endpoint created. It runs once; later calls do nothing.
func (e *Endpoint) Release() {
	e.releaseOnce.Do(func() {
		if err := e.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			e.log.Warn("failed to close listener", "path", e.path, "error", err)
		}

		current, err := os.Lstat(e.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			e.log.Info("socket file already gone", "path", e.path)
			return
		case err != nil:
			e.log.Error("failed to stat socket file during cleanup", "path", e.path, "error", err)
			return
		case !os.SameFile(current, e.file):
			e.log.Warn("socket file replaced by another process, leaving it", "path", e.path)
			return
		}

		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.log.Error("failed to remove socket file during cleanup", "path", e.path, "error", err)
			return
		}
		e.log.Info("removed socket file during cleanup", "path", e.path)
	})
}
