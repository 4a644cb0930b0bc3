package fanout

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketDir returns a short temporary directory; sun_path is limited to ~104 bytes.
func socketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func TestBindCreatesAndReleasesSocket(t *testing.T) {
	path := filepath.Join(socketDir(t), "nested", "a.sock")

	ep, err := Bind(path, 0, nil)
	require.NoError(t, err)

	fi, err := os.Lstat(path)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeSocket)
	assert.Equal(t, path, ep.Path())

	ep.Release()
	_, err = os.Lstat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// A second release is a no-op.
	ep.Release()
}

func TestBindLiveListenerIsAddressInUse(t *testing.T) {
	path := filepath.Join(socketDir(t), "live.sock")

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	_, err = Bind(path, 0, nil)
	require.ErrorIs(t, err, ErrAddressInUse)

	_, err = os.Lstat(path)
	assert.NoError(t, err, "live socket file must not be removed")
}

func TestBindRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(socketDir(t), "stale.sock")

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	require.NoError(t, err)
	ln.SetUnlinkOnClose(false)
	require.NoError(t, ln.Close())

	_, err = os.Lstat(path)
	require.NoError(t, err, "stale socket file should survive listener close")

	ep, err := Bind(path, 0, nil)
	require.NoError(t, err)
	defer ep.Release()

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestBindRefusesRegularFile(t *testing.T) {
	path := filepath.Join(socketDir(t), "plain")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o600))

	_, err := Bind(path, 0, nil)
	require.ErrorIs(t, err, ErrInvalidPath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestBindEmptyPath(t *testing.T) {
	_, err := Bind("", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestReleaseLeavesReplacedFile(t *testing.T) {
	path := filepath.Join(socketDir(t), "replaced.sock")

	ep, err := Bind(path, 0, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	ep.Release()

	_, err = os.Lstat(path)
	assert.NoError(t, err, "file owned by someone else must be left alone")
}
