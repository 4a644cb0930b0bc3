package fanout

import "errors"

var (
	// ErrAddressInUse means another live process is listening on the socket path.
	ErrAddressInUse = errors.New("socket address already in use")
	// ErrInvalidPath means the configured socket path cannot be used.
	ErrInvalidPath = errors.New("invalid socket path")
	// ErrBind wraps any other failure to create the listening socket.
	ErrBind = errors.New("bind socket")
	// ErrQueueClosed is returned by Publish once the dispatcher has stopped.
	ErrQueueClosed = errors.New("broadcast queue closed")
	// ErrQueueFull is returned by Publish when a bounded queue rejects a message.
	ErrQueueFull = errors.New("broadcast queue full")
)
