package fanout

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Conn is one observer connection.
type Conn struct {
	ID         uuid.UUID
	AcceptedAt time.Time
	net.Conn
}

func newConn(c net.Conn) *Conn {
	return &Conn{ID: uuid.New(), AcceptedAt: time.Now(), Conn: c}
}

// Registry is the ordered set of live connections. Every mutation goes through
// one mutex, so an append never lands in the middle of a drain and replace.
type Registry struct {
	mu    sync.Mutex
	conns []*Conn
	taken int // connections held by an outstanding Take
	count atomic.Int64
}

// Add appends c and returns the new size.
func (r *Registry) Add(c *Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns = append(r.conns, c)
	total := r.taken + len(r.conns)
	r.count.Store(int64(total))
	return total
}

// Exchange hands the whole connection list to fn and installs what fn returns,
// holding the gate for the duration of fn. If fn panics the original list is
// reinstalled before the panic propagates; fn must not modify conns in place.
func (r *Registry) Exchange(fn func(conns []*Conn) []*Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.conns
	installed := false
	defer func() {
		if !installed {
			r.conns = conns
		}
		r.count.Store(int64(len(r.conns)))
	}()

	r.conns = nil
	r.conns = fn(conns)
	installed = true
}

// Take removes and returns every connection. Connections added afterwards
// accumulate until Restore.
func (r *Registry) Take() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.conns
	r.conns = nil
	r.taken = len(conns)
	return conns
}

// Restore puts survivors of a Take back ahead of anything added since.
func (r *Registry) Restore(survivors []*Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := make([]*Conn, 0, len(survivors)+len(r.conns))
	merged = append(merged, survivors...)
	merged = append(merged, r.conns...)
	r.conns = merged
	r.taken = 0
	r.count.Store(int64(len(r.conns)))
}

// Len returns the number of registered connections without taking the gate.
// During a snapshot fan-out it counts the taken connections plus those
// accepted since; failures are subtracted when Restore runs.
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// CloseAll closes and removes every connection, returning how many there were.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.conns)
	for _, c := range r.conns {
		_ = c.Close()
	}
	r.conns = nil
	r.taken = 0
	r.count.Store(0)
	return n
}
