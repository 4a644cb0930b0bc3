package fanout

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return newConn(a), b
}

func TestRegistryAddPreservesOrder(t *testing.T) {
	var r Registry
	c1, _ := pipeConn(t)
	c2, _ := pipeConn(t)

	assert.Equal(t, 1, r.Add(c1))
	assert.Equal(t, 2, r.Add(c2))
	assert.Equal(t, 2, r.Len())

	var seen []*Conn
	r.Exchange(func(conns []*Conn) []*Conn {
		seen = append(seen, conns...)
		return conns[:1]
	})
	assert.Equal(t, []*Conn{c1, c2}, seen)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRestorePutsSurvivorsFirst(t *testing.T) {
	var r Registry
	c1, _ := pipeConn(t)
	c2, _ := pipeConn(t)
	c3, _ := pipeConn(t)

	r.Add(c1)
	r.Add(c2)

	taken := r.Take()
	require.Len(t, taken, 2)

	r.Add(c3)
	r.Restore([]*Conn{c2})

	assert.Equal(t, 2, r.Len())
	r.Exchange(func(conns []*Conn) []*Conn {
		assert.Equal(t, []*Conn{c2, c3}, conns)
		return conns
	})
}

func TestRegistryCloseAll(t *testing.T) {
	var r Registry
	c1, peer := pipeConn(t)
	r.Add(c1)

	assert.Equal(t, 1, r.CloseAll())
	assert.Equal(t, 0, r.Len())

	_, err := peer.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestRegistryLenDuringSnapshot(t *testing.T) {
	var r Registry
	c1, _ := pipeConn(t)
	c2, _ := pipeConn(t)
	c3, _ := pipeConn(t)

	r.Add(c1)
	r.Add(c2)
	taken := r.Take()
	assert.Equal(t, 2, r.Len(), "taken connections still count")

	assert.Equal(t, 3, r.Add(c3))
	assert.Equal(t, 3, r.Len())

	// c1 failed during the fan-out.
	r.Restore(taken[1:])
	assert.Equal(t, 2, r.Len())

	c4, _ := pipeConn(t)
	assert.Equal(t, 3, r.Add(c4))
}

func TestRegistryExchangePanicReinstalls(t *testing.T) {
	var r Registry
	c1, _ := pipeConn(t)
	c2, _ := pipeConn(t)
	r.Add(c1)
	r.Add(c2)

	assert.Panics(t, func() {
		r.Exchange(func([]*Conn) []*Conn { panic("write exploded") })
	})

	assert.Equal(t, 2, r.Len())
	r.Exchange(func(conns []*Conn) []*Conn {
		assert.Equal(t, []*Conn{c1, c2}, conns)
		return conns
	})
}
