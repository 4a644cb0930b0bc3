// Package wire implements the two framing protocols spoken on the broadcast sockets.
//
// Both protocols are one-way and carry no handshake, acknowledgement or sender
// identity. They are deliberately not interoperable: a reader must know which
// socket it is attached to.
//
// Object updates (protocol version 1):
//
//	u32 little-endian length | CBOR array of [id, object] pairs
//
// Transaction effects (protocol version 1):
//
//	u32 big-endian length | CBOR effects | u32 big-endian length | JSON array of events
//
// Readers learn every section size from its length field before allocating, and
// the event section of a transaction frame can be skipped without parsing it.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"
)

const (
	// ObjectProtocolVersion is the version of the object-update framing.
	ObjectProtocolVersion = 1
	// TxProtocolVersion is the version of the transaction-effects framing.
	TxProtocolVersion = 1

	// DefaultMaxSection bounds a single section a reader will allocate.
	DefaultMaxSection uint32 = 64 << 20

	lengthSize = 4
)

var (
	// ErrFrameTooLarge is returned when a section exceeds the reader's limit or
	// cannot be described by a 32-bit length.
	ErrFrameTooLarge = errors.New("frame section too large")
	// ErrShortFrame is returned when the stream ends inside a frame.
	ErrShortFrame = errors.New("short frame")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 24,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor dec mode: %v", err))
	}
}

// putSection appends a length-prefixed section to dst.
func putSection(dst []byte, order binary.AppendByteOrder, section []byte) ([]byte, error) {
	if uint64(len(section)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(section))
	}
	dst = order.AppendUint32(dst, uint32(len(section)))
	return append(dst, section...), nil
}

// readLength reads one length field. A clean end of stream before the first byte
// is reported as io.EOF.
func readLength(r io.Reader, order binary.ByteOrder, limit uint32) (uint32, error) {
	var hdr [lengthSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("%w: length: %v", ErrShortFrame, err)
	}
	n := order.Uint32(hdr[:])
	if n > limit {
		return 0, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, limit)
	}
	return n, nil
}

func readBody(r io.Reader, n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrShortFrame, err)
	}
	return buf, nil
}

func skipBody(r io.Reader, n uint32) error {
	if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
		return fmt.Errorf("%w: skip: %v", ErrShortFrame, err)
	}
	return nil
}

func limitOrDefault(limit uint32) uint32 {
	if limit == 0 {
		return DefaultMaxSection
	}
	return limit
}
