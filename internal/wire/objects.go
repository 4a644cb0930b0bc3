package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Strob0t/commitcast/internal/domain/object"
)

// EncodeObjectFrame serializes a batch into one complete object-update frame.
func EncodeObjectFrame(batch object.Batch) ([]byte, error) {
	body, err := encMode.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode object batch: %w", err)
	}
	return putSection(make([]byte, 0, lengthSize+len(body)), binary.LittleEndian, body)
}

// ReadObjectFrame reads the next object-update frame from r. limit bounds the
// section size; zero selects DefaultMaxSection. It returns io.EOF when r ends
// cleanly between frames.
func ReadObjectFrame(r io.Reader, limit uint32) (object.Batch, error) {
	n, err := readLength(r, binary.LittleEndian, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	body, err := readBody(r, n)
	if err != nil {
		return nil, err
	}
	var batch object.Batch
	if err := decMode.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("decode object batch: %w", err)
	}
	return batch, nil
}
