package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/commitcast/internal/domain/object"
	"github.com/Strob0t/commitcast/internal/domain/transaction"
	"github.com/Strob0t/commitcast/internal/wire"
)

func TestCopyObjectFrames(t *testing.T) {
	id := object.MustParseID("0x9")
	batch := object.Batch{{ID: id, Object: object.Object{ID: id, Version: 3, Digest: "d"}}}

	var in bytes.Buffer
	for range 2 {
		frame, err := wire.EncodeObjectFrame(batch)
		require.NoError(t, err)
		in.Write(frame)
	}

	read, err := frameReader(tailObjects, false, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, copyFrames(&in, &out, read, false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	require.Len(t, got, 1)
	assert.Equal(t, id.String(), got[0]["id"])
}

func TestCopyTxFramesEffectsOnly(t *testing.T) {
	effects := transaction.Effects{TransactionDigest: "tx-1", Status: transaction.ExecutionStatus{Status: transaction.StatusSuccess}}
	events := []transaction.Event{{ID: transaction.EventID{TxDigest: "tx-1"}, Type: "T"}}

	frame, err := wire.EncodeTxFrame(&effects, events)
	require.NoError(t, err)

	read, err := frameReader(tailTx, true, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, copyFrames(bytes.NewReader(frame), &out, read, true))

	assert.Contains(t, out.String(), `"transaction_digest": "tx-1"`)
	assert.NotContains(t, out.String(), "events")
}

func TestCopyFramesTruncated(t *testing.T) {
	frame, err := wire.EncodeObjectFrame(object.Batch{})
	require.NoError(t, err)
	frame = append(frame, 0x10, 0x00) // half a length header

	read, err := frameReader(tailObjects, false, 0)
	require.NoError(t, err)

	err = copyFrames(bytes.NewReader(frame), &bytes.Buffer{}, read, false)
	assert.ErrorIs(t, err, wire.ErrShortFrame)
}

func TestFrameReaderUnknownChannel(t *testing.T) {
	_, err := frameReader("blocks", false, 0)
	assert.Error(t, err)
}
