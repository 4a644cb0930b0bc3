package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Strob0t/commitcast/internal/domain/transaction"
)

// EncodeTxFrame serializes effects and events into one complete transaction frame.
// A nil event list is written as an empty JSON array.
func EncodeTxFrame(effects *transaction.Effects, events []transaction.Event) ([]byte, error) {
	effectsBytes, err := encMode.Marshal(effects)
	if err != nil {
		return nil, fmt.Errorf("encode effects: %w", err)
	}
	if events == nil {
		events = []transaction.Event{}
	}
	eventBytes, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}

	frame := make([]byte, 0, 2*lengthSize+len(effectsBytes)+len(eventBytes))
	if frame, err = putSection(frame, binary.BigEndian, effectsBytes); err != nil {
		return nil, err
	}
	return putSection(frame, binary.BigEndian, eventBytes)
}

// EncodeTxMessage is EncodeTxFrame for a transaction.Message.
func EncodeTxMessage(msg transaction.Message) ([]byte, error) {
	return EncodeTxFrame(&msg.Effects, msg.Events)
}

// ReadTxFrame reads the next transaction frame from r. limit bounds each section;
// zero selects DefaultMaxSection. It returns io.EOF when r ends cleanly between
// frames.
func ReadTxFrame(r io.Reader, limit uint32) (transaction.Message, error) {
	var msg transaction.Message
	if err := readEffects(r, limitOrDefault(limit), &msg.Effects); err != nil {
		return msg, err
	}

	n, err := readLength(r, binary.BigEndian, limitOrDefault(limit))
	if err != nil {
		return msg, shortIfEOF(err)
	}
	body, err := readBody(r, n)
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(body, &msg.Events); err != nil {
		return msg, fmt.Errorf("decode events: %w", err)
	}
	return msg, nil
}

// ReadTxEffectsOnly reads the next transaction frame but discards the event
// section using only its length field.
func ReadTxEffectsOnly(r io.Reader, limit uint32) (transaction.Effects, error) {
	var effects transaction.Effects
	if err := readEffects(r, limitOrDefault(limit), &effects); err != nil {
		return effects, err
	}
	n, err := readLength(r, binary.BigEndian, limitOrDefault(limit))
	if err != nil {
		return effects, shortIfEOF(err)
	}
	return effects, skipBody(r, n)
}

func readEffects(r io.Reader, limit uint32, dst *transaction.Effects) error {
	n, err := readLength(r, binary.BigEndian, limit)
	if err != nil {
		return err
	}
	body, err := readBody(r, n)
	if err != nil {
		return err
	}
	if err := decMode.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode effects: %w", err)
	}
	return nil
}

// shortIfEOF turns a clean EOF in the middle of a frame into ErrShortFrame.
func shortIfEOF(err error) error {
	if err == io.EOF {
		return fmt.Errorf("%w: missing events section", ErrShortFrame)
	}
	return err
}
