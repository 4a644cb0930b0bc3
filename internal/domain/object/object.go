// Package object defines the object snapshot published on the object-update channel.
package object

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// IDLength is the byte length of an object identifier.
const IDLength = 32

// ErrInvalidID is returned when an identifier cannot be parsed.
var ErrInvalidID = errors.New("invalid object id")

// ID identifies an object. Text forms are 0x-prefixed lowercase hex.
type ID [IDLength]byte

// ParseID parses a hex identifier with or without the 0x prefix.
// Short inputs are left-padded with zeros.
func ParseID(s string) (ID, error) {
	var id ID
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" || len(s) > IDLength*2 {
		return id, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	copy(id[IDLength-len(raw):], raw)
	return id, nil
}

// MustParseID is ParseID for constants and tests. It panics on error.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// OwnerKind describes who may mutate an object.
type OwnerKind string

const (
	OwnerAddress   OwnerKind = "address"
	OwnerObject    OwnerKind = "object"
	OwnerShared    OwnerKind = "shared"
	OwnerImmutable OwnerKind = "immutable"
)

// Owner is the ownership record of an object snapshot.
type Owner struct {
	Kind                 OwnerKind `json:"kind" cbor:"1,keyasint"`
	Address              string    `json:"address,omitempty" cbor:"2,keyasint,omitempty"`
	InitialSharedVersion uint64    `json:"initial_shared_version,omitempty" cbor:"3,keyasint,omitempty"`
}

// Object is an immutable snapshot of a committed object.
type Object struct {
	ID                  ID     `json:"id" cbor:"1,keyasint"`
	Version             uint64 `json:"version" cbor:"2,keyasint"`
	Digest              string `json:"digest" cbor:"3,keyasint"`
	Type                string `json:"type,omitempty" cbor:"4,keyasint,omitempty"`
	Owner               Owner  `json:"owner" cbor:"5,keyasint"`
	PreviousTransaction string `json:"previous_transaction" cbor:"6,keyasint"`
	StorageRebate       uint64 `json:"storage_rebate,omitempty" cbor:"7,keyasint,omitempty"`
	Contents            []byte `json:"contents,omitempty" cbor:"8,keyasint"`
}

// Update pairs an identifier with the object snapshot written under it.
// It encodes as a two-element array on the wire.
type Update struct {
	_      struct{} `cbor:",toarray"`
	ID     ID       `json:"id"`
	Object Object   `json:"object"`
}

// Batch is the ordered list of updates carried by one broadcast.
type Batch []Update

// IDs returns the identifiers in batch order.
func (b Batch) IDs() []ID {
	ids := make([]ID, len(b))
	for i, u := range b {
		ids[i] = u.ID
	}
	return ids
}
