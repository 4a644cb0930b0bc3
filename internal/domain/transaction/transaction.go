// Package transaction defines the transaction effects and events published on the
// transaction-effects channel.
package transaction

import (
	"encoding/json"

	"github.com/Strob0t/commitcast/internal/domain/object"
)

// Status is the execution outcome of a transaction.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ExecutionStatus records whether the transaction succeeded and why not.
type ExecutionStatus struct {
	Status Status `json:"status" cbor:"1,keyasint"`
	Error  string `json:"error,omitempty" cbor:"2,keyasint,omitempty"`
}

// GasCostSummary is the gas accounting of one transaction.
type GasCostSummary struct {
	ComputationCost         uint64 `json:"computation_cost" cbor:"1,keyasint"`
	StorageCost             uint64 `json:"storage_cost" cbor:"2,keyasint"`
	StorageRebate           uint64 `json:"storage_rebate" cbor:"3,keyasint"`
	NonRefundableStorageFee uint64 `json:"non_refundable_storage_fee" cbor:"4,keyasint"`
}

// ObjectRef points at one version of an object.
type ObjectRef struct {
	_       struct{}  `cbor:",toarray"`
	ID      object.ID `json:"id"`
	Version uint64    `json:"version"`
	Digest  string    `json:"digest"`
}

// Effects is the committed outcome of a transaction.
type Effects struct {
	TransactionDigest string          `json:"transaction_digest" cbor:"1,keyasint"`
	Status            ExecutionStatus `json:"status" cbor:"2,keyasint"`
	ExecutedEpoch     uint64          `json:"executed_epoch" cbor:"3,keyasint"`
	GasUsed           GasCostSummary  `json:"gas_used" cbor:"4,keyasint"`
	GasObject         ObjectRef       `json:"gas_object" cbor:"5,keyasint"`
	Created           []ObjectRef     `json:"created,omitempty" cbor:"6,keyasint,omitempty"`
	Mutated           []ObjectRef     `json:"mutated,omitempty" cbor:"7,keyasint,omitempty"`
	Unwrapped         []ObjectRef     `json:"unwrapped,omitempty" cbor:"8,keyasint,omitempty"`
	Deleted           []ObjectRef     `json:"deleted,omitempty" cbor:"9,keyasint,omitempty"`
	Wrapped           []ObjectRef     `json:"wrapped,omitempty" cbor:"10,keyasint,omitempty"`
	Dependencies      []string        `json:"dependencies,omitempty" cbor:"11,keyasint,omitempty"`
	EventsDigest      string          `json:"events_digest,omitempty" cbor:"12,keyasint,omitempty"`
}

// Succeeded reports whether the transaction executed successfully.
func (e *Effects) Succeeded() bool {
	return e.Status.Status == StatusSuccess
}

// EventID identifies an event within its transaction.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq uint64 `json:"eventSeq,string"`
}

// Event is one event emitted by a transaction. The JSON field names follow the
// node's JSON-RPC event schema so existing consumers can decode them unchanged.
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         object.ID       `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson,omitempty"`
	BCS               []byte          `json:"bcs,omitempty"`
	TimestampMs       uint64          `json:"timestampMs,string,omitempty"`
}

// Message is one transaction-channel broadcast: the effects plus the ordered events.
type Message struct {
	Effects Effects `json:"effects"`
	Events  []Event `json:"events"`
}
