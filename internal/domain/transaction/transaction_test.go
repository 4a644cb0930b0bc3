package transaction

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEffectsSucceeded(t *testing.T) {
	ok := Effects{Status: ExecutionStatus{Status: StatusSuccess}}
	failed := Effects{Status: ExecutionStatus{Status: StatusFailure, Error: "InsufficientGas"}}

	if !ok.Succeeded() {
		t.Error("expected success")
	}
	if failed.Succeeded() {
		t.Error("expected failure")
	}
}

func TestEventJSONFieldNames(t *testing.T) {
	ev := Event{
		ID:                EventID{TxDigest: "abc", EventSeq: 12},
		TransactionModule: "pay",
		TimestampMs:       1700000000000,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	out := string(data)
	for _, want := range []string{`"txDigest":"abc"`, `"eventSeq":"12"`, `"transactionModule":"pay"`, `"timestampMs":"1700000000000"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}
