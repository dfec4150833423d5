package queue

import (
	"encoding/json"
	"testing"
)

func TestMarshalLpTokenTask(t *testing.T) {
	payload, err := MarshalLpTokenTask("addr1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var task LpTokenTask
	if err := json.Unmarshal(payload, &task); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if task.Task != "indexLpToken" {
		t.Fatalf("task = %q, want indexLpToken", task.Task)
	}
	if task.PairAddress != "addr1" {
		t.Fatalf("pairAddress = %q, want addr1", task.PairAddress)
	}
}
