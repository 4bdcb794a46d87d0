package queue

import (
	"encoding/json"
	"testing"
)

func TestTaskRoundTrip(t *testing.T) {
	body, err := json.Marshal(Task{Kind: KindProcessAIJob, ID: "j-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Task
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != KindProcessAIJob || got.ID != "j-1" {
		t.Fatalf("task = %+v", got)
	}
}

func TestTaskWireNamesAreStable(t *testing.T) {
	// The worker and the API are deployed independently; the field names are
	// part of the queue contract.
	body, _ := json.Marshal(Task{Kind: KindIndexProduct, ID: "p-1"})
	want := `{"kind":"index_product","id":"p-1"}`
	if string(body) != want {
		t.Fatalf("wire form = %s, want %s", body, want)
	}
}
