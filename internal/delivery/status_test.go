package delivery_test

import (
	"encoding/json"
	"testing"

	"splice/internal/delivery"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from delivery.Status
		to   delivery.Status
		want bool
	}{
		{delivery.StatusPending, delivery.StatusProcessing, true},
		{delivery.StatusPending, delivery.StatusInjected, true},
		{delivery.StatusProcessing, delivery.StatusInjected, true},
		{delivery.StatusProcessing, delivery.StatusFailed, true},
		{delivery.StatusProcessing, delivery.StatusPending, false},
		{delivery.StatusInjected, delivery.StatusFailed, false},
		{delivery.StatusFailed, delivery.StatusProcessing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, status := range delivery.AllStatuses() {
		want := status == delivery.StatusInjected || status == delivery.StatusFailed
		if status.Terminal() != want {
			t.Errorf("%s.Terminal() = %v", status, !want)
		}
	}
}

func TestStatusJSON(t *testing.T) {
	var job delivery.Job
	if err := json.Unmarshal([]byte(`{"job_id":"a","status":"processing"}`), &job); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if job.Status != delivery.StatusProcessing {
		t.Fatalf("status = %q", job.Status)
	}
	if err := json.Unmarshal([]byte(`{"job_id":"a","status":"exploded"}`), &job); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, err := delivery.ParseStatus("queued"); err == nil {
		t.Fatal("expected ParseStatus error")
	}
}
