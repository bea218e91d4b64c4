package auditlog

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	base := Event{
		OccurredAt:   time.Now().UTC(),
		Actor:        "alice",
		Action:       "artifact.rate",
		ResourceType: "artifact",
		ResourceID:   "a-1",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(e *Event)
	}{
		{"missing occurred_at", func(e *Event) { e.OccurredAt = time.Time{} }},
		{"missing actor", func(e *Event) { e.Actor = "  " }},
		{"missing action", func(e *Event) { e.Action = "" }},
		{"missing resource type", func(e *Event) { e.ResourceType = "" }},
		{"missing resource id", func(e *Event) { e.ResourceID = "" }},
	}
	for _, tc := range cases {
		ev := base
		tc.mutate(&ev)
		if err := ev.Validate(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestComputeIntegritySHA256Deterministic(t *testing.T) {
	ev := Event{
		OccurredAt:   time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		Actor:        "alice",
		Action:       "artifact.create",
		ResourceType: "artifact",
		ResourceID:   "a-1",
		RequestID:    "req-1",
		IP:           net.ParseIP("10.0.0.1"),
		UserAgent:    "test",
	}
	payload := []byte(`{"k":"v"}`)

	first, err := ComputeIntegritySHA256(ev, payload)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := ComputeIntegritySHA256(ev, payload)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first != second {
		t.Fatalf("hash not deterministic: %s vs %s", first, second)
	}
	if len(first) != 64 || strings.ToLower(first) != first {
		t.Fatalf("unexpected hash format: %q", first)
	}

	ev.Action = "artifact.delete"
	changed, err := ComputeIntegritySHA256(ev, payload)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if changed == first {
		t.Fatal("hash did not change with event contents")
	}
}

func TestInsertRequiresQueryer(t *testing.T) {
	_, err := Insert(context.Background(), nil, Event{})
	if err == nil {
		t.Fatal("expected error for nil queryer")
	}
}
