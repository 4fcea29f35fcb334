package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestMemoryPublisher_RecordsInOrder(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()
	_ = p.Publish(ctx, "wf", "c1", WorkflowExecute{Action: ActionExecutePending, CampaignID: "c1"})
	_ = p.Publish(ctx, "seq", "l1", SequenceStepDue{LeadID: "l1"})

	evs := p.Events()
	if len(evs) != 2 || evs[0].Topic != "wf" || evs[1].Key != "l1" {
		t.Fatalf("unexpected events %+v", evs)
	}
	if wf, ok := evs[0].Payload.(WorkflowExecute); !ok || wf.Action != "execute_pending" {
		t.Fatalf("unexpected payload %+v", evs[0].Payload)
	}

	p.FailWith(errors.New("broker down"))
	if err := p.Publish(ctx, "wf", "c1", nil); err == nil {
		t.Fatalf("expected publish failure")
	}
}

func TestLogPublisher_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))
	if err := p.Publish(context.Background(), "dialer.disposition.applied", "l1", DispositionApplied{LeadID: "l1", Disposition: "Interested"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(buf.String(), `\"disposition\":\"Interested\"`) {
		t.Fatalf("expected encoded payload in log, got %s", buf.String())
	}
}
