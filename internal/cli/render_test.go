package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"dialer-platform/internal/dispatch"
	"dialer-platform/internal/followups"

	"github.com/fatih/color"
)

func init() { color.NoColor = true }

func TestRenderDispatch_Text(t *testing.T) {
	var buf bytes.Buffer
	res := dispatch.Result{
		Dispatched: 1,
		Failed:     1,
		Enqueued:   2,
		Warning:    "no registered numbers",
		Results: []dispatch.CallResult{
			{Outcome: dispatch.OutcomeDispatched, LeadID: "l1", CampaignID: "c1", FromNumber: "+15550000001"},
			{Outcome: dispatch.OutcomeFailed, LeadID: "l2", CampaignID: "c1", Reason: "vendor error"},
		},
	}
	if err := renderDispatch(&buf, res, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Dispatched:", "warning: no registered numbers", "from=+15550000001", "(vendor error)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderDispatch_Skipped(t *testing.T) {
	var buf bytes.Buffer
	if err := renderDispatch(&buf, dispatch.Result{Skipped: dispatch.SkippedAlreadyRunning}, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "skipped: ") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderDue_JSONNeverNull(t *testing.T) {
	var buf bytes.Buffer
	if err := renderDue(&buf, nil, true); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}

	buf.Reset()
	due := []followups.FollowUp{{ID: "f1", LeadID: "l1", ActionType: followups.ActionCallback, ScheduledAt: time.Unix(1700000000, 0).UTC()}}
	if err := renderDue(&buf, due, true); err != nil {
		t.Fatalf("render: %v", err)
	}
	var back []followups.FollowUp
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil || len(back) != 1 || back[0].ID != "f1" {
		t.Fatalf("unexpected json %s (%v)", buf.String(), err)
	}
}

func TestRequireTenant(t *testing.T) {
	flagTenant = ""
	if _, err := requireTenant(); !errors.Is(err, errTenantRequired) {
		t.Fatalf("expected errTenantRequired, got %v", err)
	}
	flagTenant = "t1"
	defer func() { flagTenant = "" }()
	if tid, err := requireTenant(); err != nil || tid != "t1" {
		t.Fatalf("unexpected %q %v", tid, err)
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"dispatch"}, {"cleanup-stuck"}, {"followups", "due"}, {"followups", "run"}, {"seed-dispositions"}, {"migrate"}, {"status"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd == nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not registered (%v)", path, err)
		}
	}
}
