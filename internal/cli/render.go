package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"dialer-platform/internal/dispatch"
	"dialer-platform/internal/dispositions"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/queue"

	"github.com/fatih/color"
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, color.New(color.Bold, color.FgCyan).Sprint(title))
}

func printKV(w io.Writer, k, v string) {
	fmt.Fprintf(w, "%-18s %s\n", k+":", v)
}

func printCheck(w io.Writer, name string, ok bool, detail string) {
	if ok {
		printKV(w, name, color.GreenString("ok"))
		return
	}
	printKV(w, name, color.YellowString("not ok")+" "+detail)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderMigrations(w io.Writer, applied []string, asJSON bool) error {
	if asJSON {
		if applied == nil {
			applied = []string{}
		}
		return writeJSON(w, map[string]any{"applied": applied})
	}
	if len(applied) == 0 {
		fmt.Fprintln(w, "schema up to date")
		return nil
	}
	for _, name := range applied {
		fmt.Fprintln(w, color.GreenString("applied"), name)
	}
	return nil
}

func renderDispatch(w io.Writer, res dispatch.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	if res.Skipped != "" {
		fmt.Fprintln(w, color.YellowString("skipped: %s", res.Skipped))
		return nil
	}
	printKV(w, "Enqueued", fmt.Sprint(res.Enqueued))
	printKV(w, "SMS started", fmt.Sprint(res.SMSStarted))
	printKV(w, "Dispatched", color.GreenString("%d", res.Dispatched))
	failed := fmt.Sprint(res.Failed)
	if res.Failed > 0 {
		failed = color.RedString("%d", res.Failed)
	}
	printKV(w, "Failed", failed)
	printKV(w, "Still queued", fmt.Sprint(res.Queued))
	if res.Warning != "" {
		fmt.Fprintln(w, color.YellowString("warning: %s", res.Warning))
	}
	for _, r := range res.Results {
		line := fmt.Sprintf("  %-10s lead=%s campaign=%s", r.Outcome, r.LeadID, r.CampaignID)
		if r.FromNumber != "" {
			line += " from=" + r.FromNumber
		}
		if r.Reason != "" {
			line += " (" + r.Reason + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func renderCleanup(w io.Writer, res dispatch.CleanupResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	printKV(w, "Cleaned", fmt.Sprint(res.Cleaned))
	return nil
}

func renderDue(w io.Writer, due []followups.FollowUp, asJSON bool) error {
	if asJSON {
		if due == nil {
			due = []followups.FollowUp{}
		}
		return writeJSON(w, due)
	}
	if len(due) == 0 {
		fmt.Fprintln(w, "nothing due")
		return nil
	}
	for _, f := range due {
		fmt.Fprintf(w, "%s  %-13s lead=%s at=%s\n", f.ID, f.ActionType, f.LeadID, f.ScheduledAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func renderRunDue(w io.Writer, res followups.RunResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	printKV(w, "Due", fmt.Sprint(res.Due))
	printKV(w, "Completed", fmt.Sprint(res.Completed))
	printKV(w, "Failed", fmt.Sprint(res.Failed))
	printKV(w, "Skipped", fmt.Sprint(res.Skipped))
	return nil
}

func renderSeed(w io.Writer, res dispositions.SeedResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	printKV(w, "Rules added", fmt.Sprint(res.Rules))
	printKV(w, "Sequences added", fmt.Sprint(res.Sequences))
	return nil
}

func renderQueue(w io.Writer, s queue.Stats, asJSON bool) error {
	if asJSON {
		return writeJSON(w, s)
	}
	printKV(w, "Queue pending", fmt.Sprint(s.Pending))
	printKV(w, "Queue calling", fmt.Sprint(s.Calling))
	printKV(w, "Queue completed", fmt.Sprint(s.Completed))
	printKV(w, "Queue failed", fmt.Sprint(s.Failed))
	return nil
}
