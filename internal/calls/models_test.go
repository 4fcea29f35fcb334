package calls

import (
	"testing"
	"time"
)

func TestCanAdvance(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusInitiated, StatusRinging, true},
		{StatusRinging, StatusInProgress, true},
		{StatusInitiated, StatusCompleted, true},
		{StatusInProgress, StatusRinging, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusNoAnswer, StatusCompleted, false},
		{StatusRinging, StatusRinging, false},
	}
	for _, tc := range cases {
		if got := CanAdvance(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestRange_Contains(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	r := Range{From: now, To: now.Add(time.Hour)}
	if !r.Contains(now) || r.Contains(now.Add(time.Hour)) || r.Contains(now.Add(-time.Second)) {
		t.Fatalf("range bounds are [from, to)")
	}
	if !(Range{}).Contains(now) {
		t.Fatalf("empty range matches everything")
	}
}
