package sms

import "testing"

func TestIsOptOut(t *testing.T) {
	for _, body := range []string{"STOP", " stop ", "Unsubscribe", "quit"} {
		if !IsOptOut(body) {
			t.Fatalf("expected %q to be an opt-out", body)
		}
	}
	for _, body := range []string{"please stop calling me at work", "yes", ""} {
		if IsOptOut(body) {
			t.Fatalf("expected %q not to be an opt-out", body)
		}
	}
}
