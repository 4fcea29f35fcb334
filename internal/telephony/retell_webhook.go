package telephony

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMalformedPayload = errors.New("telephony: malformed webhook payload")

const (
	RetellCallStarted  = "call_started"
	RetellCallEnded    = "call_ended"
	RetellCallAnalyzed = "call_analyzed"
)

// RetellEvent is the JSON body Retell posts for call lifecycle changes.
type RetellEvent struct {
	Event string     `json:"event"`
	Call  RetellCall `json:"call"`
}

type RetellCall struct {
	CallID              string            `json:"call_id"`
	AgentID             string            `json:"agent_id"`
	FromNumber          string            `json:"from_number"`
	ToNumber            string            `json:"to_number"`
	Direction           string            `json:"direction"`
	CallStatus          string            `json:"call_status"`
	DisconnectionReason string            `json:"disconnection_reason"`
	StartTimestamp      int64             `json:"start_timestamp"`
	EndTimestamp        int64             `json:"end_timestamp"`
	DurationMs          int64             `json:"duration_ms"`
	Transcript          string            `json:"transcript"`
	RecordingURL        string            `json:"recording_url"`
	Metadata            map[string]string `json:"metadata"`
	Analysis            *RetellAnalysis   `json:"call_analysis,omitempty"`
}

type RetellAnalysis struct {
	CallSummary        string         `json:"call_summary"`
	UserSentiment      string         `json:"user_sentiment"`
	CustomAnalysisData map[string]any `json:"custom_analysis_data"`
}

// ParseRetellEvent decodes a Retell webhook body. It needs an event name and a call id.
func ParseRetellEvent(body []byte) (RetellEvent, error) {
	var ev RetellEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return RetellEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if ev.Event == "" || ev.Call.CallID == "" {
		return RetellEvent{}, fmt.Errorf("%w: event and call.call_id required", ErrMalformedPayload)
	}
	return ev, nil
}

// Duration prefers the reported duration and falls back to end minus start.
func (c RetellCall) Duration() time.Duration {
	if c.DurationMs > 0 {
		return time.Duration(c.DurationMs) * time.Millisecond
	}
	if c.StartTimestamp > 0 && c.EndTimestamp > c.StartTimestamp {
		return time.Duration(c.EndTimestamp-c.StartTimestamp) * time.Millisecond
	}
	return 0
}

// Answered reports whether the callee picked up, judged by the disconnection reason.
func (c RetellCall) Answered() bool {
	switch strings.ToLower(c.DisconnectionReason) {
	case "dial_no_answer", "dial_busy", "dial_failed", "voicemail_reached", "invalid_destination",
		"error_no_audio_received", "registered_call_timeout":
		return false
	default:
		return true
	}
}

// Busy reports a busy signal.
func (c RetellCall) Busy() bool { return strings.EqualFold(c.DisconnectionReason, "dial_busy") }

// Disposition returns custom_analysis_data.disposition when the analysis produced one.
func (c RetellCall) Disposition() string {
	if c.Analysis == nil {
		return ""
	}
	v, _ := c.Analysis.CustomAnalysisData["disposition"].(string)
	return strings.TrimSpace(v)
}
