package telephony

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TelnyxEvent is the v2 webhook envelope. Payload shape depends on EventType.
type TelnyxEvent struct {
	Data struct {
		ID         string          `json:"id"`
		EventType  string          `json:"event_type"`
		OccurredAt string          `json:"occurred_at"`
		Payload    json.RawMessage `json:"payload"`
	} `json:"data"`
}

type TelnyxCallPayload struct {
	CallControlID string `json:"call_control_id"`
	CallSessionID string `json:"call_session_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Direction     string `json:"direction"`
	HangupCause   string `json:"hangup_cause"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type TelnyxAddress struct {
	PhoneNumber string `json:"phone_number"`
	Status      string `json:"status,omitempty"`
}

type TelnyxMessagePayload struct {
	ID        string          `json:"id"`
	Direction string          `json:"direction"`
	Text      string          `json:"text"`
	From      TelnyxAddress   `json:"from"`
	To        []TelnyxAddress `json:"to"`
}

// ParseTelnyxEvent decodes the envelope; EventType must be present.
func ParseTelnyxEvent(body []byte) (TelnyxEvent, error) {
	var ev TelnyxEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return TelnyxEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if ev.Data.EventType == "" {
		return TelnyxEvent{}, fmt.Errorf("%w: data.event_type required", ErrMalformedPayload)
	}
	return ev, nil
}

// IsCall reports whether the event belongs to call control.
func (e TelnyxEvent) IsCall() bool { return strings.HasPrefix(e.Data.EventType, "call.") }

// IsMessage reports whether the event belongs to messaging.
func (e TelnyxEvent) IsMessage() bool { return strings.HasPrefix(e.Data.EventType, "message.") }

func (e TelnyxEvent) CallPayload() (TelnyxCallPayload, error) {
	var p TelnyxCallPayload
	if err := json.Unmarshal(e.Data.Payload, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.CallControlID == "" {
		return p, fmt.Errorf("%w: call_control_id required", ErrMalformedPayload)
	}
	return p, nil
}

func (e TelnyxEvent) MessagePayload() (TelnyxMessagePayload, error) {
	var p TelnyxMessagePayload
	if err := json.Unmarshal(e.Data.Payload, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.ID == "" {
		return p, fmt.Errorf("%w: message id required", ErrMalformedPayload)
	}
	return p, nil
}

// FirstTo returns the first recipient and its delivery status.
func (p TelnyxMessagePayload) FirstTo() TelnyxAddress {
	if len(p.To) == 0 {
		return TelnyxAddress{}
	}
	return p.To[0]
}
