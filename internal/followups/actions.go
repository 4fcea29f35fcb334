package followups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownAction = errors.New("followups: unknown action")

// Request is the closed set of follow-up operations accepted over one endpoint.
type Request interface {
	followUpRequest()
}

type ScheduleRequest struct {
	Plan
}

type DueRequest struct{}

type ExecuteRequest struct {
	ID string `json:"id"`
}

// CancelRequest cancels one follow-up by ID, or every pending one of LeadID.
type CancelRequest struct {
	ID     string `json:"id,omitempty"`
	LeadID string `json:"lead_id,omitempty"`
}

type RunDueRequest struct{}

func (ScheduleRequest) followUpRequest() {}
func (DueRequest) followUpRequest()      {}
func (ExecuteRequest) followUpRequest()  {}
func (CancelRequest) followUpRequest()   {}
func (RunDueRequest) followUpRequest()   {}

// ParseRequest decodes a {"action": ...} body into its request variant.
func ParseRequest(body []byte) (Request, error) {
	var env struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	var (
		req Request
		err error
	)
	switch env.Action {
	case "schedule":
		var r ScheduleRequest
		err = json.Unmarshal(body, &r)
		req = r
	case "due":
		req = DueRequest{}
	case "execute":
		var r ExecuteRequest
		err = json.Unmarshal(body, &r)
		req = r
	case "cancel":
		var r CancelRequest
		err = json.Unmarshal(body, &r)
		req = r
	case "run_due":
		req = RunDueRequest{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return req, nil
}

// Handle runs one request for tenantID and returns its JSON-ready result.
func (s *Scheduler) Handle(ctx context.Context, tenantID string, req Request) (any, error) {
	switch r := req.(type) {
	case ScheduleRequest:
		return s.Schedule(ctx, tenantID, r.Plan)
	case DueRequest:
		due, err := s.DueNow(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if due == nil {
			due = []FollowUp{}
		}
		return map[string]any{"follow_ups": due, "count": len(due)}, nil
	case ExecuteRequest:
		if r.ID == "" {
			return nil, fmt.Errorf("%w: id required", ErrInvalidArgument)
		}
		return s.Execute(ctx, tenantID, r.ID)
	case CancelRequest:
		switch {
		case r.ID != "":
			return s.Cancel(ctx, tenantID, r.ID)
		case r.LeadID != "":
			n, err := s.CancelPendingForLead(ctx, tenantID, r.LeadID)
			if err != nil {
				return nil, err
			}
			return map[string]int{"cancelled": n}, nil
		default:
			return nil, fmt.Errorf("%w: id or lead_id required", ErrInvalidArgument)
		}
	case RunDueRequest:
		return s.RunDue(ctx, tenantID)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, req)
	}
}
