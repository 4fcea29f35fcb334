package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dialer-platform/internal/tenant"
)

var (
	ErrUnknownAction  = errors.New("dispatch: unknown action")
	ErrInvalidRequest = errors.New("dispatch: invalid request")
)

// Request is the closed set of operations served by the dispatcher endpoint.
type Request interface {
	dispatchRequest()
}

type DispatchRequest struct{}

type CleanupStuckCallsRequest struct{}

type QueueStatusRequest struct{}

func (DispatchRequest) dispatchRequest()          {}
func (CleanupStuckCallsRequest) dispatchRequest() {}
func (QueueStatusRequest) dispatchRequest()       {}

// ParseRequest decodes a {"action": ...} body. An empty body or action means dispatch.
func ParseRequest(body []byte) (Request, error) {
	var env struct {
		Action string `json:"action"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	switch env.Action {
	case "", "dispatch":
		return DispatchRequest{}, nil
	case "cleanup_stuck_calls":
		return CleanupStuckCallsRequest{}, nil
	case "queue_status":
		return QueueStatusRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
}

// Handle runs one request for t.
func (s *Dispatcher) Handle(ctx context.Context, t tenant.Tenant, req Request) (any, error) {
	switch req.(type) {
	case DispatchRequest:
		return s.Dispatch(ctx, t)
	case CleanupStuckCallsRequest:
		return s.CleanupStuckCalls(ctx, t)
	case QueueStatusRequest:
		return s.QueueStatus(ctx, t)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, req)
	}
}
