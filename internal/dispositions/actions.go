package dispositions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownAction = errors.New("dispositions: unknown action")

// Request is the closed set of operations served by the dispositions endpoint.
type Request interface {
	dispositionRequest()
}

type ApplyRequest struct {
	Input
}

type SeedDefaultsRequest struct{}

type ListRulesRequest struct{}

type CreateRuleRequest struct {
	Rule Rule `json:"rule"`
}

func (ApplyRequest) dispositionRequest()        {}
func (SeedDefaultsRequest) dispositionRequest() {}
func (ListRulesRequest) dispositionRequest()    {}
func (CreateRuleRequest) dispositionRequest()   {}

// ParseRequest decodes a {"action": ...} body into its request variant.
// An absent action means apply.
func ParseRequest(body []byte) (Request, error) {
	var env struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	switch env.Action {
	case "", "apply":
		var r ApplyRequest
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return r, nil
	case "seed_defaults":
		return SeedDefaultsRequest{}, nil
	case "list_rules":
		return ListRulesRequest{}, nil
	case "create_rule":
		var r CreateRuleRequest
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
}

// Handle runs one request for tenantID.
func (r *Router) Handle(ctx context.Context, tenantID string, req Request) (any, error) {
	switch q := req.(type) {
	case ApplyRequest:
		return r.Apply(ctx, tenantID, q.Input)
	case SeedDefaultsRequest:
		return r.SeedDefaults(ctx, tenantID)
	case ListRulesRequest:
		rules, err := r.ListRules(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if rules == nil {
			rules = []Rule{}
		}
		return map[string]any{"rules": rules}, nil
	case CreateRuleRequest:
		return r.CreateRule(ctx, tenantID, q.Rule)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, req)
	}
}
