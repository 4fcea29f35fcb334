package reporting

import (
	"context"
	"errors"
	"fmt"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/leads"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// CallSource and LeadSource are the read paths reports aggregate over.
// Both must enforce tenant filtering.
type CallSource interface {
	List(ctx context.Context, tenantID string, r calls.Range) ([]calls.LogEntry, error)
}

type LeadSource interface {
	List(ctx context.Context, tenantID string, f leads.Filter) ([]leads.Lead, error)
}

type Service struct {
	calls CallSource
	leads LeadSource
}

func NewService(c CallSource, l LeadSource) *Service { return &Service{calls: c, leads: l} }

func validRange(r TimeRange) bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.TenantID == "" {
		return CallsSummary{}, fmt.Errorf("%w: tenant_id required", ErrInvalidRequest)
	}
	if !validRange(req.Range) {
		return CallsSummary{}, fmt.Errorf("%w: from must precede to", ErrInvalidRequest)
	}

	rows, err := s.calls.List(ctx, req.TenantID, calls.Range{From: req.Range.From, To: req.Range.To, CampaignID: req.CampaignID})
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{TenantID: req.TenantID, CampaignID: req.CampaignID, Dispositions: map[string]int{}}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		if c.Outcome != "" {
			out.Dispositions[c.Outcome]++
		}
		switch c.Status {
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		case calls.StatusCanceled:
			out.CanceledCalls++
		case calls.StatusInProgress:
			out.InProgressCalls++
		case calls.StatusInitiated, calls.StatusRinging:
			// not counted separately
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) ConversionMetrics(ctx context.Context, req ConversionMetricsRequest) (ConversionMetrics, error) {
	if req.TenantID == "" || req.CampaignID == "" {
		return ConversionMetrics{}, fmt.Errorf("%w: tenant_id and campaign_id required", ErrInvalidRequest)
	}
	if !validRange(req.Range) {
		return ConversionMetrics{}, fmt.Errorf("%w: from must precede to", ErrInvalidRequest)
	}

	callRows, err := s.calls.List(ctx, req.TenantID, calls.Range{From: req.Range.From, To: req.Range.To, CampaignID: req.CampaignID})
	if err != nil {
		return ConversionMetrics{}, err
	}
	leadRows, err := s.leads.List(ctx, req.TenantID, leads.Filter{CampaignID: req.CampaignID})
	if err != nil {
		return ConversionMetrics{}, err
	}

	out := ConversionMetrics{TenantID: req.TenantID, CampaignID: req.CampaignID}
	out.CallsAttempted = len(callRows)
	for _, c := range callRows {
		if c.Status == calls.StatusCompleted {
			out.CallsConnected++
		}
	}
	out.LeadsTotal = len(leadRows)
	for _, l := range leadRows {
		switch l.Status {
		case leads.StatusQualified:
			out.LeadsQualified++
		case leads.StatusConverted:
			out.LeadsQualified++
			out.LeadsConverted++
		}
	}

	if out.CallsAttempted > 0 {
		out.ConnectionRate = float64(out.CallsConnected) / float64(out.CallsAttempted)
	}
	if out.CallsConnected > 0 {
		out.ConversionRate = float64(out.LeadsQualified) / float64(out.CallsConnected)
	}
	return out, nil
}
