package reporting

import "time"

// TimeRange bounds a report by created_at in [From, To).
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics.
// Tenant isolation: TenantID is required.
type CallsSummaryRequest struct {
	TenantID   string    `json:"tenant_id"`
	Range      TimeRange `json:"range"`
	CampaignID string    `json:"campaign_id,omitempty"`
}

type CallsSummary struct {
	TenantID   string `json:"tenant_id"`
	CampaignID string `json:"campaign_id,omitempty"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	RecordedCalls int `json:"recorded_calls"`

	// Dispositions counts calls by the disposition applied to them.
	Dispositions map[string]int `json:"dispositions"`
}

type ConversionMetricsRequest struct {
	TenantID   string    `json:"tenant_id"`
	Range      TimeRange `json:"range"`
	CampaignID string    `json:"campaign_id"`
}

// ConversionMetrics relates a campaign's calls to the leads it qualified.
// Qualified counts the campaign's leads now in qualified or converted status.
type ConversionMetrics struct {
	TenantID   string `json:"tenant_id"`
	CampaignID string `json:"campaign_id"`

	CallsAttempted int `json:"calls_attempted"`
	CallsConnected int `json:"calls_connected"`
	LeadsTotal     int `json:"leads_total"`
	LeadsQualified int `json:"leads_qualified"`
	LeadsConverted int `json:"leads_converted"`

	ConnectionRate float64 `json:"connection_rate"`
	ConversionRate float64 `json:"conversion_rate"`
}
