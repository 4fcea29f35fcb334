package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"dialer-platform/internal/auth"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/dispatch"
	"dialer-platform/internal/dispositions"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/numbers"
	"dialer-platform/internal/rbac"
	"dialer-platform/internal/reporting"
	"dialer-platform/internal/tenant"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth *auth.Manager
	// DevTokens enables POST /v1/auth/token. Only local and dev environments set it.
	DevTokens bool

	Tenants      *tenant.Resolver
	Dispatcher   *dispatch.Dispatcher
	Dispositions *dispositions.Router
	FollowUps    *followups.Scheduler
	Leads        *leads.Service
	Campaigns    *campaigns.Service
	Numbers      *numbers.Service
	Reports      *reporting.Service

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

func tenantID(c *gin.Context) (string, bool) {
	tid, err := auth.TenantID(c.Request.Context())
	if err != nil || tid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return "", false
	}
	return tid, true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

// --- Auth ---

type tokenRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// IssueToken issues a JWT pair without checking credentials. It is never
// routed outside local and dev environments.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil || !h.DevTokens {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req tokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == "" || req.TenantID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, tenant_id, role required"})
		return
	}
	if !rbac.Known(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), req.UserID, req.TenantID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Action endpoints ---

// Dispatch runs one dispatcher action for the caller's tenant.
func (h Handlers) Dispatch(c *gin.Context) {
	t, err := h.Tenants.FromContext(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	req, err := dispatch.ParseRequest(body)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.Dispatcher.Handle(c.Request.Context(), t, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) Disposition(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	req, err := dispositions.ParseRequest(body)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.Dispositions.Handle(c.Request.Context(), tid, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) FollowUp(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	req, err := followups.ParseRequest(body)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.FollowUps.Handle(c.Request.Context(), tid, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Leads ---

func (h Handlers) CreateLead(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	var l leads.Lead
	if !bindJSON(c, &l) {
		return
	}
	out, err := h.Leads.Create(c.Request.Context(), tid, l)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) GetLead(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	out, err := h.Leads.Get(c.Request.Context(), tid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ListLeads(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	f := leads.Filter{
		Status:     leads.Status(c.Query("status")),
		CampaignID: c.Query("campaign_id"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}
	out, err := h.Leads.List(c.Request.Context(), tid, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": out})
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetLeadStatus moves a lead. Moving to do_not_call also cancels its pending follow-ups.
func (h Handlers) SetLeadStatus(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	status := leads.Status(strings.TrimSpace(req.Status))
	var (
		out leads.Lead
		err error
	)
	if status == leads.StatusDoNotCall {
		out, err = h.Leads.MarkDoNotCall(ctx, tid, c.Param("id"))
		if err == nil {
			_, err = h.FollowUps.CancelPendingForLead(ctx, tid, out.ID)
		}
	} else {
		out, err = h.Leads.SetStatus(ctx, tid, c.Param("id"), status)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Campaigns ---

func (h Handlers) CreateCampaign(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	var in campaigns.Campaign
	if !bindJSON(c, &in) {
		return
	}
	out, err := h.Campaigns.Create(c.Request.Context(), tid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) GetCampaign(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	out, err := h.Campaigns.Get(c.Request.Context(), tid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ListCampaigns(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	out, err := h.Campaigns.List(c.Request.Context(), tid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": out})
}

func (h Handlers) SetCampaignStatus(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Campaigns.SetStatus(c.Request.Context(), tid, c.Param("id"), campaigns.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type addLeadsRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

func (h Handlers) AddCampaignLeads(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	var req addLeadsRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.Campaigns.AddLeads(c.Request.Context(), tid, c.Param("id"), req.LeadIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": n})
}

func (h Handlers) ListCampaignLeads(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Campaigns.Get(ctx, tid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	out, err := h.Campaigns.Members(ctx, tid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

func (h Handlers) CreateWorkflow(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	var in campaigns.Workflow
	if !bindJSON(c, &in) {
		return
	}
	out, err := h.Campaigns.CreateWorkflow(c.Request.Context(), tid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// --- Numbers ---

func (h Handlers) CreateNumber(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	var in numbers.PhoneNumber
	if !bindJSON(c, &in) {
		return
	}
	out, err := h.Numbers.Create(c.Request.Context(), tid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListNumbers(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	out, err := h.Numbers.List(c.Request.Context(), tid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": out})
}

type quarantineRequest struct {
	Until  time.Time `json:"until"`
	Reason string    `json:"reason"`
}

func (h Handlers) QuarantineNumber(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	var req quarantineRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Numbers.Quarantine(c.Request.Context(), tid, c.Param("id"), req.Until, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ReleaseNumber(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	out, err := h.Numbers.Release(c.Request.Context(), tid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Reports ---

// reportRange reads from/to as RFC 3339; missing bounds default to the last 24 hours.
func (h Handlers) reportRange(c *gin.Context) (reporting.TimeRange, bool) {
	to := h.now()
	from := to.Add(-24 * time.Hour)
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return reporting.TimeRange{}, false
		}
		to = t
		if c.Query("from") == "" {
			from = to.Add(-24 * time.Hour)
		}
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return reporting.TimeRange{}, false
		}
		from = t
	}
	return reporting.TimeRange{From: from, To: to}, true
}

func (h Handlers) CallsReport(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	rg, ok := h.reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{TenantID: tid, Range: rg, CampaignID: c.Query("campaign_id")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CampaignReport(c *gin.Context) {
	tid, ok := tenantID(c)
	if !ok {
		return
	}
	rg, ok := h.reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.ConversionMetrics(c.Request.Context(), reporting.ConversionMetricsRequest{TenantID: tid, Range: rg, CampaignID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
