package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/auth"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/dispatch"
	"dialer-platform/internal/dispositions"
	"dialer-platform/internal/events"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/numbers"
	"dialer-platform/internal/queue"
	"dialer-platform/internal/reporting"
	"dialer-platform/internal/rbac"
	"dialer-platform/internal/tenant"

	"github.com/gin-gonic/gin"
)

var fixedNow = time.Unix(1700000000, 0).UTC()

func clock() time.Time { return fixedNow }

// identity stands in for token verification.
func identity(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", "t1", role))
		c.Set("tenant_id", "t1")
		c.Next()
	}
}

func newServer(t *testing.T, role string, creds tenant.Credentials) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auditSvc := audit.NewService(audit.NewMemoryRepo()).WithClock(clock)
	leadRepo := leads.NewMemoryRepo()
	callRepo := calls.NewMemoryRepo()
	campaignRepo := campaigns.NewMemoryRepo()
	numberSvc := numbers.NewService(numbers.NewMemoryRepo(), auditSvc).WithClock(clock)
	leadSvc := leads.NewService(leadRepo).WithClock(clock)
	scheduler := followups.NewScheduler(followups.NewMemoryRepo(), nil).WithClock(clock)
	callSvc := calls.NewService(callRepo).WithClock(clock)

	h := Handlers{
		Tenants: tenant.NewStaticResolver(creds),
		Dispatcher: dispatch.New(dispatch.Deps{
			Campaigns: campaignRepo,
			Leads:     leadRepo,
			Queue:     queue.NewService(queue.NewMemoryRepo()).WithClock(clock),
			Numbers:   numberSvc,
			Calls:     callSvc,
			Publisher: events.NewMemoryPublisher(),
			Audit:     auditSvc,
			Locker:    dispatch.NewLocalLocker(),
			Pacer:     dispatch.NewLocalPacer(),
		}).WithClock(clock),
		Dispositions: dispositions.NewRouter(dispositions.Deps{
			Repo:      dispositions.NewMemoryRepo(),
			Leads:     leadSvc,
			Calls:     callRepo,
			FollowUps: scheduler,
			Audit:     auditSvc,
		}).WithClock(clock),
		FollowUps: scheduler,
		Leads:     leadSvc,
		Campaigns: campaigns.NewService(campaignRepo).WithClock(clock),
		Numbers:   numberSvc,
		Reports:   reporting.NewService(callRepo, leadRepo),
		Now:       clock,
	}
	r := gin.New()
	h.Register(r, identity(role))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor_WrappedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("lookup: %w", leads.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bad", followups.ErrUnknownAction), http.StatusBadRequest},
		{tenant.ErrMissingCredentials, http.StatusInternalServerError},
		{numbers.ErrConflict, http.StatusConflict},
		{tenant.ErrMissingTenant, http.StatusUnauthorized},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestDispositions_SeedAndList(t *testing.T) {
	r := newServer(t, rbac.RoleOwner, tenant.Credentials{})

	w := do(r, http.MethodPost, "/v1/dispositions", `{"action":"seed_defaults"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("seed: %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/v1/dispositions", `{"action":"list_rules"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	var out struct {
		Rules []dispositions.Rule `json:"rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Rules) != 12 {
		t.Fatalf("expected 12 rules, got %d", len(out.Rules))
	}
}

func TestDispositions_UnknownRuleIs404(t *testing.T) {
	r := newServer(t, rbac.RoleAgent, tenant.Credentials{})
	lead := do(r, http.MethodPost, "/v1/leads", `{"phone_number":"+15551234567"}`)
	if lead.Code != http.StatusForbidden {
		t.Fatalf("agents may not create leads, got %d", lead.Code)
	}
	w := do(r, http.MethodPost, "/v1/dispositions", `{"disposition":"Nope","lead_id":"l1"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", w.Code, w.Body.String())
	}
}

func TestDispatcher_MissingCredentials(t *testing.T) {
	r := newServer(t, rbac.RoleScheduler, tenant.Credentials{})
	w := do(r, http.MethodPost, "/v1/dispatcher", ``)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "credentials") {
		t.Fatalf("expected the credentials error to be surfaced, got %s", w.Body.String())
	}
}

func TestDispatcher_QueueStatus(t *testing.T) {
	r := newServer(t, rbac.RoleManager, tenant.Credentials{RetellAPIKey: "k"})
	w := do(r, http.MethodPost, "/v1/dispatcher", `{"action":"queue_status"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/v1/dispatcher", `{"action":"explode"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", w.Code)
	}
}

func TestFollowUps_UnknownAction(t *testing.T) {
	r := newServer(t, rbac.RoleOwner, tenant.Credentials{})
	w := do(r, http.MethodPost, "/v1/followups", `{"action":"teleport"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLeads_CreateGetAndDoNotCall(t *testing.T) {
	r := newServer(t, rbac.RoleOwner, tenant.Credentials{})
	w := do(r, http.MethodPost, "/v1/leads", `{"phone_number":"+15551234567","first_name":"Ada"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var l leads.Lead
	if err := json.Unmarshal(w.Body.Bytes(), &l); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = do(r, http.MethodPost, "/v1/leads/"+l.ID+"/status", `{"status":"do_not_call"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &l); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !l.DoNotCall {
		t.Fatalf("expected do_not_call flag")
	}

	if w := do(r, http.MethodGet, "/v1/leads/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestNumbers_AgentForbidden(t *testing.T) {
	r := newServer(t, rbac.RoleAgent, tenant.Credentials{})
	if w := do(r, http.MethodGet, "/v1/numbers", ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestReports_BadRange(t *testing.T) {
	r := newServer(t, rbac.RoleOwner, tenant.Credentials{})
	if w := do(r, http.MethodGet, "/v1/reports/calls?from=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/v1/reports/calls", ""); w.Code != http.StatusOK {
		t.Fatalf("expected default range to work, got %d %s", w.Code, w.Body.String())
	}
}

func TestIssueToken_DisabledOutsideDev(t *testing.T) {
	r := newServer(t, rbac.RoleOwner, tenant.Credentials{})
	if w := do(r, http.MethodPost, "/v1/auth/token", `{"user_id":"u","tenant_id":"t","role":"owner"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestMe_ReturnsCallerIdentity(t *testing.T) {
	r := newServer(t, rbac.RoleAgent, tenant.Credentials{})
	w := do(r, http.MethodGet, "/v1/me", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var id auth.Identity
	if err := json.Unmarshal(w.Body.Bytes(), &id); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id.UserID != "u1" || id.TenantID != "t1" || id.Role != rbac.RoleAgent {
		t.Fatalf("unexpected identity %+v", id)
	}
}
