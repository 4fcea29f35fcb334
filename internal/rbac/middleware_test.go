package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"dialer-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// serve runs one request as (tenantID, role) through RequireTenant and RequireAnyRole(allowed...).
func serve(tenantID, role string, allowed ...string) int {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u", tenantID, role))
		c.Next()
	}, RequireTenant(), RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	if code := serve("t", RoleSuperAdmin, Managers...); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_SchedulerOnlyOnTriggers(t *testing.T) {
	if code := serve("t", RoleScheduler, Staff...); code != http.StatusForbidden {
		t.Fatalf("expected 403 outside trigger routes, got %d", code)
	}
	if code := serve("t", RoleScheduler, Triggers...); code != http.StatusOK {
		t.Fatalf("expected 200 on trigger routes, got %d", code)
	}
}

func TestRequireAnyRole_AgentCannotManage(t *testing.T) {
	if code := serve("t", RoleAgent, Managers...); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := serve("t", RoleAgent, Staff...); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireTenant_MissingTenantIs401(t *testing.T) {
	if code := serve("", RoleOwner, Managers...); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAnyRole_NoIdentityIs401(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireAnyRole(RoleOwner), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestKnown(t *testing.T) {
	for _, r := range []string{RoleOwner, RoleManager, RoleAgent, RoleSuperAdmin, RoleScheduler} {
		if !Known(r) {
			t.Fatalf("%s should be known", r)
		}
	}
	if Known("admin") || Known("") {
		t.Fatalf("unexpected known role")
	}
}
