package httpapi

import (
	"net/http"

	"dialer-platform/internal/auth"
	"dialer-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the tenant API under /v1. authMW verifies the bearer token.
// Keep this free of business logic; handlers delegate to internal modules.
func (h Handlers) Register(r *gin.Engine, authMW gin.HandlerFunc) {
	r.POST("/v1/auth/token", h.IssueToken)

	v1 := r.Group("/v1")
	v1.Use(authMW, rbac.RequireTenant())

	// The recurring trigger authenticates as the hidden scheduler role.
	actions := v1.Group("")
	actions.Use(rbac.RequireAnyRole(rbac.Triggers...))
	{
		actions.POST("/dispatcher", h.Dispatch)
		actions.POST("/followups", h.FollowUp)
	}

	read := rbac.RequireAnyRole(rbac.Staff...)
	write := rbac.RequireAnyRole(rbac.Managers...)

	v1.POST("/dispositions", read, h.Disposition)

	ls := v1.Group("/leads")
	{
		ls.GET("", read, h.ListLeads)
		ls.GET("/:id", read, h.GetLead)
		ls.POST("", write, h.CreateLead)
		ls.POST("/:id/status", read, h.SetLeadStatus)
	}

	cs := v1.Group("/campaigns")
	{
		cs.GET("", read, h.ListCampaigns)
		cs.GET("/:id", read, h.GetCampaign)
		cs.POST("", write, h.CreateCampaign)
		cs.POST("/:id/status", write, h.SetCampaignStatus)
		cs.GET("/:id/leads", read, h.ListCampaignLeads)
		cs.POST("/:id/leads", write, h.AddCampaignLeads)
	}
	v1.POST("/workflows", write, h.CreateWorkflow)

	ns := v1.Group("/numbers")
	ns.Use(write)
	{
		ns.GET("", h.ListNumbers)
		ns.POST("", h.CreateNumber)
		ns.POST("/:id/quarantine", h.QuarantineNumber)
		ns.POST("/:id/release", h.ReleaseNumber)
	}

	rs := v1.Group("/reports")
	rs.Use(write)
	{
		rs.GET("/calls", h.CallsReport)
		rs.GET("/campaigns/:id", h.CampaignReport)
	}

	v1.GET("/me", func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, id)
	})
}
