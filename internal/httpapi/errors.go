package httpapi

import (
	"errors"
	"net/http"

	"dialer-platform/internal/auth"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/dispatch"
	"dialer-platform/internal/dispositions"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/numbers"
	"dialer-platform/internal/queue"
	"dialer-platform/internal/reporting"
	"dialer-platform/internal/telephony"
	"dialer-platform/internal/tenant"
	"dialer-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

var statusByErr = []struct {
	err    error
	status int
}{
	{auth.ErrNoIdentity, http.StatusUnauthorized},
	{tenant.ErrMissingTenant, http.StatusUnauthorized},
	{tenant.ErrMissingCredentials, http.StatusInternalServerError},

	{leads.ErrNotFound, http.StatusNotFound},
	{campaigns.ErrNotFound, http.StatusNotFound},
	{numbers.ErrNotFound, http.StatusNotFound},
	{queue.ErrNotFound, http.StatusNotFound},
	{followups.ErrNotFound, http.StatusNotFound},
	{dispositions.ErrNotFound, http.StatusNotFound},
	{dispositions.ErrRuleNotFound, http.StatusNotFound},
	{dispositions.ErrSequenceNotFound, http.StatusNotFound},

	{leads.ErrInvalidArgument, http.StatusBadRequest},
	{campaigns.ErrInvalidArgument, http.StatusBadRequest},
	{numbers.ErrInvalidArgument, http.StatusBadRequest},
	{followups.ErrInvalidArgument, http.StatusBadRequest},
	{dispositions.ErrInvalidArgument, http.StatusBadRequest},
	{reporting.ErrInvalidRequest, http.StatusBadRequest},
	{dispatch.ErrInvalidRequest, http.StatusBadRequest},
	{dispatch.ErrUnknownAction, http.StatusBadRequest},
	{dispositions.ErrUnknownAction, http.StatusBadRequest},
	{followups.ErrUnknownAction, http.StatusBadRequest},
	{telephony.ErrMalformedPayload, http.StatusBadRequest},

	{numbers.ErrConflict, http.StatusConflict},
	{dispositions.ErrConflict, http.StatusConflict},
	{campaigns.ErrInvalidTransition, http.StatusConflict},
	{queue.ErrInvalidTransition, http.StatusConflict},
	{queue.ErrStaleTransition, http.StatusConflict},
	{followups.ErrNotPending, http.StatusConflict},
	{followups.ErrLeadNotDialable, http.StatusConflict},
}

// statusFor maps a service error to its HTTP status. Unmapped errors are 500.
func statusFor(err error) int {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Internal errors are logged and not echoed.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
		msg := "internal error"
		if errors.Is(err, tenant.ErrMissingCredentials) {
			msg = err.Error()
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
