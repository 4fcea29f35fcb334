package webhooks

import (
	"errors"
	"net/http"
	"strings"

	"dialer-platform/internal/telephony"
	"dialer-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TwilioVerification controls X-Twilio-Signature checking. PublicBaseURL is the
// scheme and host Twilio was configured with, since proxies rewrite the request host.
type TwilioVerification struct {
	Enabled       bool
	AuthToken     string
	PublicBaseURL string
}

// Handler exposes the ingest operations as unauthenticated vendor callbacks.
// Vendors retry on non-2xx, so only malformed payloads and store failures return one.
type Handler struct {
	Ingest *Ingest
	Twilio TwilioVerification
}

func (h Handler) Register(r gin.IRouter) {
	r.POST("/retell", h.Retell)
	r.POST("/telnyx", h.Telnyx)
	r.POST("/twilio/voice-status", h.TwilioVoiceStatus)
	r.POST("/twilio/sms", h.TwilioSMS)
}

func (h Handler) fail(c *gin.Context, err error) {
	log := logger.FromGin(c)
	if errors.Is(err, telephony.ErrMalformedPayload) {
		log.Warn("webhook payload rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Error("webhook processing failed", "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
}

func (h Handler) Retell(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, errors.Join(telephony.ErrMalformedPayload, err))
		return
	}
	ev, err := telephony.ParseRetellEvent(body)
	if err != nil {
		h.fail(c, err)
		return
	}
	ack, err := h.Ingest.Retell(c.Request.Context(), ev)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (h Handler) Telnyx(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, errors.Join(telephony.ErrMalformedPayload, err))
		return
	}
	ev, err := telephony.ParseTelnyxEvent(body)
	if err != nil {
		h.fail(c, err)
		return
	}
	ack, err := h.Ingest.Telnyx(c.Request.Context(), ev)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// verifyTwilio must run after the form has been parsed.
func (h Handler) verifyTwilio(c *gin.Context) bool {
	if !h.Twilio.Enabled {
		return true
	}
	fullURL := strings.TrimRight(h.Twilio.PublicBaseURL, "/") + c.Request.URL.RequestURI()
	sig := c.GetHeader(telephony.TwilioSignatureHeader)
	if telephony.ValidTwilioSignature(h.Twilio.AuthToken, fullURL, c.Request.PostForm, sig) {
		return true
	}
	logger.FromGin(c).Warn("twilio signature mismatch", "url", fullURL)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
	return false
}

func (h Handler) TwilioVoiceStatus(c *gin.Context) {
	f, err := telephony.ParseTwilioCallStatus(c.Request)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !h.verifyTwilio(c) {
		return
	}
	ack, err := h.Ingest.TwilioCallStatus(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// TwilioSMS answers inbound messages with TwiML and status callbacks with JSON.
func (h Handler) TwilioSMS(c *gin.Context) {
	m, err := telephony.ParseTwilioSMS(c.Request)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !h.verifyTwilio(c) {
		return
	}
	ctx := c.Request.Context()

	if !m.Inbound() {
		ack, err := h.Ingest.TwilioSMSStatus(ctx, m)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, ack)
		return
	}

	ack, err := h.Ingest.InboundSMS(ctx, VendorTwilio, m.MessageSid, m.From, m.To, m.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	reply := ""
	if ack.OptedOut {
		reply = telephony.OptOutConfirmation
	}
	twiml, err := telephony.RenderMessagingResponse(reply)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
