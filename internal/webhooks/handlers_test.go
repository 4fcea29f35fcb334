package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"dialer-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

const testBaseURL = "https://hooks.example.com"

func newEngine(t *testing.T, verify bool) (*gin.Engine, fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	Handler{
		Ingest: f.ingest,
		Twilio: TwilioVerification{Enabled: verify, AuthToken: "secret", PublicBaseURL: testBaseURL},
	}.Register(r.Group("/webhooks"))
	return r, f
}

func postForm(r http.Handler, path string, form url.Values, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sig != "" {
		req.Header.Set(telephony.TwilioSignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTwilioSMS_StopRepliesWithTwiML(t *testing.T) {
	r, f := newEngine(t, true)
	form := url.Values{
		"MessageSid": {"SM100"},
		"From":       {"+15551234567"},
		"To":         {"+15550000001"},
		"Body":       {"STOP"},
		"SmsStatus":  {"received"},
	}
	path := "/webhooks/twilio/sms"
	sig := telephony.TwilioSignature("secret", testBaseURL+path, form)

	w := postForm(r, path, form, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("expected xml, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<Message>") {
		t.Fatalf("expected opt-out confirmation, got %s", w.Body.String())
	}
	if len(f.sms.Messages()) != 1 {
		t.Fatalf("expected the message to be logged")
	}
}

func TestTwilioSMS_BadSignature(t *testing.T) {
	r, f := newEngine(t, true)
	form := url.Values{"MessageSid": {"SM101"}, "From": {"+15551234567"}, "To": {"+15550000001"}, "Body": {"STOP"}}
	w := postForm(r, "/webhooks/twilio/sms", form, "forged")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if len(f.sms.Messages()) != 0 {
		t.Fatalf("nothing may be stored for a forged request")
	}
}

func TestTwilioVoiceStatus_Unverified(t *testing.T) {
	r, f := newEngine(t, false)
	c := f.openCall(t, "CA1")
	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"no-answer"}, "From": {"+15550000001"}, "To": {"+15551234567"}}
	w := postForm(r, "/webhooks/twilio/voice-status", form, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got, _ := f.callRepo.Get(context.Background(), "t1", c.ID)
	if got.Status != "no_answer" {
		t.Fatalf("expected no_answer, got %s", got.Status)
	}
}

func TestRetell_MalformedAndUnknown(t *testing.T) {
	r, _ := newEngine(t, false)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/retell", strings.NewReader(`{"event":`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhooks/retell", strings.NewReader(`{"event":"transcript_updated","call":{"call_id":"x"}}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected unknown events to be acknowledged, got %d", w.Code)
	}
}
