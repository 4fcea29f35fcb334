package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// TwilioSignatureHeader carries the request signature on every Twilio webhook.
const TwilioSignatureHeader = "X-Twilio-Signature"

// TwilioCallStatus captures the voice status-callback fields we act on.
// Twilio sends application/x-www-form-urlencoded.
type TwilioCallStatus struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	Direction    string
	CallStatus   string
	CallDuration int
	RecordingURL string
}

func ParseTwilioCallStatus(r *http.Request) (TwilioCallStatus, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioCallStatus{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	f := TwilioCallStatus{
		CallSid:      r.PostFormValue("CallSid"),
		AccountSid:   r.PostFormValue("AccountSid"),
		From:         strings.TrimSpace(r.PostFormValue("From")),
		To:           strings.TrimSpace(r.PostFormValue("To")),
		Direction:    r.PostFormValue("Direction"),
		CallStatus:   r.PostFormValue("CallStatus"),
		RecordingURL: r.PostFormValue("RecordingUrl"),
	}
	if f.CallSid == "" || f.CallStatus == "" {
		return TwilioCallStatus{}, fmt.Errorf("%w: CallSid and CallStatus required", ErrMalformedPayload)
	}
	if d := r.PostFormValue("CallDuration"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			return TwilioCallStatus{}, fmt.Errorf("%w: CallDuration: %v", ErrMalformedPayload, err)
		}
		f.CallDuration = n
	}
	return f, nil
}

// TwilioSMS is either an inbound message (Body set) or a delivery status callback.
type TwilioSMS struct {
	MessageSid    string
	AccountSid    string
	From          string
	To            string
	Body          string
	MessageStatus string
}

func ParseTwilioSMS(r *http.Request) (TwilioSMS, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioSMS{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	m := TwilioSMS{
		MessageSid:    r.PostFormValue("MessageSid"),
		AccountSid:    r.PostFormValue("AccountSid"),
		From:          strings.TrimSpace(r.PostFormValue("From")),
		To:            strings.TrimSpace(r.PostFormValue("To")),
		Body:          r.PostFormValue("Body"),
		MessageStatus: r.PostFormValue("MessageStatus"),
	}
	if m.MessageStatus == "" {
		m.MessageStatus = r.PostFormValue("SmsStatus")
	}
	if m.MessageSid == "" {
		m.MessageSid = r.PostFormValue("SmsSid")
	}
	if m.MessageSid == "" {
		return TwilioSMS{}, fmt.Errorf("%w: MessageSid required", ErrMalformedPayload)
	}
	return m, nil
}

// Inbound reports whether the form is a message received from a handset.
func (m TwilioSMS) Inbound() bool {
	return m.MessageStatus == "received" || (m.MessageStatus == "" && m.Body != "")
}

// TwilioSignature computes the signature Twilio sends for a POST to fullURL with params.
func TwilioSignature(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidTwilioSignature reports whether signature matches the request contents.
func ValidTwilioSignature(authToken, fullURL string, params url.Values, signature string) bool {
	if authToken == "" || signature == "" {
		return false
	}
	want := TwilioSignature(authToken, fullURL, params)
	return hmac.Equal([]byte(want), []byte(signature))
}
