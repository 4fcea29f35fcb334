package telephony

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// twimlResponse is a minimal Twilio Markup Language response.
// Only the messaging verbs the SMS webhook answers with are modelled.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlMessage struct {
	XMLName xml.Name `xml:"Message"`
	Body    string   `xml:",chardata"`
}

// OptOutConfirmation is sent back when a lead texts a stop keyword.
const OptOutConfirmation = "You have been unsubscribed and will not receive further calls or messages."

// RenderMessagingResponse renders a reply to an inbound SMS. An empty reply
// renders an empty <Response/>, which Twilio treats as "send nothing".
func RenderMessagingResponse(reply string) (string, error) {
	var r twimlResponse
	if reply = strings.TrimSpace(reply); reply != "" {
		r.Verbs = append(r.Verbs, twimlMessage{Body: reply})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
