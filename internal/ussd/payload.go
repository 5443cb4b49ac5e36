package ussd

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Payload has getters for the inbound gateway callback data. It is an
// interface to prevent inadvertent modification of callback data in the
// lifetime of the request.
type Payload interface {
	SessionID() string
	ServiceCode() string
	PhoneNumber() string
	// Text returns the raw text field as delivered by the gateway, which may
	// be the full *-accumulated input history.
	Text() string
	// CurrentInput returns only the latest *-delimited fragment. The state
	// machine consumes this and accumulates anything it needs into session
	// scratch data, so it never re-parses history positionally.
	CurrentInput() string
	JSON() ([]byte, error)
}

type payload struct {
	data *payloadInternal
}

type payloadInternal struct {
	SessionID    string `json:"session_id,omitempty"`
	ServiceCode  string `json:"service_code,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Text         string `json:"text,omitempty"`
	CurrentInput string `json:"current_input,omitempty"`
}

func (p *payload) SessionID() string    { return p.data.SessionID }
func (p *payload) ServiceCode() string  { return p.data.ServiceCode }
func (p *payload) PhoneNumber() string  { return p.data.PhoneNumber }
func (p *payload) Text() string         { return p.data.Text }
func (p *payload) CurrentInput() string { return p.data.CurrentInput }

func (p *payload) JSON() ([]byte, error) {
	return json.Marshal(p.data)
}

// lastFragment returns the newest *-delimited segment of the accumulated
// input, trimmed. Safe on empty input.
func lastFragment(text string) string {
	parts := strings.Split(text, "*")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

// gets the first non-empty value from params. Values are already
// percent-decoded by ParseForm, so they are returned as-is.
func getFormVal(params url.Values, keys ...string) string {
	for _, key := range keys {
		if v := params.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// PayloadFromRequest reads the gateway callback fields from the request.
// Form-encoded POST bodies use the sessionId/serviceCode/phoneNumber/text
// convention; query parameters are accepted as a fallback with the aliases
// some gateways use.
func PayloadFromRequest(r *http.Request) Payload {
	var params url.Values

	switch r.Method {
	case http.MethodPost:
		_ = r.ParseForm()
		params = r.Form
	default:
		params = r.URL.Query()
	}

	text := getFormVal(params, "text", "USSD_PARAMS", "USSD_STRING", "ussd_string")

	return &payload{
		data: &payloadInternal{
			SessionID:    getFormVal(params, "sessionId", "SESSION_ID", "session_id", "session"),
			ServiceCode:  getFormVal(params, "serviceCode", "SERVICE_CODE", "service_code"),
			PhoneNumber:  getFormVal(params, "phoneNumber", "MSISDN", "msisdn", "phone_number"),
			Text:         text,
			CurrentInput: lastFragment(text),
		},
	}
}

// PayloadFromJSON restores a payload serialized with JSON().
func PayloadFromJSON(bs []byte) (Payload, error) {
	p := &payload{data: &payloadInternal{}}
	if err := json.Unmarshal(bs, p.data); err != nil {
		return nil, err
	}
	return p, nil
}
