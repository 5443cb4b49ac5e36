package ussd

import (
	"encoding/json"

	"github.com/Karagwa/ChapFarm/internal/models"
)

// State names a node in the menu graph. Stored on the session row between
// callbacks.
type State string

const (
	StateInitial           State = "INITIAL"
	StateMainMenu          State = "MAIN_MENU"
	StateRegisterName      State = "REGISTER_NAME"
	StateRegisterLocation  State = "REGISTER_LOCATION"
	StateRegisterRegion    State = "REGISTER_REGION"
	StateFarmerWeather     State = "FARMER_WEATHER"
	StateGuestWeather      State = "GUEST_WEATHER"
	StateWeatherLocation   State = "WEATHER_ENTER_LOCATION"
	StateAlertFlow         State = "ALERT_FLOW"
	StateGetAdvice         State = "GET_ADVICE"
	StateReportIssue       State = "REPORT_ISSUE"
	StateReportDescription State = "REPORT_DESCRIPTION"
	StateRequestTransport  State = "REQUEST_TRANSPORT"
	StateTransportPickup   State = "TRANSPORT_PICKUP"
	StateTransportDelivery State = "TRANSPORT_DELIVERY"
)

// Caller is the identity of the phone behind the current callback. Derived
// fresh from the phone number on every callback, never cached, so a guest who
// registers mid-dialog is a farmer on the very next callback.
type Caller struct {
	Known    bool
	FarmerID uint
	Name     string
	Location string
}

// CallerFromFarmer builds a Caller for a known farmer row; pass nil for a
// guest.
func CallerFromFarmer(farmer *models.Farmer) Caller {
	if farmer == nil {
		return Caller{}
	}
	return Caller{
		Known:    true,
		FarmerID: farmer.ID,
		Name:     farmer.Name,
		Location: farmer.Location,
	}
}

// Flow tags which sub-flow the scratch data belongs to. Only the branch
// matching the tag is valid; everything else is nil.
type Flow string

const (
	FlowNone         Flow = ""
	FlowRegistration Flow = "registration"
	FlowWeather      Flow = "weather"
	FlowReport       Flow = "report"
	FlowTransport    Flow = "transport"
)

// Scratch is the per-flow data accumulated across the steps of a sub-flow
// and cleared at flow completion. It is a tagged union rather than an open
// map so each state can only read the fields its flow wrote.
type Scratch struct {
	Flow         Flow              `json:"flow,omitempty"`
	Registration *RegistrationData `json:"registration,omitempty"`
	Weather      *WeatherScratch   `json:"weather,omitempty"`
	Report       *ReportScratch    `json:"report,omitempty"`
	Transport    *TransportScratch `json:"transport,omitempty"`
}

type RegistrationData struct {
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
}

type WeatherScratch struct {
	// Option is "1" for current weather, "2" for the 3-day forecast.
	Option string `json:"option,omitempty"`
}

type ReportScratch struct {
	IssueType string `json:"issue_type,omitempty"`
}

type TransportScratch struct {
	TransportType string `json:"transport_type,omitempty"`
	Pickup        string `json:"pickup,omitempty"`
}

// ScratchFromSession decodes the scratch column of a session row. Corrupt or
// empty data degrades to an empty scratch rather than an error; the machine
// resets it at the next flow boundary anyway.
func ScratchFromSession(sess *models.USSDSession) Scratch {
	if len(sess.Scratch) == 0 {
		return Scratch{}
	}
	var sc Scratch
	if err := json.Unmarshal(sess.Scratch, &sc); err != nil {
		return Scratch{}
	}
	return sc
}

// Marshal encodes scratch for the session row.
func (sc Scratch) Marshal() []byte {
	bs, err := json.Marshal(sc)
	if err != nil {
		return nil
	}
	return bs
}

// EffectKind discriminates the side-effect requests a transition can emit.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectCreateFarmer
	EffectCreateReport
	EffectCreateTransport
	EffectFetchWeather
	EffectFetchAlerts
	EffectFetchAdvice
)

// WeatherOption selects between a current observation and a forecast.
type WeatherOption string

const (
	WeatherCurrent  WeatherOption = "1"
	WeatherForecast WeatherOption = "2"
)

// Effect is a side-effect request produced by the state machine and executed
// by the dispatcher. Exactly one branch matching Kind is set.
type Effect struct {
	Kind EffectKind

	Farmer    *models.Farmer
	Report    *models.FarmerReport
	Transport *models.TransportRequest
	// Confirm is the terminal confirmation body rendered when a create
	// effect commits successfully.
	Confirm string

	WeatherQuery *WeatherQuery
	AlertsQuery  *AlertsQuery
	AdviceQuery  string
}

type WeatherQuery struct {
	Option   WeatherOption
	Location string
}

type AlertsQuery struct {
	Location string
}

// Outcome is the full result of one state transition: the next state, the
// replacement scratch data, and either a ready reply or an effect whose
// result the dispatcher renders.
type Outcome struct {
	Next    State
	Scratch Scratch
	Reply   Reply
	Effect  *Effect
}
