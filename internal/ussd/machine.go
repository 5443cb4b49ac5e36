package ussd

import (
	"fmt"

	"github.com/Karagwa/ChapFarm/internal/models"
)

// Menu and prompt texts. CON/END prefixes are applied by the renderer.
const (
	guestWelcomeText = "Welcome to ChapFarm\n1. Register\n2. Get Weather (Guest)"

	farmerWelcomeText = "Welcome back to ChapFarm\n" +
		"1. Get Weather Update\n" +
		"2. View Weather Alerts\n" +
		"3. Get Advice\n" +
		"4. Report issue\n" +
		"5. Request transport"

	weatherOptionsText = "Weather Options:\n1. Current Weather\n2. 3-Day Forecast"

	transportMenuText = "Select transport need:\n1. Bicycle\n2. Motorcycle\n3. Van\n4. Lorry"

	promptNameText      = "Enter your full name:"
	promptLocationText  = "Enter your location:"
	promptRegionText    = "Enter your region:"
	promptAdviceText    = "Enter your advice request:"
	promptIssueTypeText = "Enter your issue type:"
	promptIssueDescText = "Enter your issue description:"
	promptPickupText    = "Enter pickup location:"
	promptDeliveryText  = "Enter delivery location:"

	invalidOptionText    = "Invalid option. Please try again."
	invalidWeatherText   = "Invalid weather option selected."
	invalidTransportText = "Invalid transport type selected."
	registerFirstText    = "You must register first to use this service.\nDial again and select Register."
	sessionExpiredText   = "Your session has expired. Please dial again."
)

var transportTypes = map[string]string{
	"1": "Bicycle",
	"2": "Motorcycle",
	"3": "Van",
	"4": "Lorry",
}

// Step is the menu state machine. It is a pure function of the current
// state, the accumulated scratch data, the caller identity and the newest
// input fragment; it performs no I/O and mutates nothing. Side effects come
// back as requests for the dispatcher.
func Step(state State, sc Scratch, caller Caller, input string) Outcome {
	switch state {
	case StateInitial:
		return stepInitial(caller)
	case StateMainMenu:
		return stepMainMenu(caller, input)
	case StateRegisterName:
		return cont(StateRegisterLocation, promptLocationText, Scratch{
			Flow:         FlowRegistration,
			Registration: &RegistrationData{Name: input},
		})
	case StateRegisterLocation:
		reg := registration(sc)
		reg.Location = input
		return cont(StateRegisterRegion, promptRegionText, Scratch{Flow: FlowRegistration, Registration: reg})
	case StateRegisterRegion:
		return stepRegisterRegion(sc, caller, input)
	case StateFarmerWeather, StateGuestWeather:
		return stepWeatherOptions(caller, input)
	case StateWeatherLocation:
		return stepWeatherLocation(sc, input)
	case StateAlertFlow:
		return fetchAlerts(input)
	case StateGetAdvice:
		return effect(&Effect{Kind: EffectFetchAdvice, AdviceQuery: input})
	case StateReportIssue:
		return cont(StateReportDescription, promptIssueDescText, Scratch{
			Flow:   FlowReport,
			Report: &ReportScratch{IssueType: input},
		})
	case StateReportDescription:
		return stepReportDescription(sc, caller, input)
	case StateRequestTransport:
		return stepRequestTransport(input)
	case StateTransportPickup:
		tr := transport(sc)
		tr.Pickup = input
		return cont(StateTransportDelivery, promptDeliveryText, Scratch{Flow: FlowTransport, Transport: tr})
	case StateTransportDelivery:
		return stepTransportDelivery(sc, caller, input)
	}

	// Unknown or stale state: degrade to a safe terminal response and start
	// the next dial clean.
	return end(sessionExpiredText)
}

func stepInitial(caller Caller) Outcome {
	if caller.Known {
		return cont(StateMainMenu, farmerWelcomeText, Scratch{})
	}
	return cont(StateMainMenu, guestWelcomeText, Scratch{})
}

func stepMainMenu(caller Caller, input string) Outcome {
	if !caller.Known {
		switch input {
		case "1":
			return cont(StateRegisterName, promptNameText, Scratch{Flow: FlowRegistration, Registration: &RegistrationData{}})
		case "2":
			return cont(StateGuestWeather, weatherOptionsText, Scratch{Flow: FlowWeather, Weather: &WeatherScratch{}})
		}
		return end(invalidOptionText)
	}

	switch input {
	case "1":
		return cont(StateFarmerWeather, weatherOptionsText, Scratch{Flow: FlowWeather, Weather: &WeatherScratch{}})
	case "2":
		if caller.Location == "" {
			return cont(StateAlertFlow, promptLocationText, Scratch{})
		}
		return fetchAlerts(caller.Location)
	case "3":
		return cont(StateGetAdvice, promptAdviceText, Scratch{})
	case "4":
		return cont(StateReportIssue, promptIssueTypeText, Scratch{Flow: FlowReport, Report: &ReportScratch{}})
	case "5":
		return cont(StateRequestTransport, transportMenuText, Scratch{Flow: FlowTransport, Transport: &TransportScratch{}})
	}
	return end(invalidOptionText)
}

func stepRegisterRegion(sc Scratch, caller Caller, input string) Outcome {
	reg := registration(sc)
	name := firstVal(reg.Name, "Farmer")
	location := firstVal(reg.Location, "Unknown")

	if caller.Known {
		// Phone already registered, e.g. by an admin mid-dialog. Creating a
		// second farmer row would violate the one-farmer-per-phone rule.
		return end(fmt.Sprintf("You are already registered as %s.", caller.Name))
	}

	confirm := fmt.Sprintf("Registration successful!\nName: %s\nLocation: %s\nYou can now access full features.", name, location)

	return effect(&Effect{
		Kind: EffectCreateFarmer,
		Farmer: &models.Farmer{
			Name:     name,
			Location: location,
			Region:   input,
		},
		Confirm: confirm,
	})
}

func stepWeatherOptions(caller Caller, input string) Outcome {
	if input != string(WeatherCurrent) && input != string(WeatherForecast) {
		return end(invalidWeatherText)
	}

	// Farmers with a location on file skip the location prompt.
	if caller.Known && caller.Location != "" {
		return effect(&Effect{
			Kind:         EffectFetchWeather,
			WeatherQuery: &WeatherQuery{Option: WeatherOption(input), Location: caller.Location},
		})
	}

	return cont(StateWeatherLocation, promptLocationText, Scratch{
		Flow:    FlowWeather,
		Weather: &WeatherScratch{Option: input},
	})
}

func stepWeatherLocation(sc Scratch, input string) Outcome {
	option := WeatherCurrent
	if sc.Flow == FlowWeather && sc.Weather != nil && sc.Weather.Option != "" {
		option = WeatherOption(sc.Weather.Option)
	}
	return effect(&Effect{
		Kind:         EffectFetchWeather,
		WeatherQuery: &WeatherQuery{Option: option, Location: input},
	})
}

func stepReportDescription(sc Scratch, caller Caller, input string) Outcome {
	if !caller.Known {
		return end(registerFirstText)
	}

	issueType := "Unknown"
	if sc.Flow == FlowReport && sc.Report != nil && sc.Report.IssueType != "" {
		issueType = sc.Report.IssueType
	}

	confirm := fmt.Sprintf("Report submitted successfully!\nIssue: %s\nDescription: %s", issueType, input)

	return effect(&Effect{
		Kind: EffectCreateReport,
		Report: &models.FarmerReport{
			FarmerID:    caller.FarmerID,
			IssueType:   issueType,
			Description: input,
			Location:    caller.Location,
			Status:      models.StatusPending,
		},
		Confirm: confirm,
	})
}

func stepRequestTransport(input string) Outcome {
	transportType, ok := transportTypes[input]
	if !ok {
		return end(invalidTransportText)
	}
	return cont(StateTransportPickup, promptPickupText, Scratch{
		Flow:      FlowTransport,
		Transport: &TransportScratch{TransportType: transportType},
	})
}

func stepTransportDelivery(sc Scratch, caller Caller, input string) Outcome {
	if !caller.Known {
		return end(registerFirstText)
	}

	tr := transport(sc)

	confirm := fmt.Sprintf("Transport request submitted successfully!\nType: %s\nPickup: %s\nDelivery: %s",
		tr.TransportType, tr.Pickup, input)

	return effect(&Effect{
		Kind: EffectCreateTransport,
		Transport: &models.TransportRequest{
			FarmerID:        caller.FarmerID,
			TransportType:   tr.TransportType,
			PickupLocation:  tr.Pickup,
			DropoffLocation: input,
			Status:          models.StatusPending,
		},
		Confirm: confirm,
	})
}

func fetchAlerts(location string) Outcome {
	return effect(&Effect{
		Kind:        EffectFetchAlerts,
		AlertsQuery: &AlertsQuery{Location: location},
	})
}

// registration returns the registration scratch, tolerating stale or missing
// data so a bad row never panics a callback.
func registration(sc Scratch) *RegistrationData {
	if sc.Flow == FlowRegistration && sc.Registration != nil {
		return sc.Registration
	}
	return &RegistrationData{}
}

func transport(sc Scratch) *TransportScratch {
	if sc.Flow == FlowTransport && sc.Transport != nil {
		return sc.Transport
	}
	return &TransportScratch{}
}

func firstVal(vals ...string) string {
	for _, val := range vals {
		if val != "" {
			return val
		}
	}
	return ""
}

// cont continues the dialog at the given state with the given prompt.
func cont(next State, text string, sc Scratch) Outcome {
	return Outcome{Next: next, Scratch: sc, Reply: ContinueReply(text)}
}

// end closes the dialog and resets the session so the next dial starts clean.
func end(text string) Outcome {
	return Outcome{Next: StateInitial, Scratch: Scratch{}, Reply: EndReply(text)}
}

// effect hands control to the dispatcher; the session ends up back at
// INITIAL whether the effect succeeds or fails, so every effect transition is
// terminal.
func effect(e *Effect) Outcome {
	return Outcome{Next: StateInitial, Scratch: Scratch{}, Effect: e}
}
