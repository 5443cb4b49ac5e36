package ussd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Karagwa/ChapFarm/internal/weather"
)

const (
	conPrefix = "CON"
	endPrefix = "END"

	// Practical ceiling for feature phone displays. Longer content such as
	// multi-alert lists is truncated.
	maxResponseLen = 480
)

// Reply is a response body plus the dialog disposition. Terminal replies are
// rendered with the END marker and close the dialog; everything else gets
// CON and keeps it open.
type Reply struct {
	Text     string
	Terminal bool
}

func ContinueReply(text string) Reply {
	return Reply{Text: text}
}

func EndReply(text string) Reply {
	return Reply{Text: text, Terminal: true}
}

// Render produces the wire form of a reply. The length cap covers the full
// response, marker included.
func Render(reply Reply) string {
	marker := conPrefix
	if reply.Terminal {
		marker = endPrefix
	}
	text := truncate(strings.TrimSpace(reply.Text), maxResponseLen-len(marker)-1)
	return fmt.Sprintf("%s %s", marker, text)
}

// WriteReply writes the rendered reply as the plain-text body the gateway
// expects.
func WriteReply(w http.ResponseWriter, reply Reply) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := io.WriteString(w, Render(reply))
	return err
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// FormatCurrentWeather renders a current observation.
func FormatCurrentWeather(location string, obs *weather.Observation) string {
	return fmt.Sprintf("Current Weather in %s:\nCondition: %s\nTemp: %.1f°C\nRain: %.1fmm",
		location, obs.Condition, obs.TempC, obs.PrecipMM)
}

// FormatForecast renders up to three forecast days.
func FormatForecast(location string, days []weather.ForecastDay) string {
	var b strings.Builder
	fmt.Fprintf(&b, "3-Day Forecast for %s:", location)
	for i, day := range days {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "\n%s - %s: %.0f°C to %.0f°C with %.1fmm rain",
			day.Date, day.Condition, day.MinTempC, day.MaxTempC, day.PrecipMM)
	}
	return b.String()
}

// FormatAlerts renders the currently-active alerts for a location.
func FormatAlerts(location string, alerts []weather.Alert) string {
	if len(alerts) == 0 {
		return "No weather alerts available."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weather Alerts for %s:", location)
	for _, alert := range alerts {
		fmt.Fprintf(&b, "\n%s: %s (Severity: %s)", alert.Type, alert.Message, alert.Severity)
	}
	return b.String()
}

// FormatAdvice renders an advice response.
func FormatAdvice(text string) string {
	return "Advice:\n" + text
}
