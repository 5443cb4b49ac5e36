package ussd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Karagwa/ChapFarm/internal/weather"
)

func TestRenderPrefixes(t *testing.T) {
	assert.Equal(t, "CON Enter your full name:", Render(ContinueReply("Enter your full name:")))
	assert.Equal(t, "END Goodbye", Render(EndReply("Goodbye")))
}

func TestRenderTrimsWhitespace(t *testing.T) {
	assert.Equal(t, "CON hello", Render(ContinueReply("  hello \n")))
}

func TestRenderTruncatesLongBody(t *testing.T) {
	long := strings.Repeat("a", maxResponseLen+50)

	for _, reply := range []Reply{EndReply(long), ContinueReply(long)} {
		got := Render(reply)
		assert.Len(t, []rune(got), maxResponseLen)
		assert.True(t, strings.HasSuffix(got, "..."))
	}
}

func TestRenderBodyAtCapIsUntouched(t *testing.T) {
	body := strings.Repeat("a", maxResponseLen-len("CON "))
	got := Render(ContinueReply(body))

	assert.Len(t, []rune(got), maxResponseLen)
	assert.False(t, strings.HasSuffix(got, "..."))
}

func TestFormatCurrentWeather(t *testing.T) {
	obs := &weather.Observation{Condition: "Partly cloudy", TempC: 24.5, PrecipMM: 0.25}
	got := FormatCurrentWeather("Kampala", obs)

	assert.Equal(t, "Current Weather in Kampala:\nCondition: Partly cloudy\nTemp: 24.5°C\nRain: 0.2mm", got)
}

func TestFormatForecastCapsAtThreeDays(t *testing.T) {
	days := []weather.ForecastDay{
		{Date: "2026-09-01", Condition: "Rain", MinTempC: 17, MaxTempC: 23, PrecipMM: 4.2},
		{Date: "2026-09-02", Condition: "Sunny", MinTempC: 18, MaxTempC: 26, PrecipMM: 0},
		{Date: "2026-09-03", Condition: "Cloudy", MinTempC: 16, MaxTempC: 24, PrecipMM: 1.1},
		{Date: "2026-09-04", Condition: "Storm", MinTempC: 15, MaxTempC: 22, PrecipMM: 9.9},
	}
	got := FormatForecast("Mbale", days)

	assert.Contains(t, got, "3-Day Forecast for Mbale:")
	assert.Contains(t, got, "2026-09-03")
	assert.NotContains(t, got, "2026-09-04")
}

func TestFormatAlertsEmpty(t *testing.T) {
	assert.Equal(t, "No weather alerts available.", FormatAlerts("Kampala", nil))
}

func TestFormatAlerts(t *testing.T) {
	alerts := []weather.Alert{
		{Type: "Flood", Message: "Heavy rains expected", Severity: "Severe"},
		{Type: "Wind", Message: "Strong gusts", Severity: "Moderate"},
	}
	got := FormatAlerts("Gulu", alerts)

	assert.Contains(t, got, "Weather Alerts for Gulu:")
	assert.Contains(t, got, "Flood: Heavy rains expected (Severity: Severe)")
	assert.Contains(t, got, "Wind: Strong gusts (Severity: Moderate)")
}
