// Package weather is a thin client for the weatherapi.com REST API. Calls
// are single-attempt by design; USSD callers retry by redialing and latency
// budgets are tight.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/storage"
)

// ErrUpstream is returned for any provider failure: unreachable, non-200, or
// malformed body. Callers map it to a generic terminal message.
var ErrUpstream = errors.New("weather provider failure")

// Observation is a current weather reading.
type Observation struct {
	Condition string
	TempC     float64
	PrecipMM  float64
}

// ForecastDay is one day of a forecast.
type ForecastDay struct {
	Date      string
	Condition string
	MinTempC  float64
	MaxTempC  float64
	PrecipMM  float64
}

// Alert is a weather alert active for a location.
type Alert struct {
	Type      string
	Message   string
	Severity  string
	Urgency   string
	Effective time.Time
	Expires   time.Time
}

// Options for the weather client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Store      *storage.Store
	Logger     *zap.SugaredLogger
}

type Client struct {
	opt *Options
}

func NewClient(opt *Options) (*Client, error) {
	switch {
	case opt == nil:
		return nil, errors.New("missing options")
	case opt.APIKey == "":
		return nil, errors.New("missing weather api key")
	case opt.BaseURL == "":
		return nil, errors.New("missing weather base url")
	case opt.Logger == nil:
		return nil, errors.New("missing logger")
	default:
		if opt.HTTPClient == nil {
			opt.HTTPClient = &http.Client{Timeout: 10 * time.Second}
		}
	}
	return &Client{opt: opt}, nil
}

// Wire shapes of the provider payloads. Only the fields we read.
type conditionJSON struct {
	Text string `json:"text"`
}

type currentJSON struct {
	Current struct {
		Condition conditionJSON `json:"condition"`
		TempC     float64       `json:"temp_c"`
		PrecipMM  float64       `json:"precip_mm"`
	} `json:"current"`
}

type forecastJSON struct {
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				Condition     conditionJSON `json:"condition"`
				MaxTempC      float64       `json:"maxtemp_c"`
				MinTempC      float64       `json:"mintemp_c"`
				TotalPrecipMM float64       `json:"totalprecip_mm"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

type alertsJSON struct {
	Alerts struct {
		Alert []struct {
			Event     string    `json:"event"`
			Headline  string    `json:"headline"`
			Severity  string    `json:"severity"`
			Urgency   string    `json:"urgency"`
			Effective time.Time `json:"effective"`
			Expires   time.Time `json:"expires"`
		} `json:"alert"`
	} `json:"alerts"`
}

func (c *Client) get(ctx context.Context, endpoint, location string, extra url.Values, out interface{}) error {
	params := url.Values{}
	params.Set("key", c.opt.APIKey)
	params.Set("q", location)
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.opt.BaseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	res, err := c.opt.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrUpstream, endpoint, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrUpstream, endpoint, err)
	}

	return nil
}

// Current fetches the current observation for a location.
func (c *Client) Current(ctx context.Context, location string) (*Observation, error) {
	data := &currentJSON{}
	if err := c.get(ctx, "current.json", location, nil, data); err != nil {
		return nil, err
	}
	return &Observation{
		Condition: data.Current.Condition.Text,
		TempC:     data.Current.TempC,
		PrecipMM:  data.Current.PrecipMM,
	}, nil
}

// Forecast fetches a daily forecast for the given number of days.
func (c *Client) Forecast(ctx context.Context, location string, days int) ([]ForecastDay, error) {
	data := &forecastJSON{}
	extra := url.Values{"days": []string{fmt.Sprint(days)}}
	if err := c.get(ctx, "forecast.json", location, extra, data); err != nil {
		return nil, err
	}

	out := make([]ForecastDay, 0, len(data.Forecast.ForecastDay))
	for _, day := range data.Forecast.ForecastDay {
		out = append(out, ForecastDay{
			Date:      day.Date,
			Condition: day.Day.Condition.Text,
			MinTempC:  day.Day.MinTempC,
			MaxTempC:  day.Day.MaxTempC,
			PrecipMM:  day.Day.TotalPrecipMM,
		})
	}
	return out, nil
}

// ActiveAlerts fetches alerts for a location and filters them to those in
// effect at now. Fetched alerts are also saved for the dashboard; a save
// failure is logged but does not fail the fetch.
func (c *Client) ActiveAlerts(ctx context.Context, location string, now time.Time) ([]Alert, error) {
	data := &alertsJSON{}
	if err := c.get(ctx, "alerts.json", location, nil, data); err != nil {
		return nil, err
	}

	var (
		active []Alert
		rows   []*models.WeatherAlert
	)
	for _, a := range data.Alerts.Alert {
		if a.Effective.After(now) || a.Expires.Before(now) {
			continue
		}
		active = append(active, Alert{
			Type:      a.Event,
			Message:   a.Headline,
			Severity:  a.Severity,
			Urgency:   a.Urgency,
			Effective: a.Effective,
			Expires:   a.Expires,
		})
		rows = append(rows, &models.WeatherAlert{
			Location:      location,
			AlertType:     a.Event,
			AlertMessage:  a.Headline,
			Severity:      a.Severity,
			UrgencyLevel:  a.Urgency,
			EffectiveTime: a.Effective,
			ExpiresTime:   a.Expires,
		})
	}

	if c.opt.Store != nil {
		if err := c.opt.Store.SaveWeatherAlerts(ctx, rows); err != nil {
			c.opt.Logger.Errorw("failed to save weather alerts", "location", location, "error", err)
		}
	}

	return active, nil
}
