package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/storage"
)

func newTestClient(t *testing.T, srv *httptest.Server, store *storage.Store) *Client {
	t.Helper()
	client, err := NewClient(&Options{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Store:   store,
		Logger:  zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	return client
}

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "Kampala", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"current":{"condition":{"text":"Partly cloudy"},"temp_c":24.5,"precip_mm":0.2}}`))
	}))
	defer srv.Close()

	obs, err := newTestClient(t, srv, nil).Current(context.Background(), "Kampala")
	require.NoError(t, err)
	assert.Equal(t, "Partly cloudy", obs.Condition)
	assert.Equal(t, 24.5, obs.TempC)
	assert.Equal(t, 0.2, obs.PrecipMM)
}

func TestForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast.json", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(`{"forecast":{"forecastday":[
			{"date":"2026-09-01","day":{"condition":{"text":"Rain"},"maxtemp_c":23,"mintemp_c":17,"totalprecip_mm":4.2}},
			{"date":"2026-09-02","day":{"condition":{"text":"Sunny"},"maxtemp_c":26,"mintemp_c":18,"totalprecip_mm":0}}
		]}}`))
	}))
	defer srv.Close()

	days, err := newTestClient(t, srv, nil).Forecast(context.Background(), "Kampala", 3)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, ForecastDay{Date: "2026-09-01", Condition: "Rain", MinTempC: 17, MaxTempC: 23, PrecipMM: 4.2}, days[0])
}

func TestActiveAlertsFiltersByWindow(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alerts.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"alerts":{"alert":[
			{"event":"Flood","headline":"Heavy rains expected","severity":"Severe","urgency":"Immediate",
			 "effective":"2026-09-01T00:00:00Z","expires":"2026-09-02T00:00:00Z"},
			{"event":"Wind","headline":"Expired gusts","severity":"Moderate","urgency":"Expected",
			 "effective":"2026-08-01T00:00:00Z","expires":"2026-08-02T00:00:00Z"},
			{"event":"Heat","headline":"Not yet effective","severity":"Minor","urgency":"Future",
			 "effective":"2026-09-05T00:00:00Z","expires":"2026-09-06T00:00:00Z"}
		]}}`))
	}))
	defer srv.Close()

	db, err := storage.Open(&storage.Options{Dialect: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	store := storage.NewStore(db)

	alerts, err := newTestClient(t, srv, store).ActiveAlerts(context.Background(), "Kampala", now)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Flood", alerts[0].Type)
	assert.Equal(t, "Heavy rains expected", alerts[0].Message)

	// The active alert was also persisted for the dashboard.
	var count int64
	require.NoError(t, db.Model(&models.WeatherAlert{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpstreamErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv, nil).Current(context.Background(), "Kampala")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv, nil).Current(context.Background(), "Kampala")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := newTestClient(t, srv, nil).Current(context.Background(), "Kampala")
		assert.ErrorIs(t, err, ErrUpstream)
	})
}
