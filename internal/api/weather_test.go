package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Karagwa/ChapFarm/internal/auth"
	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/storage"
	"github.com/Karagwa/ChapFarm/internal/weather"
)

func newWeatherAPIEnv(t *testing.T, upstream *httptest.Server) *apiEnv {
	t.Helper()

	db, err := storage.Open(&storage.Options{Dialect: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	mgr, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	client, err := weather.NewClient(&weather.Options{
		APIKey:  "test-key",
		BaseURL: upstream.URL,
		Logger:  zap.NewNop().Sugar(),
	})
	require.NoError(t, err)

	env := &apiEnv{store: storage.NewStore(db), auth: mgr}
	env.router = NewRouter(Deps{
		Store:   env.store,
		Auth:    mgr,
		Weather: client,
		Logger:  zap.NewNop().Sugar(),
	})
	return env
}

func TestCurrentWeatherProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"condition":{"text":"Sunny"},"temp_c":27,"precip_mm":0}}`))
	}))
	defer upstream.Close()

	env := newWeatherAPIEnv(t, upstream)
	_, token := env.seedUser(t, "admin", "pw", models.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/weather/current?location=Kampala", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Kampala", res["location"])
	assert.Equal(t, "Sunny", res["condition"])

	t.Run("missing location", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/weather/current", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestForecastProxyUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	env := newWeatherAPIEnv(t, upstream)
	_, token := env.seedUser(t, "admin", "pw", models.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/weather/forecast?location=Kampala", token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
