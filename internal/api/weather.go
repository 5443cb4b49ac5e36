package api

import (
	"net/http"
	"strconv"
)

func handleCurrentWeather(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := r.URL.Query().Get("location")
		if location == "" {
			httpError(w, http.StatusBadRequest, "location is required")
			return
		}

		obs, err := deps.Weather.Current(r.Context(), location)
		if err != nil {
			deps.Logger.Errorw("weather proxy failed", "location", location, "error", err)
			httpError(w, http.StatusBadGateway, "weather service unavailable")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"location":      location,
			"condition":     obs.Condition,
			"temp_c":        obs.TempC,
			"precipitation": obs.PrecipMM,
		})
	}
}

func handleForecast(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := r.URL.Query().Get("location")
		if location == "" {
			httpError(w, http.StatusBadRequest, "location is required")
			return
		}
		days, _ := strconv.Atoi(r.URL.Query().Get("days"))
		if days <= 0 || days > 10 {
			days = 3
		}

		forecast, err := deps.Weather.Forecast(r.Context(), location, days)
		if err != nil {
			deps.Logger.Errorw("forecast proxy failed", "location", location, "error", err)
			httpError(w, http.StatusBadGateway, "weather service unavailable")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"location": location,
			"days":     forecast,
		})
	}
}
