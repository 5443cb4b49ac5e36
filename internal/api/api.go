// Package api is the REST surface for the dashboard front-ends: admin user
// management, farmer records, reports, transport dispatch, alert broadcast
// and weather proxying. The USSD callback endpoint lives in internal/ussd.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Karagwa/ChapFarm/internal/auth"
	"github.com/Karagwa/ChapFarm/internal/mailer"
	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/sms"
	"github.com/Karagwa/ChapFarm/internal/storage"
	"github.com/Karagwa/ChapFarm/internal/weather"
)

// Deps carries the collaborators the REST handlers need. Mailer and SMS may
// be nil when the deployment has no SMTP or gateway credentials; the
// affected routes then report service unavailable.
type Deps struct {
	Store   *storage.Store
	Auth    *auth.Manager
	Weather *weather.Client
	SMS     *sms.Client
	Mailer  *mailer.Mailer
	Logger  *zap.SugaredLogger
}

// NewRouter wires all REST routes.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/login", handleLogin(deps))
	r.Post("/password/request-reset", handleRequestReset(deps))
	r.Post("/password/reset", handleResetPassword(deps))

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Middleware)

		r.With(auth.RequireRole(models.RoleAdmin)).Group(func(r chi.Router) {
			r.Get("/auth/users", handleListUsers(deps))
			r.Post("/admin/admins/register", handleRegisterAdmin(deps))
			r.Post("/admin/farmers/register", handleRegisterFarmer(deps))
			r.Post("/admin/transport/register", handleRegisterTransportProvider(deps))
			r.Post("/admin/authority/register", handleRegisterAuthority(deps))
			r.Post("/alerts/send", handleSendAlert(deps))
		})

		r.With(auth.RequireRole(models.RoleTransportProvider)).Group(func(r chi.Router) {
			r.Get("/transport/requests", handleListTransportRequests(deps))
			r.Patch("/transport/requests/{id}", handleUpdateTransportRequest(deps))
		})

		r.With(auth.RequireRole(models.RoleAgricultureAuthority)).Group(func(r chi.Router) {
			r.Get("/authority/reports", handleListReports(deps))
			r.Post("/authority/alerts", handleCreateAgricultureAlert(deps))
		})

		r.Get("/farmers", handleListFarmers(deps))
		r.Post("/farmers", handleCreateFarmer(deps))
		r.Get("/farmers/reports", handleListReports(deps))
		r.Post("/farmers/reports", handleCreateReport(deps))
		r.Get("/farmers/alerts", handleListWeatherAlerts(deps))
		r.Get("/farmers/{id}", handleGetFarmer(deps))
		r.Delete("/farmers/{id}", handleDeleteFarmer(deps))

		r.Get("/weather/current", handleCurrentWeather(deps))
		r.Get("/weather/forecast", handleForecast(deps))
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func httpError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	respondJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}
