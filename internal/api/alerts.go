package api

import (
	"fmt"
	"net/http"

	"github.com/Karagwa/ChapFarm/internal/auth"
)

func authUserID(r *http.Request) (uint, bool) {
	return auth.UserIDFromContext(r.Context())
}

type sendAlertRequest struct {
	Region  string `json:"region"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// handleSendAlert broadcasts an alert by SMS to every farmer in a region, or
// to all farmers when region is "All".
func handleSendAlert(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendAlertRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Region == "" || req.Message == "" {
			httpError(w, http.StatusBadRequest, "region and message are required")
			return
		}
		if deps.SMS == nil {
			httpError(w, http.StatusServiceUnavailable, "sms gateway is not configured")
			return
		}

		phones, err := deps.Store.FarmerPhones(r.Context(), req.Region)
		if err != nil {
			deps.Logger.Errorw("failed to look up farmer phones", "region", req.Region, "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if len(phones) == 0 {
			httpError(w, http.StatusNotFound, "No phone numbers found for the selected region.")
			return
		}

		body := req.Message
		if req.Title != "" {
			body = fmt.Sprintf("%s\n%s", req.Title, req.Message)
		}

		recipients, err := deps.SMS.Send(r.Context(), body, phones)
		if err != nil {
			deps.Logger.Errorw("failed to send alert sms", "region", req.Region, "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to send alert")
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "success",
			"recipients": recipients,
		})
	}
}
