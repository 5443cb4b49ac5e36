package api

import (
	"errors"
	"net/http"

	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/storage"
)

var validStatuses = map[string]bool{
	models.StatusPending:   true,
	models.StatusCompleted: true,
	models.StatusCancelled: true,
}

func handleListTransportRequests(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqs, err := deps.Store.ListTransportRequests(r.Context())
		if err != nil {
			deps.Logger.Errorw("failed to list transport requests", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusOK, reqs)
	}
}

type transportPatch struct {
	Status string `json:"status"`
}

func handleUpdateTransportRequest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid request id")
			return
		}

		var patch transportPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		if !validStatuses[patch.Status] {
			httpError(w, http.StatusBadRequest, "invalid status: %s", patch.Status)
			return
		}

		updated, err := deps.Store.UpdateTransportStatus(r.Context(), id, patch.Status)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "Transport request not found")
			return
		}
		if err != nil {
			deps.Logger.Errorw("failed to update transport request", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

type agricultureAlertRequest struct {
	AlertType   string `json:"alert_type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

func handleCreateAgricultureAlert(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req agricultureAlertRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.AlertType == "" {
			httpError(w, http.StatusBadRequest, "alert_type is required")
			return
		}

		alert := &models.AgricultureAlert{
			AlertType:   req.AlertType,
			Description: req.Description,
			Severity:    req.Severity,
		}
		if id, ok := authUserID(r); ok {
			alert.AuthorityID = id
		}

		if err := deps.Store.CreateAgricultureAlert(r.Context(), alert); err != nil {
			deps.Logger.Errorw("failed to create agriculture alert", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusCreated, alert)
	}
}
