package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/storage"
)

const maxPageSize = 100

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func handleCreateFarmer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var farmer models.Farmer
		if !decodeBody(w, r, &farmer) {
			return
		}
		if farmer.Phone == "" {
			httpError(w, http.StatusBadRequest, "phone is required")
			return
		}

		err := deps.Store.Transaction(r.Context(), func(tx *gorm.DB) error {
			return deps.Store.CreateFarmer(tx, &farmer)
		})
		if err != nil {
			deps.Logger.Errorw("failed to create farmer", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusCreated, farmer)
	}
}

func handleListFarmers(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > maxPageSize {
			limit = maxPageSize
		}

		farmers, err := deps.Store.ListFarmers(r.Context(), offset, limit)
		if err != nil {
			deps.Logger.Errorw("failed to list farmers", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusOK, farmers)
	}
}

func handleGetFarmer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid farmer id")
			return
		}

		farmer, err := deps.Store.GetFarmer(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "Farmer not found")
			return
		}
		if err != nil {
			deps.Logger.Errorw("failed to get farmer", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusOK, farmer)
	}
}

func handleDeleteFarmer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid farmer id")
			return
		}

		err := deps.Store.DeleteFarmer(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "Farmer not found")
			return
		}
		if err != nil {
			deps.Logger.Errorw("failed to delete farmer", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"message": "Farmer deleted successfully"})
	}
}

func handleCreateReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var report models.FarmerReport
		if !decodeBody(w, r, &report) {
			return
		}
		if report.FarmerID == 0 {
			httpError(w, http.StatusBadRequest, "farmer_id is required")
			return
		}
		if report.Status == "" {
			report.Status = models.StatusPending
		}

		err := deps.Store.Transaction(r.Context(), func(tx *gorm.DB) error {
			return deps.Store.CreateReport(tx, &report)
		})
		if err != nil {
			deps.Logger.Errorw("failed to create report", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusCreated, report)
	}
}

func handleListReports(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := deps.Store.ListReports(r.Context())
		if err != nil {
			deps.Logger.Errorw("failed to list reports", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusOK, reports)
	}
}

func handleListWeatherAlerts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts, err := deps.Store.ListWeatherAlerts(r.Context())
		if err != nil {
			deps.Logger.Errorw("failed to list weather alerts", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(w, http.StatusOK, alerts)
	}
}
