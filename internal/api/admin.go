package api

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/Karagwa/ChapFarm/internal/auth"
	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/storage"
)

type registerUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`

	// Role-specific fields.
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Location    string `json:"location,omitempty"`
	Region      string `json:"region,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	AgencyName  string `json:"agency_name,omitempty"`
}

// newUser validates the shared fields and builds the User row.
func newUser(ctx context.Context, deps Deps, w http.ResponseWriter, req *registerUserRequest, role string) (*models.User, bool) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		httpError(w, http.StatusBadRequest, "username, email and password are required")
		return nil, false
	}

	_, err := deps.Store.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		httpError(w, http.StatusBadRequest, "User already exists")
		return nil, false
	case errors.Is(err, storage.ErrNotFound):
	default:
		deps.Logger.Errorw("user lookup failed", "error", err)
		httpError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		deps.Logger.Errorw("failed to hash password", "error", err)
		httpError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}

	return &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Role:     role,
	}, true
}

func handleRegisterAdmin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerUserRequest
		if !decodeBody(w, r, &req) {
			return
		}

		user, ok := newUser(r.Context(), deps, w, &req, models.RoleAdmin)
		if !ok {
			return
		}

		err := deps.Store.Transaction(r.Context(), func(tx *gorm.DB) error {
			return deps.Store.CreateUser(tx, user)
		})
		if err != nil {
			deps.Logger.Errorw("failed to register admin", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "Admin registered successfully",
			"user_id": user.ID,
		})
	}
}

// handleRegisterFarmer creates a dashboard account and the farmer row in one
// transaction, so a farmer cannot exist without its account or vice versa.
func handleRegisterFarmer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerUserRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Phone == "" {
			httpError(w, http.StatusBadRequest, "phone is required")
			return
		}

		user, ok := newUser(r.Context(), deps, w, &req, models.RoleFarmer)
		if !ok {
			return
		}

		farmer := &models.Farmer{
			Name:     req.Name,
			Phone:    req.Phone,
			Location: req.Location,
			Region:   req.Region,
		}

		err := deps.Store.Transaction(r.Context(), func(tx *gorm.DB) error {
			if err := deps.Store.CreateUser(tx, user); err != nil {
				return err
			}
			return deps.Store.CreateFarmer(tx, farmer)
		})
		if err != nil {
			deps.Logger.Errorw("failed to register farmer", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusCreated, map[string]interface{}{
			"message":   "Farmer registered successfully",
			"user_id":   user.ID,
			"farmer_id": farmer.ID,
		})
	}
}

func handleRegisterTransportProvider(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerUserRequest
		if !decodeBody(w, r, &req) {
			return
		}

		user, ok := newUser(r.Context(), deps, w, &req, models.RoleTransportProvider)
		if !ok {
			return
		}

		provider := &models.TransportProvider{
			CompanyName: req.CompanyName,
			Phone:       req.Phone,
			Region:      req.Region,
		}

		err := deps.Store.Transaction(r.Context(), func(tx *gorm.DB) error {
			if err := deps.Store.CreateUser(tx, user); err != nil {
				return err
			}
			provider.UserID = user.ID
			return deps.Store.CreateTransportProvider(tx, provider)
		})
		if err != nil {
			deps.Logger.Errorw("failed to register transport provider", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusCreated, map[string]interface{}{
			"message":     "Transport provider registered successfully",
			"user_id":     user.ID,
			"provider_id": provider.ID,
		})
	}
}

func handleRegisterAuthority(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerUserRequest
		if !decodeBody(w, r, &req) {
			return
		}

		user, ok := newUser(r.Context(), deps, w, &req, models.RoleAgricultureAuthority)
		if !ok {
			return
		}

		authority := &models.AgricultureAuthority{
			AgencyName: req.AgencyName,
			Region:     req.Region,
		}

		err := deps.Store.Transaction(r.Context(), func(tx *gorm.DB) error {
			if err := deps.Store.CreateUser(tx, user); err != nil {
				return err
			}
			authority.UserID = user.ID
			return deps.Store.CreateAgricultureAuthority(tx, authority)
		})
		if err != nil {
			deps.Logger.Errorw("failed to register authority", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusCreated, map[string]interface{}{
			"message":      "Agriculture authority registered successfully",
			"user_id":      user.ID,
			"authority_id": authority.ID,
		})
	}
}
