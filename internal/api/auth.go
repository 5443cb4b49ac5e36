package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Karagwa/ChapFarm/internal/auth"
	"github.com/Karagwa/ChapFarm/internal/storage"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func handleLogin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		user, err := deps.Store.GetUserByUsername(r.Context(), req.Username)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && auth.CheckPassword(user.Password, req.Password) != nil) {
			httpError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			deps.Logger.Errorw("login lookup failed", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := deps.Auth.IssueToken(user.ID, user.Role)
		if err != nil {
			deps.Logger.Errorw("failed to issue token", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}

func handleListUsers(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := deps.Store.ListUsers(r.Context())
		if err != nil {
			deps.Logger.Errorw("failed to list users", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := make([]userResponse, 0, len(users))
		for _, u := range users {
			out = append(out, userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role})
		}
		respondJSON(w, http.StatusOK, out)
	}
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

const resetTokenTTL = 30 * time.Minute

func handleRequestReset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequest
		if !decodeBody(w, r, &req) {
			return
		}

		user, err := deps.Store.GetUserByEmail(r.Context(), req.Email)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			deps.Logger.Errorw("reset lookup failed", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if deps.Mailer == nil {
			httpError(w, http.StatusServiceUnavailable, "password reset email is not configured")
			return
		}

		user.ResetToken = uuid.NewString()
		user.ResetTokenExpiry = time.Now().Add(resetTokenTTL)
		if err := deps.Store.SaveUser(r.Context(), user); err != nil {
			deps.Logger.Errorw("failed to save reset token", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := deps.Mailer.SendPasswordReset(user.Email, user.ResetToken); err != nil {
			deps.Logger.Errorw("failed to send reset email", "error", err)
			httpError(w, http.StatusInternalServerError, "failed to send reset email")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset email sent"})
	}
}

func handleResetPassword(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetConfirm
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Token == "" || req.NewPassword == "" {
			httpError(w, http.StatusBadRequest, "token and new_password are required")
			return
		}

		user, err := deps.Store.GetUserByResetToken(r.Context(), req.Token)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusBadRequest, "invalid token")
			return
		}
		if err != nil {
			deps.Logger.Errorw("reset token lookup failed", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user.ResetTokenExpiry.Before(time.Now()) {
			httpError(w, http.StatusBadRequest, "token has expired")
			return
		}

		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			deps.Logger.Errorw("failed to hash password", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user.Password = hash
		user.ResetToken = ""
		user.ResetTokenExpiry = time.Time{}
		if err := deps.Store.SaveUser(r.Context(), user); err != nil {
			deps.Logger.Errorw("failed to save new password", "error", err)
			httpError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful"})
	}
}
