package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hackgods/hospital-queue-service/internal/auth"
	"github.com/hackgods/hospital-queue-service/internal/user"
)

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

func registerHandler(users user.Repository, cfg AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "email and password are required")
			return
		}

		role, err := user.ParseRole(req.Role)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_role", "role must be patient, doctor or admin")
			return
		}
		if role == user.RoleDoctor && req.Name == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "doctor registration requires a name")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not hash password")
			return
		}

		created, err := users.Create(r.Context(), user.User{
			Email:          req.Email,
			Role:           role,
			Name:           req.Name,
			Specialization: req.Specialization,
			PasswordHash:   hash,
		})
		if err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				writeError(w, http.StatusConflict, "email_taken", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		token, err := auth.MakeToken(created.UID.String(), created.Email, cfg.Secret, cfg.TokenTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not issue token")
			return
		}

		writeJSON(w, http.StatusCreated, TokenResponse{Token: token, User: toUserResponse(created)})
	}
}

func loginHandler(users user.Repository, cfg AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		u, err := users.GetByEmail(r.Context(), req.Email)
		if err != nil {
			// Indistinguishable from a bad password on purpose.
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}

		if !auth.CheckPassword(u.PasswordHash, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}

		token, err := auth.MakeToken(u.UID.String(), u.Email, cfg.Secret, cfg.TokenTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not issue token")
			return
		}

		writeJSON(w, http.StatusOK, TokenResponse{Token: token, User: toUserResponse(u)})
	}
}

func meHandler(users user.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := CallerIdentity(r.Context())

		u, err := users.GetByUID(r.Context(), ident.UID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "user_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func listDoctorsHandler(users user.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := users.ListDoctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]UserResponse, 0, len(doctors))
		for i := range doctors {
			out = append(out, toUserResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
