package api

import (
	"encoding/json"
	"net/http"

	"serwer-udostepnien/internal/auth"
	"serwer-udostepnien/internal/models"
)

type LoginRequest struct {
	UID      string `json:"uid" example:"user1"`
	Password string `json:"password" example:"secret"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// @Summary      Log in
// @Description  Exchanges account credentials for a JWT bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest body      LoginRequest true "Credentials"
// @Success      200          {object}  LoginResponse
// @Failure      401          {string}  string "Unauthorized"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUser(r.Context(), req.UID)
	if err != nil {
		s.log.Error().Err(err).Msg("login lookup failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !credentialsValid(user, req.Password) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user, s.config.JWT.Secret)
	if err != nil {
		s.log.Error().Err(err).Msg("cannot sign token")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token})
}

// credentialsValid reports whether the account may log in with the given
// password. Accounts provisioned without a password carry an empty hash and
// can never log in directly.
func credentialsValid(user *models.User, password string) bool {
	if user == nil || !user.Enabled || user.PasswordHash == "" {
		return false
	}
	return auth.CheckPasswordHash(password, user.PasswordHash)
}
