package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/subpipe/backend/internal/api/middleware"
	"github.com/subpipe/backend/internal/auth"
	"github.com/subpipe/backend/internal/db"
)

type AuthHandler struct {
	database   *db.Database
	jwtService *auth.JWTService
}

func NewAuthHandler(database *db.Database, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{database: database, jwtService: jwtService}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.database.GetUserByUsername(req.Username)
	if err != nil || !auth.CheckPassword(req.Password, user.Password) {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		log.Printf("[auth] failed to generate token for %s: %v", user.Username, err)
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	jsonResponse(w, http.StatusOK, loginResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}

func jsonResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] failed to encode response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}
