package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"textgen-backend/internal/auth"
	"textgen-backend/internal/core"
	"textgen-backend/internal/store"
)

type SignupRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "Username, name and password are required")
		return
	}

	user, err := h.users.Signup(req.Username, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeError(w, http.StatusBadRequest, CodeConflict, "Username already registered")
			return
		}
		log.Printf("Error creating user %s: %v", req.Username, err)
		writeInternalError(w)
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Username, err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Username:    user.Username,
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "Username and password are required")
		return
	}

	user, err := h.users.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, CodeAuth, "Invalid credentials")
			return
		}
		log.Printf("Error logging in user %s: %v", req.Username, err)
		writeInternalError(w)
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Username, err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Username:    user.Username,
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (h *APIHandler) ForgetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "Username and password are required")
		return
	}

	if err := h.users.ResetPassword(req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
			return
		}
		log.Printf("Error resetting password for user %s: %v", req.Username, err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful."})
}

func (h *APIHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	user, err := h.users.GetByID(userID)
	if err != nil {
		log.Printf("Error loading profile for user %d: %v", userID, err)
		writeInternalError(w)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"username": user.Username,
		"name":     user.Name,
	})
}

func (h *APIHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := h.users.Delete(username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
			return
		}
		log.Printf("Error deleting user %s: %v", username, err)
		writeInternalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; logout is a client-side discard.
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful."})
}
