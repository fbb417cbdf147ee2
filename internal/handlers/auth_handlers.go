package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bookshelf/bookshelf/internal/middleware"
	"github.com/bookshelf/bookshelf/internal/models"
	"github.com/bookshelf/bookshelf/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type AuthHandlers struct {
	sessions *service.SessionService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewAuthHandlers(sessions *service.SessionService, logger *logrus.Logger) *AuthHandlers {
	validate := validator.New()
	if err := validate.RegisterValidation("maxbytes", maxBytes); err != nil {
		logger.WithError(err).Fatal("Failed to register maxbytes validation")
	}

	return &AuthHandlers{
		sessions: sessions,
		validate: validate,
		logger:   logger,
	}
}

// maxBytes limits the encoded length of a string field. The built-in max tag
// counts runes, while bcrypt caps passwords at 72 bytes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

type SessionResponse struct {
	Message      string           `json:"message"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int64            `json:"expires_in"`
	User         models.Principal `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func newSessionResponse(message string, pair *models.TokenPair, principal models.Principal) SessionResponse {
	return SessionResponse{
		Message:      message,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		User:         principal,
	}
}

func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.sessions.Signup(r.Context(), req)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, user)
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, newSessionResponse("Login successful", result.Tokens, result.Principal))
}

// RefreshToken expects the refresh-only guard to have run.
func (h *AuthHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.respondWithServiceError(w, service.ErrMissingCredential)
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), claims)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, newSessionResponse("Tokens refreshed", pair, claims.User))
}

// Logout expects the access-only guard to have run. An optional JSON body
// {"refresh_token": "..."} revokes that refresh token as well.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.respondWithServiceError(w, service.ErrMissingCredential)
		return
	}

	var req models.LogoutRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
			return
		}
	}

	h.sessions.Logout(r.Context(), claims, req.RefreshToken)

	h.respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.respondWithServiceError(w, service.ErrMissingCredential)
		return
	}

	user, err := h.sessions.CurrentUser(r.Context(), principal)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, user)
}

func (h *AuthHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.sessions.ListUsers(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, users)
}

func (h *AuthHandlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, payload interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}

	if err := h.validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			h.respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", validationErrors.Error())
			return false
		}
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}

	return true
}

func (h *AuthHandlers) respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.respondWithError(w, http.StatusForbidden, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrUserExists):
		h.respondWithError(w, http.StatusConflict, "USER_EXISTS", "A user with this email already exists")
	case errors.Is(err, service.ErrUserNotFound):
		h.respondWithError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrMissingCredential):
		h.respondWithError(w, http.StatusForbidden, "NOT_AUTHENTICATED", "Not authenticated")
	case errors.Is(err, service.ErrWrongTokenKind):
		h.respondWithError(w, http.StatusForbidden, "WRONG_TOKEN_KIND", "Please provide the refresh token.")
	case errors.Is(err, service.ErrTokenRevoked):
		h.respondWithError(w, http.StatusUnauthorized, "TOKEN_REVOKED", "Token has been revoked. Please login again.")
	default:
		h.logger.WithError(err).Error("Request failed")
		h.respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func (h *AuthHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *AuthHandlers) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
