package handlers

import (
	"net/http"

	"github.com/yasinhessnawi1/authkeeper/internal/auth"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// AuthHandler handles authentication-related routes
type AuthHandler struct {
	authService AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthServiceInterface) *AuthHandler {
	if authService == nil {
		panic("authService cannot be nil")
	}
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg models.UserRegistration
	if err := utils.DecodeAndValidate(r, &reg); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	result, err := h.authService.Register(r.Context(), reg.Email, reg.Password)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, http.StatusCreated, result)
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.UserCredentials
	if err := utils.DecodeAndValidate(r, &creds); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	result, err := h.authService.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, http.StatusOK, result)
}

// VerifyToken checks a session token sent in the body or, when the body has
// none, in the Authorization header.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyTokenRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeAndValidate(r, &req); err != nil {
			utils.ErrorFromAppError(w, utils.ParseError(err))
			return
		}
	}

	token := req.Token
	if token == "" {
		token, _ = auth.BearerToken(r)
	}
	if token == "" {
		utils.ErrorFromAppError(w, utils.NewInvalidTokenError(""))
		return
	}

	info, err := h.authService.VerifyToken(r.Context(), token)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, http.StatusOK, info)
}

// GetCurrentSession returns what the caller's own token asserts. It runs
// behind auth.RequireAuth.
func (h *AuthHandler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		utils.Unauthorized(w, "")
		return
	}

	info := models.SessionInfo{
		UserID: claims.UserID,
		Email:  claims.Email,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	utils.JSON(w, http.StatusOK, info)
}
