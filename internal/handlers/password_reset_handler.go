package handlers

import (
	"net/http"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// ForgotPassword handles the request to initiate a password reset.
// An unknown email is answered with 404.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	result, err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message":    constants.MsgResetEmailSent,
		"delivered":  result.Delivered,
		"message_id": result.MessageID,
		"expires_at": result.ExpiresAt,
	})
}

// ResetPassword handles redeeming a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": constants.MsgPasswordReset})
}
