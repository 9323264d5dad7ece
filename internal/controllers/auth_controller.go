package controllers

import (
	"errors"
	"net/http"

	"github.com/poofware/todo-service/internal/dtos"
	"github.com/poofware/todo-service/internal/services"
	"github.com/poofware/todo-service/shared/go-utils"
)

type AuthController struct {
	authService services.AuthService
}

func NewAuthController(authService services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// ---------------------------------------------------------------------
// Sign-up & verification
// ---------------------------------------------------------------------

func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req dtos.SignUpRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := c.authService.SignUp(r.Context(), req.Phone, utils.ClientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	detail := "Sent your phone a verification code"
	if !res.CodeSent {
		detail = "You have a valid code, please check your phone"
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.SignUpResponse{
		ID:         res.Account.ID,
		Phone:      res.Account.Phone,
		AuthStatus: string(res.Account.AuthStatus),
		Access:     res.Tokens.Access,
		Refresh:    res.Tokens.Refresh,
		Detail:     detail,
	})
}

func (c *AuthController) VerifyCode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	var req dtos.VerifyCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := c.authService.VerifyCode(r.Context(), accountID, req.Code)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !res.Confirmed {
		respondServiceError(w, utils.ErrInvalidCode)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.VerifyCodeResponse{
		Detail:     "Your code successfully confirmed",
		Access:     res.Tokens.Access,
		Refresh:    res.Tokens.Refresh,
		UserStatus: string(res.Status),
	})
}

func (c *AuthController) NewVerification(w http.ResponseWriter, r *http.Request) {
	accountID, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	if err := c.authService.ResendCode(r.Context(), accountID, utils.ClientIP(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.DetailResponse{
		Detail: "Sent a new confirmation code to your phone number",
	})
}

// ---------------------------------------------------------------------
// Credentials & sessions
// ---------------------------------------------------------------------

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	accountID, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	var req dtos.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := c.authService.Register(r.Context(), accountID, req.Username, req.Password, req.ConfirmPassword, req.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.DetailResponse{
		Detail: "Your username and password successfully saved",
	})
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dtos.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := c.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.TokenPairResponse{Access: pair.Access, Refresh: pair.Refresh})
}

func (c *AuthController) RefreshLogin(w http.ResponseWriter, r *http.Request) {
	var req dtos.RefreshLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	access, err := c.authService.RefreshLogin(r.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidToken) {
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeInvalidToken, "Token is invalid or expired", nil, err,
			)
			return
		}
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.RefreshLoginResponse{Access: access})
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	accountID, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	var req dtos.LogoutRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.authService.Logout(r.Context(), accountID, req.Refresh); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.DetailResponse{Detail: "You are successfully logged out"})
}

// ---------------------------------------------------------------------
// Password recovery
// ---------------------------------------------------------------------

func (c *AuthController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dtos.ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := c.authService.ForgotPassword(r.Context(), req.Phone, utils.ClientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	detail := "Sent confirmation code to your phone number"
	if !res.CodeSent {
		detail = "You have a valid code, please check your phone"
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ForgotPasswordResponse{
		Detail:  detail,
		Access:  res.Tokens.Access,
		Refresh: res.Tokens.Refresh,
	})
}

func (c *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	accountID, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	var req dtos.ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.authService.ResetPassword(r.Context(), accountID, req.Password, req.ConfirmPassword); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.DetailResponse{Detail: "Your password successfully changed"})
}
