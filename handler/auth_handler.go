package handler

import (
	"errors"
	"net/http"
	"strings"

	"urbansetu/dto"
	"urbansetu/middleware"
	"urbansetu/model"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth    *usecase.AuthService
	cookies CookieConfig
}

func NewAuthHandler(auth *usecase.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

func profileLinks(c *gin.Context) map[string]dto.UserLink {
	baseURL := utils.GetBaseURL(c)
	return map[string]dto.UserLink{
		"self":            {Href: baseURL + "/user/me", Method: http.MethodGet},
		"update-password": {Href: baseURL + "/user/change-password", Method: http.MethodPost},
		"sessions":        {Href: baseURL + "/sessions", Method: http.MethodGet},
		"delete":          {Href: baseURL + "/user", Method: http.MethodDelete},
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		utils.TrackAuthAttempt("failure", "registration_validation")
		return
	}

	user, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		utils.TrackAuthAttempt("failure", "registration")
		respondError(c, err)
		return
	}

	utils.TrackAuthAttempt("success", "registration")
	profile := dto.ToUserProfileResponse(user, profileLinks(c))
	utils.Created(c, profile)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		utils.TrackAuthAttempt("failure", "validation")
		return
	}

	res, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:        req.Email,
		Password:     req.Password,
		TOTPCode:     req.TOTPCode,
		RecoveryCode: req.RecoveryCode,
		Meta: usecase.LoginMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Requires2FA {
		c.JSON(http.StatusOK, &utils.Response{
			Status:  http.StatusOK,
			Message: "2FA code required",
			Data:    dto.LoginResponse{Requires2FA: true},
		})
		return
	}

	h.cookies.setAuth(c, res.AccessToken, res.RefreshToken, res.SessionToken)

	profile := dto.ToUserProfileResponse(res.User, profileLinks(c))
	utils.Success(c, dto.LoginResponse{
		User:        &profile,
		AccessToken: res.AccessToken,
		SessionID:   res.Session.SessionID,
		Suspicious:  res.Suspicious,
		Notice:      res.Notice,
	})
}

// Refresh accepts the refresh token from its cookie, the JSON body or a
// bearer header, in that order.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(middleware.RefreshCookie)
	if token == "" {
		var req dto.RefreshRequest
		if c.Request.ContentLength > 0 {
			_ = c.ShouldBindJSON(&req)
		}
		token = req.RefreshToken
	}
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	access, exp, err := h.auth.Refresh(c.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		utils.TrackError("auth", "refresh")
		if errors.Is(err, model.ErrSessionInvalid) {
			h.cookies.clearAuth(c)
		}
		respondError(c, err)
		return
	}

	h.cookies.setAuth(c, access, "", "")
	utils.Success(c, gin.H{
		"access_token": access,
		"expires_at":   exp,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	tokens := []string{middleware.AccessTokenFrom(c)}
	if refresh, err := c.Cookie(middleware.RefreshCookie); err == nil && refresh != "" {
		tokens = append(tokens, refresh)
	}

	if err := h.auth.Logout(c.Request.Context(), actor, tokens...); err != nil {
		respondError(c, err)
		return
	}

	h.cookies.clearAuth(c)
	utils.TrackSessionEvent("logout")
	utils.Success(c, gin.H{"message": "Successfully logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	user, err := h.auth.Me(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, dto.ToUserProfileResponse(user, profileLinks(c)))
}

// SetRole lets a rootadmin promote or demote another account.
func (h *AuthHandler) SetRole(c *gin.Context) {
	var req dto.SetRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.auth.SetRole(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, dto.ToUserProfileResponse(user, nil))
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	revoked, err := h.auth.ChangePassword(c.Request.Context(), middleware.ActorFrom(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		utils.TrackError("auth", "password_change")
		respondError(c, err)
		return
	}

	utils.Success(c, gin.H{
		"message":          "Password updated successfully",
		"sessions_revoked": revoked,
	})
}

// ConfirmPassword lets the client gate a destructive action on the server's
// attempt counter.
func (h *AuthHandler) ConfirmPassword(c *gin.Context) {
	var req dto.ConfirmPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ConfirmPassword(c.Request.Context(), middleware.ActorFrom(c), req.Password); err != nil {
		if errors.Is(err, model.ErrTooManyAttempts) {
			h.cookies.clearAuth(c)
		}
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"confirmed": true})
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	var req dto.ConfirmPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.DeleteAccount(c.Request.Context(), middleware.ActorFrom(c), req.Password); err != nil {
		if errors.Is(err, model.ErrTooManyAttempts) {
			h.cookies.clearAuth(c)
		}
		respondError(c, err)
		return
	}

	h.cookies.clearAuth(c)
	utils.Success(c, gin.H{"message": "Account deleted"})
}

func (h *AuthHandler) Setup2FA(c *gin.Context) {
	setup, err := h.auth.Setup2FA(c.Request.Context(), middleware.ActorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, setup)
}

func (h *AuthHandler) Enable2FA(c *gin.Context) {
	var req dto.Enable2FARequest
	if !bindJSON(c, &req) {
		return
	}

	codes, err := h.auth.Enable2FA(c.Request.Context(), middleware.ActorFrom(c).UserID, req.Secret, req.Code)
	if err != nil {
		utils.TrackError("auth", "enable_2fa")
		respondError(c, err)
		return
	}

	utils.Success(c, gin.H{
		"message":        "2FA enabled",
		"recovery_codes": codes,
	})
}

func (h *AuthHandler) Disable2FA(c *gin.Context) {
	var req dto.Disable2FARequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.Disable2FA(c.Request.Context(), middleware.ActorFrom(c).UserID, req.Code); err != nil {
		utils.TrackError("auth", "disable_2fa")
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "2FA disabled"})
}
