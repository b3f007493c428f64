package dto

import (
	"time"

	"urbansetu/model"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
}

type LoginRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
	TOTPCode     string `json:"totp_code" binding:"omitempty,len=6,numeric"`
	RecoveryCode string `json:"recovery_code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,password,nefield=CurrentPassword"`
}

type ConfirmPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type Enable2FARequest struct {
	Secret string `json:"secret" binding:"required"`
	Code   string `json:"code" binding:"required,len=6,numeric"`
}

type Disable2FARequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

type SetRoleRequest struct {
	Role model.Role `json:"role" binding:"required,oneof=user admin rootadmin"`
}

type UserLink struct {
	Href   string `json:"href"`
	Method string `json:"method,omitempty"` // Optional: GET, POST, PUT, DELETE, PATCH
}

type UserProfileResponse struct {
	ID               string              `json:"id"`
	Username         string              `json:"username"`
	Email            string              `json:"email"`
	Role             model.Role          `json:"role"`
	Avatar           string              `json:"avatar,omitempty"`
	TwoFactorEnabled bool                `json:"two_factor_enabled"`
	CreatedAt        time.Time           `json:"created_at"`
	Links            map[string]UserLink `json:"_links,omitempty"` // HAL UserLinks
}

func ToUserProfileResponse(user *model.User, links map[string]UserLink) UserProfileResponse {
	return UserProfileResponse{
		ID:               user.UserID,
		Username:         user.Username,
		Email:            user.Email,
		Role:             user.Role,
		Avatar:           user.Avatar,
		TwoFactorEnabled: user.TwoFactorEnabled,
		CreatedAt:        user.CreatedAt,
		Links:            links,
	}
}

type LoginResponse struct {
	Requires2FA bool                 `json:"requires_2fa,omitempty"`
	User        *UserProfileResponse `json:"user,omitempty"`
	AccessToken string               `json:"access_token,omitempty"`
	SessionID   string               `json:"session_id,omitempty"`
	Suspicious  bool                 `json:"suspicious,omitempty"`
	Notice      string               `json:"notice,omitempty"`
}
