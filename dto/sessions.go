package dto

type ForceLogoutRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
}

type AuditQuery struct {
	UserID string `form:"user_id"`
	Action string `form:"action"`
	Page   int    `form:"page,default=1" binding:"gte=1"`
	Limit  int    `form:"limit,default=20" binding:"gte=1,lte=100"`
}

type PageQuery struct {
	Page  int `form:"page,default=1" binding:"gte=1"`
	Limit int `form:"limit,default=20" binding:"gte=1,lte=100"`
}
