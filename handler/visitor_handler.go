package handler

import (
	"strconv"

	"urbansetu/dto"
	"urbansetu/middleware"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

type VisitorHandler struct {
	visitors *usecase.VisitorService
}

func NewVisitorHandler(visitors *usecase.VisitorService) *VisitorHandler {
	return &VisitorHandler{visitors: visitors}
}

func (h *VisitorHandler) Track(c *gin.Context) {
	var req dto.TrackRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.visitors.Track(c.Request.Context(), usecase.TrackInput{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Source:    req.Source,
		Referrer:  req.Referrer,
		Path:      req.Path,
		UserID:    middleware.ActorFrom(c).UserID,
		Consent:   req.Consent,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, res)
}

func (h *VisitorHandler) Stats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(usecase.DefaultStatsDays)))
	if err != nil {
		utils.BadRequest(c, "days must be a number")
		return
	}
	stats, err := h.visitors.Stats(c.Request.Context(), middleware.ActorFrom(c), days)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, stats)
}
