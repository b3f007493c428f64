package handler

import (
	"context"

	"urbansetu/dto"
	"urbansetu/middleware"
	"urbansetu/model"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

type AgentHandler struct {
	agents  *usecase.AgentService
	reviews *usecase.ReviewService
}

func NewAgentHandler(agents *usecase.AgentService, reviews *usecase.ReviewService) *AgentHandler {
	return &AgentHandler{agents: agents, reviews: reviews}
}

func (h *AgentHandler) Apply(c *gin.Context) {
	var req dto.AgentRequest
	if !bindJSON(c, &req) {
		return
	}
	agent, err := h.agents.Apply(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, agent)
}

func (h *AgentHandler) Mine(c *gin.Context) {
	agent, err := h.agents.Mine(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, agent)
}

func (h *AgentHandler) Get(c *gin.Context) {
	agent, err := h.agents.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, agent)
}

func (h *AgentHandler) ListPublic(c *gin.Context) {
	page, limit := pageParams(c)
	agents, err := h.agents.ListPublic(c.Request.Context(), c.Query("city"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, agents)
}

func (h *AgentHandler) ListByStatus(c *gin.Context) {
	page, limit := pageParams(c)
	status := model.AgentStatus(c.DefaultQuery("status", string(model.AgentPending)))
	agents, err := h.agents.ListByStatus(c.Request.Context(), middleware.ActorFrom(c), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, agents)
}

func (h *AgentHandler) Approve(c *gin.Context) {
	agent, err := h.agents.Approve(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, agent)
}

func (h *AgentHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if !bindJSON(c, &req) {
		return
	}
	agent, err := h.agents.Reject(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, agent)
}

func (h *AgentHandler) CreateReview(c *gin.Context) {
	var req dto.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, review)
}

// ListReviews returns approved reviews for ?target_type=&target_id=.
func (h *AgentHandler) ListReviews(c *gin.Context) {
	page, limit := pageParams(c)
	target := model.ReviewTarget(c.Query("target_type"))
	reviews, err := h.reviews.List(c.Request.Context(), target, c.Query("target_id"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, reviews)
}

func (h *AgentHandler) ListReviewsByStatus(c *gin.Context) {
	page, limit := pageParams(c)
	status := model.ReviewStatus(c.DefaultQuery("status", string(model.ReviewPending)))
	reviews, err := h.reviews.ListByStatus(c.Request.Context(), middleware.ActorFrom(c), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, reviews)
}

func (h *AgentHandler) ApproveReview(c *gin.Context) {
	h.moderateReview(c, h.reviews.Approve)
}

func (h *AgentHandler) RejectReview(c *gin.Context) {
	h.moderateReview(c, h.reviews.Reject)
}

func (h *AgentHandler) moderateReview(c *gin.Context, fn func(ctx context.Context, actor usecase.Actor, id, note string) (*model.Review, error)) {
	var req dto.ModerationRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	review, err := fn(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, review)
}

func (h *AgentHandler) DeleteReview(c *gin.Context) {
	if err := h.reviews.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Review deleted"})
}
