package handler

import (
	"urbansetu/dto"
	"urbansetu/middleware"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

type ForumHandler struct {
	forum *usecase.ForumService
}

func NewForumHandler(forum *usecase.ForumService) *ForumHandler {
	return &ForumHandler{forum: forum}
}

func (h *ForumHandler) CreatePost(c *gin.Context) {
	var req dto.PostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.forum.CreatePost(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, post)
}

func (h *ForumHandler) ListPosts(c *gin.Context) {
	var q dto.ForumQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.forum.ListPosts(c.Request.Context(), q.ToFilter())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *ForumHandler) GetPost(c *gin.Context) {
	post, err := h.forum.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, post)
}

func (h *ForumHandler) UpdatePost(c *gin.Context) {
	var req dto.PostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.forum.UpdatePost(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, post)
}

func (h *ForumHandler) DeletePost(c *gin.Context) {
	if err := h.forum.DeletePost(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Post deleted"})
}

func (h *ForumHandler) AddComment(c *gin.Context) {
	var req dto.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.forum.AddComment(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, comment)
}

func (h *ForumHandler) EditComment(c *gin.Context) {
	var req dto.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.forum.EditComment(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("commentId"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, comment)
}

func (h *ForumHandler) DeleteComment(c *gin.Context) {
	if err := h.forum.DeleteComment(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("commentId")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Comment deleted"})
}

func (h *ForumHandler) AddReply(c *gin.Context) {
	var req dto.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.forum.AddReply(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("commentId"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, reply)
}

func (h *ForumHandler) DeleteReply(c *gin.Context) {
	err := h.forum.DeleteReply(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("commentId"), c.Param("replyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Reply deleted"})
}

// React toggles a reaction on the post, or on a comment or reply of it when
// the body names one.
func (h *ForumHandler) React(c *gin.Context) {
	var req dto.ReactionRequest
	if !bindJSON(c, &req) {
		return
	}
	ref := usecase.ContentRef{PostID: c.Param("id"), CommentID: req.CommentID, ReplyID: req.ReplyID}
	res, err := h.forum.React(c.Request.Context(), middleware.ActorFrom(c), ref, req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, res)
}

func (h *ForumHandler) Report(c *gin.Context) {
	var req dto.ForumReportRequest
	if !bindJSON(c, &req) {
		return
	}
	ref := usecase.ContentRef{PostID: c.Param("id"), CommentID: req.CommentID, ReplyID: req.ReplyID}
	if err := h.forum.Report(c.Request.Context(), middleware.ActorFrom(c), ref, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Report submitted"})
}

func (h *ForumHandler) ListReported(c *gin.Context) {
	page, limit := pageParams(c)
	posts, err := h.forum.ListReported(c.Request.Context(), middleware.ActorFrom(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, posts)
}

func (h *ForumHandler) DismissReports(c *gin.Context) {
	var req dto.ContentRefRequest
	if !bindJSON(c, &req) {
		return
	}
	ref := usecase.ContentRef{PostID: c.Param("id"), CommentID: req.CommentID, ReplyID: req.ReplyID}
	if err := h.forum.DismissReports(c.Request.Context(), middleware.ActorFrom(c), ref); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Reports dismissed"})
}

func (h *ForumHandler) SetLocked(c *gin.Context) {
	var req dto.ToggleRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.forum.SetLocked(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, post)
}

func (h *ForumHandler) SetPinned(c *gin.Context) {
	var req dto.ToggleRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.forum.SetPinned(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, post)
}
