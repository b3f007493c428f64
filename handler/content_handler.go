package handler

import (
	"strconv"

	"urbansetu/dto"
	"urbansetu/middleware"
	"urbansetu/model"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

// ContentHandler serves the help center, user reports, newsletter
// subscriptions, platform updates and saved routes.
type ContentHandler struct {
	help    *usecase.HelpService
	reports *usecase.ReportService
	subs    *usecase.SubscriptionService
	updates *usecase.UpdateService
	routes  *usecase.RouteService
}

type ContentServices struct {
	Help          *usecase.HelpService
	Reports       *usecase.ReportService
	Subscriptions *usecase.SubscriptionService
	Updates       *usecase.UpdateService
	Routes        *usecase.RouteService
}

func NewContentHandler(s ContentServices) *ContentHandler {
	return &ContentHandler{
		help:    s.Help,
		reports: s.Reports,
		subs:    s.Subscriptions,
		updates: s.Updates,
		routes:  s.Routes,
	}
}

// viewerKey identifies a help-center reader: the user id when signed in,
// otherwise the visitor fingerprint.
func viewerKey(c *gin.Context) string {
	if id := middleware.ActorFrom(c).UserID; id != "" {
		return id
	}
	return utils.Fingerprint(c.ClientIP(), c.Request.UserAgent(), "help")
}

func (h *ContentHandler) ListHelp(c *gin.Context) {
	var q dto.HelpQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.help.List(c.Request.Context(), middleware.ActorFrom(c), q.ToFilter())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *ContentHandler) GetHelp(c *gin.Context) {
	ctx := c.Request.Context()
	article, err := h.help.GetBySlug(ctx, middleware.ActorFrom(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	if article.Published {
		counted, err := h.help.RecordView(ctx, article.ID, viewerKey(c))
		if err != nil {
			utils.Warn().Err(err).Str("article_id", article.ID).Msg("failed to record help view")
		} else if counted {
			article.Views++
		}
	}
	utils.Success(c, article)
}

func (h *ContentHandler) CreateHelp(c *gin.Context) {
	var req dto.HelpRequest
	if !bindJSON(c, &req) {
		return
	}
	article, err := h.help.Create(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, article)
}

func (h *ContentHandler) UpdateHelp(c *gin.Context) {
	var req dto.HelpRequest
	if !bindJSON(c, &req) {
		return
	}
	article, err := h.help.Update(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, article)
}

func (h *ContentHandler) DeleteHelp(c *gin.Context) {
	if err := h.help.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Article deleted"})
}

func (h *ContentHandler) HelpFeedback(c *gin.Context) {
	var req dto.FeedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.help.Feedback(c.Request.Context(), c.Param("id"), *req.Helpful); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Thanks for your feedback"})
}

func (h *ContentHandler) SubmitReport(c *gin.Context) {
	var req dto.ReportRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.Submit(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, report)
}

func (h *ContentHandler) ListReports(c *gin.Context) {
	page, limit := pageParams(c)
	status := model.ReportStatus(c.DefaultQuery("status", string(model.ReportOpen)))
	reports, err := h.reports.List(c.Request.Context(), middleware.ActorFrom(c), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, reports)
}

func (h *ContentHandler) CloseReport(c *gin.Context) {
	var req dto.CloseReportRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.reports.Close(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Status, req.Notes); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Report " + string(req.Status)})
}

func (h *ContentHandler) Subscribe(c *gin.Context) {
	var req dto.SubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.subs.Subscribe(c.Request.Context(), middleware.ActorFrom(c), req.Email, req.Topic)
	if err != nil {
		respondError(c, err)
		return
	}
	if created {
		utils.Created(c, gin.H{"subscribed": true})
		return
	}
	utils.Success(c, gin.H{"subscribed": true, "message": "Already subscribed"})
}

func (h *ContentHandler) Unsubscribe(c *gin.Context) {
	var req dto.SubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.subs.Unsubscribe(c.Request.Context(), req.Email, req.Topic); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"subscribed": false})
}

func (h *ContentHandler) ListSubscriptions(c *gin.Context) {
	page, limit := pageParams(c)
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "true"))
	subs, err := h.subs.List(c.Request.Context(), middleware.ActorFrom(c), c.Query("topic"), activeOnly, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, subs)
}

func (h *ContentHandler) ListUpdates(c *gin.Context) {
	page, limit := pageParams(c)
	drafts, _ := strconv.ParseBool(c.Query("drafts"))
	updates, err := h.updates.List(c.Request.Context(), middleware.ActorFrom(c), drafts, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, updates)
}

func (h *ContentHandler) CreateUpdate(c *gin.Context) {
	var req dto.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	update, err := h.updates.Create(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, update)
}

func (h *ContentHandler) EditUpdate(c *gin.Context) {
	var req dto.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	update, err := h.updates.Update(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, update)
}

func (h *ContentHandler) DeleteUpdate(c *gin.Context) {
	if err := h.updates.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Update deleted"})
}

func (h *ContentHandler) CreateRoute(c *gin.Context) {
	var req dto.RouteRequest
	if !bindJSON(c, &req) {
		return
	}
	route, err := h.routes.Create(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, route)
}

func (h *ContentHandler) ListRoutes(c *gin.Context) {
	routes, err := h.routes.List(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"routes": routes})
}

func (h *ContentHandler) GetRoute(c *gin.Context) {
	route, err := h.routes.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, route)
}

func (h *ContentHandler) UpdateRoute(c *gin.Context) {
	var req dto.RouteRequest
	if !bindJSON(c, &req) {
		return
	}
	route, err := h.routes.Update(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, route)
}

func (h *ContentHandler) DeleteRoute(c *gin.Context) {
	if err := h.routes.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Route deleted"})
}
