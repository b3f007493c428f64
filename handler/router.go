package handler

import (
	"time"

	"urbansetu/middleware"
	"urbansetu/model"
	"urbansetu/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes covers six listing images plus form overhead.
const DefaultMaxBodyBytes = 32 << 20

type RouterDeps struct {
	Tokens         *services.TokenService
	Blacklist      middleware.Blacklist
	Sessions       middleware.SessionValidator
	AllowedOrigins []string
	MaxBodyBytes   int64

	// AuthLimiter guards login/register/refresh, TrackLimiter the visitor
	// beacon. Either may be nil.
	AuthLimiter  *middleware.RateLimiter
	TrackLimiter *middleware.RateLimiter

	Auth      *AuthHandler
	Session   *SessionHandler
	Forum     *ForumHandler
	Listing   *ListingHandler
	Contract  *ContractHandler
	Agent     *AgentHandler
	Content   *ContentHandler
	Visitor   *VisitorHandler
	System    *SystemHandler
	WebSocket *WSHandler
}

func limit(rl *middleware.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = DefaultMaxBodyBytes
	}

	router := gin.New()
	router.Use(
		middleware.EnhancedRecoveryMiddleware(),
		middleware.RequestTracingMiddleware(),
		middleware.RequestLogger(),
		middleware.MetricsMiddleware(),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(d.AllowedOrigins),
		middleware.RequestSizeLimiter(d.MaxBodyBytes),
	)

	authRequired := middleware.AuthMiddleware(d.Tokens, d.Blacklist, d.Sessions)
	optionalAuth := middleware.OptionalAuth(d.Tokens, d.Blacklist, d.Sessions)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", d.System.Liveness)

	api := router.Group("/api")

	auth := api.Group("/auth", limit(d.AuthLimiter))
	{
		auth.POST("/register", d.Auth.Register)
		auth.POST("/login", d.Auth.Login)
		auth.POST("/refresh", d.Auth.Refresh)
		auth.POST("/logout", authRequired, d.Auth.Logout)
	}

	// Public reads. A token, when present, widens what staff can see.
	public := api.Group("", optionalAuth, middleware.CacheControlMiddleware(time.Minute))
	{
		public.GET("/forum/posts", d.Forum.ListPosts)
		public.GET("/forum/posts/:id", d.Forum.GetPost)

		public.GET("/listings", d.Listing.Search)
		public.GET("/listings/:id", d.Listing.Get)
		public.GET("/listings/:id/esg", d.Listing.ESG)

		public.GET("/agents", d.Agent.ListPublic)
		public.GET("/agents/:id", d.Agent.Get)
		public.GET("/reviews", d.Agent.ListReviews)

		public.GET("/help", d.Content.ListHelp)
		public.GET("/help/:slug", d.Content.GetHelp)
		public.GET("/updates", d.Content.ListUpdates)
	}
	anon := api.Group("", optionalAuth)
	{
		anon.POST("/visitors/track", limit(d.TrackLimiter), d.Visitor.Track)
		anon.POST("/help/:id/feedback", d.Content.HelpFeedback)
		anon.POST("/subscriptions", d.Content.Subscribe)
		anon.POST("/subscriptions/unsubscribe", d.Content.Unsubscribe)
	}

	api.GET("/ws", TokenFromQuery(), authRequired, d.WebSocket.Connect)

	protected := api.Group("", authRequired)
	{
		user := protected.Group("/user")
		{
			user.GET("/me", d.Auth.Me)
			user.POST("/change-password", d.Auth.ChangePassword)
			user.POST("/confirm-password", d.Auth.ConfirmPassword)
			user.DELETE("", d.Auth.DeleteAccount)
			user.POST("/2fa/setup", d.Auth.Setup2FA)
			user.POST("/2fa/enable", d.Auth.Enable2FA)
			user.POST("/2fa/disable", d.Auth.Disable2FA)
		}

		sessions := protected.Group("/sessions")
		{
			sessions.GET("", d.Session.List)
			sessions.DELETE("/:id", d.Session.Revoke)
			sessions.POST("/revoke-others", d.Session.RevokeOthers)
		}

		forum := protected.Group("/forum/posts")
		{
			forum.POST("", d.Forum.CreatePost)
			forum.PUT("/:id", d.Forum.UpdatePost)
			forum.DELETE("/:id", d.Forum.DeletePost)
			forum.POST("/:id/comments", d.Forum.AddComment)
			forum.PUT("/:id/comments/:commentId", d.Forum.EditComment)
			forum.DELETE("/:id/comments/:commentId", d.Forum.DeleteComment)
			forum.POST("/:id/comments/:commentId/replies", d.Forum.AddReply)
			forum.DELETE("/:id/comments/:commentId/replies/:replyId", d.Forum.DeleteReply)
			forum.POST("/:id/react", d.Forum.React)
			forum.POST("/:id/report", d.Forum.Report)
		}

		listings := protected.Group("/listings")
		{
			listings.POST("", d.Listing.Create)
			listings.PUT("/:id", d.Listing.Update)
			listings.DELETE("/:id", d.Listing.Delete)
			listings.POST("/:id/images", d.Listing.UploadImages)
		}

		contracts := protected.Group("/contracts")
		{
			contracts.POST("", d.Contract.Request)
			contracts.GET("", d.Contract.List)
			contracts.GET("/:id", d.Contract.Get)
			contracts.POST("/:id/accept", d.Contract.Accept)
			contracts.POST("/:id/reject", d.Contract.Reject)
			contracts.POST("/:id/terminate", d.Contract.Terminate)
		}

		protected.GET("/coins", d.Contract.Balance)
		protected.GET("/coins/history", d.Contract.History)

		protected.POST("/agents/apply", d.Agent.Apply)
		protected.GET("/agents/me", d.Agent.Mine)
		protected.POST("/reviews", d.Agent.CreateReview)
		protected.DELETE("/reviews/:id", d.Agent.DeleteReview)

		protected.POST("/reports", d.Content.SubmitReport)

		routes := protected.Group("/routes")
		{
			routes.GET("", d.Content.ListRoutes)
			routes.POST("", d.Content.CreateRoute)
			routes.GET("/:id", d.Content.GetRoute)
			routes.PUT("/:id", d.Content.UpdateRoute)
			routes.DELETE("/:id", d.Content.DeleteRoute)
		}
	}

	admin := api.Group("/admin", authRequired, middleware.RequireStaff())
	{
		admin.GET("/system/health", d.System.Health)
		admin.PUT("/users/:id/role", middleware.RequirePermission(model.PermManageAdmins), d.Auth.SetRole)

		admin.GET("/sessions", middleware.RequirePermission(model.PermViewSessions), d.Session.AdminList)
		admin.POST("/sessions/force-logout", middleware.RequirePermission(model.PermForceLogout), d.Session.ForceLogout)
		admin.GET("/sessions/audit", middleware.RequirePermission(model.PermViewAudit), d.Session.Audit)

		admin.GET("/visitors/stats", middleware.RequirePermission(model.PermViewAnalytics), d.Visitor.Stats)

		mod := admin.Group("/forum", middleware.RequirePermission(model.PermModerateForum))
		{
			mod.GET("/reported", d.Forum.ListReported)
			mod.POST("/posts/:id/dismiss-reports", d.Forum.DismissReports)
			mod.POST("/posts/:id/lock", d.Forum.SetLocked)
			mod.POST("/posts/:id/pin", d.Forum.SetPinned)
		}

		agents := admin.Group("/agents", middleware.RequirePermission(model.PermManageAgents))
		{
			agents.GET("", d.Agent.ListByStatus)
			agents.POST("/:id/approve", d.Agent.Approve)
			agents.POST("/:id/reject", d.Agent.Reject)
		}

		reviews := admin.Group("/reviews", middleware.RequirePermission(model.PermModerateReviews))
		{
			reviews.GET("", d.Agent.ListReviewsByStatus)
			reviews.POST("/:id/approve", d.Agent.ApproveReview)
			reviews.POST("/:id/reject", d.Agent.RejectReview)
		}

		help := admin.Group("/help", middleware.RequirePermission(model.PermManageHelp))
		{
			help.POST("", d.Content.CreateHelp)
			help.PUT("/:id", d.Content.UpdateHelp)
			help.DELETE("/:id", d.Content.DeleteHelp)
		}

		reports := admin.Group("/reports", middleware.RequirePermission(model.PermManageReports))
		{
			reports.GET("", d.Content.ListReports)
			reports.POST("/:id/close", d.Content.CloseReport)
		}

		updates := admin.Group("/updates", middleware.RequirePermission(model.PermPublishUpdates))
		{
			updates.POST("", d.Content.CreateUpdate)
			updates.PUT("/:id", d.Content.EditUpdate)
			updates.DELETE("/:id", d.Content.DeleteUpdate)
		}
		admin.GET("/subscriptions", middleware.RequirePermission(model.PermPublishUpdates), d.Content.ListSubscriptions)
	}

	return router
}
