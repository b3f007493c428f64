package usecase

// Events pushed over the realtime hub.
const (
	EventSessionsUpdated      = "sessionsUpdated"
	EventAdminSessionsUpdated = "adminSessionsUpdated"
	EventForceLogout          = "forceLogout"

	EventForumPostCreated     = "forum:postCreated"
	EventForumPostUpdated     = "forum:postUpdated"
	EventForumPostDeleted     = "forum:postDeleted"
	EventForumCommentAdded    = "forum:commentAdded"
	EventForumCommentDeleted  = "forum:commentDeleted"
	EventForumReactionUpdated = "forum:reactionUpdated"

	EventPlatformUpdate  = "platformUpdate"
	EventContractUpdated = "contractUpdated"
	EventCoinsUpdated    = "coinsUpdated"
	EventAgentStatus     = "agentStatusUpdated"
	EventReportSubmitted = "reportSubmitted"
)
