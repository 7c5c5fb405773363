package dashboard

import (
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all API routes. Everything except health and
// client-config runs behind requireUser.
func registerRoutes(router *gin.Engine, a *api, requireUser gin.HandlerFunc) {
	router.GET("/api/health", handleHealth(a))
	router.GET("/api/client-config", handleClientConfig(a))

	g := router.Group("/api", requireUser)

	// Snapshot reads.
	g.GET("/dashboard", handleDashboard(a))
	g.GET("/overview", handleOverview(a))
	g.GET("/events", handleEvents(a))
	g.PUT("/ui-prefs", handleSaveUIPrefs(a))

	// Tasks.
	g.GET("/tasks", handleTasks(a))
	g.POST("/tasks", handleCreateTask(a))
	g.PATCH("/tasks/bulk", handleBulkTasks(a))
	g.PATCH("/tasks/:id", handlePatchTask(a))

	// Habits.
	g.GET("/habits", handleHabits(a))
	g.POST("/habits", handleCreateHabit(a))
	g.DELETE("/habits/:id", handleSetHabitActive(a, false))
	g.POST("/habits/:id/restore", handleSetHabitActive(a, true))
	g.POST("/habits/:id/toggle", handleToggleHabit(a))

	// Journal, strategy and operations.
	g.GET("/strategy", handleStrategy(a))
	g.GET("/knowledge", handleKnowledge(a))
	g.POST("/knowledge/:id/action", handleKnowledgeAction(a))
	g.GET("/inbox", handleInbox(a))
	g.GET("/ops", handleOps(a))
	g.GET("/review", handleReview(a))
	g.PUT("/review", handleSaveReview(a))
	g.POST("/review/copilot", handleReviewCopilot(a))

	// Charts.
	g.GET("/charts/activity", handleActivity(a))
	g.GET("/charts/focus", handleFocus(a))
	g.GET("/charts/momentum", handleMomentum(a))

	// Agent profiles.
	g.GET("/agents", handleListAgents(a))
	g.GET("/agents/tools", handleAgentTools(a))
	g.GET("/agents/:id", handleGetAgent(a))
	g.POST("/agents", handleCreateAgent(a))
	g.PUT("/agents/:id", handleUpdateAgent(a))
	g.DELETE("/agents/:id", handleDeleteAgent(a))
}
