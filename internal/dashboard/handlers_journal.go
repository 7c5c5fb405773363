package dashboard

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/cockpit/internal/auth"
	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/derive"
	"github.com/zulandar/cockpit/internal/store"
	"github.com/zulandar/cockpit/internal/view"
)

func handleStrategy(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		strategy, err := a.store.Strategy(c.Request.Context(), auth.UserID(c), a.clock.Frame())
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, strategy)
	}
}

func handleKnowledge(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := a.store.Knowledge(c.Request.Context(), auth.UserID(c))
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

type knowledgeActionRequest struct {
	Type      string  `json:"type" binding:"required,eq=create_task"`
	DueDate   string  `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Priority  string  `json:"priority" binding:"omitempty,oneof=high medium low"`
	ProjectID *string `json:"project_id" binding:"omitempty,uuid"`
}

func handleKnowledgeAction(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			a.respond(c, badRequest("missing knowledge id"))
			return
		}
		var req knowledgeActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		userID := auth.UserID(c)
		taskID, err := a.store.TaskFromKnowledge(c.Request.Context(), userID, id, a.clock.Frame(), store.KnowledgeAction{
			DueDate:   req.DueDate,
			Priority:  req.Priority,
			ProjectID: req.ProjectID,
		})
		if err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, fmt.Sprintf("Dashboard: created task from knowledge %s.", id))
		c.JSON(http.StatusOK, gin.H{"id": taskID})
	}
}

func handleInbox(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := a.store.Inbox(c.Request.Context(), auth.UserID(c))
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func handleOps(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		ops, err := a.store.Ops(c.Request.Context(), auth.UserID(c))
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, ops)
	}
}

func handleReview(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, userID := c.Request.Context(), auth.UserID(c)
		var (
			review *view.Review
			err    error
		)
		if day := strings.TrimSpace(c.Query("date")); day != "" {
			if !dates.Valid(day) {
				a.respond(c, badRequest("invalid date format"))
				return
			}
			review, err = a.store.ReviewOn(ctx, userID, day)
		} else {
			review, err = a.store.LatestReview(ctx, userID)
		}
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, review)
	}
}

type reviewRequest struct {
	ReviewDate   string  `json:"review_date" binding:"omitempty,datetime=2006-01-02"`
	Summary      *string `json:"summary" binding:"required,max=8000"`
	TomorrowPlan *string `json:"tomorrow_plan" binding:"required,max=8000"`
}

func handleSaveReview(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		userID := auth.UserID(c)
		day, err := a.store.SaveReview(c.Request.Context(), userID, a.clock.Frame(), store.ReviewInput{
			ReviewDate:   req.ReviewDate,
			Summary:      strings.TrimSpace(*req.Summary),
			TomorrowPlan: strings.TrimSpace(*req.TomorrowPlan),
		})
		if err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, fmt.Sprintf("Dashboard: saved review for %s.", day))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func handleReviewCopilot(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		draft, err := a.snapshots.Builder().ReviewDraft(c.Request.Context(), auth.UserID(c))
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, draft)
	}
}

func handleActivity(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		points, err := a.store.Activity(c.Request.Context(), auth.UserID(c), a.clock.Frame())
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, points)
	}
}

func handleFocus(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		points, err := a.store.Focus(c.Request.Context(), auth.UserID(c), a.clock.Frame())
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, points)
	}
}

type momentumQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

// handleMomentum serves the backlog series. Day counts are clamped to the
// supported range by the store.
func handleMomentum(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q momentumQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			a.respond(c, bindError(err))
			return
		}
		if q.Days == 0 {
			q.Days = derive.DefaultMomentumDays
		}
		points, err := a.store.Momentum(c.Request.Context(), auth.UserID(c), a.clock.Frame(), q.Days)
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, points)
	}
}
