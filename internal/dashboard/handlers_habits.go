package dashboard

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/cockpit/internal/auth"
	"github.com/zulandar/cockpit/internal/store"
)

func handleHabits(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		flag := strings.ToLower(c.Query("include_inactive"))
		includeInactive := flag == "1" || flag == "true"
		habits, err := a.store.Habits(c.Request.Context(), auth.UserID(c), a.clock.Frame(), includeInactive)
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, habits)
	}
}

type createHabitRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Cadence     string `json:"cadence" binding:"omitempty,oneof=daily weekly"`
	TargetCount *int   `json:"target_count" binding:"omitempty,min=1,max=14"`
}

func handleCreateHabit(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createHabitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			a.respond(c, badRequest("name is required"))
			return
		}
		in := store.NewHabit{Name: name, Cadence: req.Cadence, TargetCount: 1}
		if in.Cadence == "" {
			in.Cadence = "daily"
		}
		if req.TargetCount != nil {
			in.TargetCount = *req.TargetCount
		}
		userID := auth.UserID(c)
		id, err := a.store.CreateHabit(c.Request.Context(), userID, in)
		if err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, fmt.Sprintf("Dashboard: added habit %q (%s).", name, in.Cadence))
		c.JSON(http.StatusOK, gin.H{"id": id})
	}
}

// handleSetHabitActive archives (DELETE) or restores a habit.
func handleSetHabitActive(a *api, active bool) gin.HandlerFunc {
	verb := "archived"
	if active {
		verb = "restored"
	}
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			a.respond(c, badRequest("missing habit id"))
			return
		}
		userID := auth.UserID(c)
		if err := a.store.SetHabitActive(c.Request.Context(), userID, id, active); err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, fmt.Sprintf("Dashboard: %s habit %s.", verb, id))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func handleToggleHabit(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			a.respond(c, badRequest("missing habit id"))
			return
		}
		userID := auth.UserID(c)
		status, err := a.store.ToggleHabit(c.Request.Context(), userID, id, a.clock.Frame())
		if err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, fmt.Sprintf("Dashboard: habit %s %s.", id, status))
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}
