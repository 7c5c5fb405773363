package dashboard

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/cockpit/internal/auth"
	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/view"
)

func handleHealth(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		tables := a.store.Tables(c.Request.Context())
		missing := make([]string, 0)
		for name, state := range tables {
			if state == "missing" {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)
		c.JSON(http.StatusOK, gin.H{
			"ok":          len(missing) == 0,
			"generatedAt": dates.Stamp(a.clock.Now()),
			"timezone":    a.clock.Location().String(),
			"tables":      tables,
			"missing":     missing,
		})
	}
}

func handleClientConfig(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, a.client)
	}
}

func handleDashboard(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := a.snapshots.Get(c.Request.Context(), auth.UserID(c))
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func handleOverview(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := a.snapshots.Get(c.Request.Context(), auth.UserID(c))
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, snap.Overview)
	}
}

type panelPrefsRequest struct {
	Charts *bool `json:"charts" binding:"required"`
	Advice *bool `json:"advice" binding:"required"`
	Risk   *bool `json:"risk" binding:"required"`
}

type uiPrefsRequest struct {
	CockpitSection  string             `json:"cockpitSection" binding:"required,oneof=overview execution insights ops"`
	PanelPrefs      *panelPrefsRequest `json:"panelPrefs" binding:"required"`
	HiddenAdviceIDs map[string]bool    `json:"hiddenAdviceIds"`
	InboxTriage     map[string]string  `json:"inboxTriage" binding:"omitempty,dive,oneof=new triaged archived"`
}

func handleSaveUIPrefs(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req uiPrefsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		userID := auth.UserID(c)
		prefs := view.UIPrefs{
			CockpitSection: req.CockpitSection,
			PanelPrefs: view.PanelPrefs{
				Charts: *req.PanelPrefs.Charts,
				Advice: *req.PanelPrefs.Advice,
				Risk:   *req.PanelPrefs.Risk,
			},
			HiddenAdviceIDs: req.HiddenAdviceIDs,
			InboxTriage:     req.InboxTriage,
		}
		if err := a.store.SaveUIPrefs(c.Request.Context(), userID, prefs); err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, "Dashboard: saved UI preferences.")
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
