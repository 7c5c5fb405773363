package dashboard

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/cockpit/internal/agentstore"
	"github.com/zulandar/cockpit/internal/auth"
)

// agentRequest is the wire form of a profile. Absent enabled means true.
type agentRequest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Description  string   `json:"description"`
	RoutingHints []string `json:"routingHints"`
	AllowedTools []string `json:"allowedTools"`
	Enabled      *bool    `json:"enabled"`
	Soul         string   `json:"soul"`
}

func (r agentRequest) profile() (agentstore.Profile, error) {
	p := agentstore.Profile{
		ID:           r.ID,
		Name:         r.Name,
		Kind:         r.Kind,
		Description:  r.Description,
		RoutingHints: r.RoutingHints,
		AllowedTools: r.AllowedTools,
		Enabled:      r.Enabled == nil || *r.Enabled,
		Soul:         r.Soul,
	}
	err := p.Validate()
	return p, err
}

// agentID normalizes the path id, rejecting ids that reduce to nothing.
func agentID(c *gin.Context) (string, error) {
	id := agentstore.NormalizeID(c.Param("id"))
	if id == "" {
		return "", badRequest("invalid agent id")
	}
	return id, nil
}

func handleListAgents(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		agents, err := a.agents.List()
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": agents})
	}
}

func handleAgentTools(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tools": agentstore.Tools()})
	}
}

func handleGetAgent(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := agentID(c)
		if err != nil {
			a.respond(c, err)
			return
		}
		p, err := a.agents.Get(id)
		if err != nil {
			a.respond(c, err)
			return
		}
		if p == nil {
			a.respond(c, fmt.Errorf("agent %s: %w", id, errNotFound))
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func handleCreateAgent(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req agentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		p, err := req.profile()
		if err != nil {
			a.respond(c, err)
			return
		}
		existing, err := a.agents.Get(p.ID)
		if err != nil {
			a.respond(c, err)
			return
		}
		if existing != nil {
			a.respond(c, fmt.Errorf("%w: agent %s already exists", errConflict, p.ID))
			return
		}
		saved, err := a.agents.Save(p)
		if err != nil {
			a.respond(c, err)
			return
		}
		userID := auth.UserID(c)
		a.mutated(c, userID, fmt.Sprintf("Dashboard: created agent %s.", saved.ID))
		c.JSON(http.StatusCreated, saved)
	}
}

func handleUpdateAgent(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := agentID(c)
		if err != nil {
			a.respond(c, err)
			return
		}
		var req agentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		req.ID = id
		p, err := req.profile()
		if err != nil {
			a.respond(c, err)
			return
		}
		saved, err := a.agents.Save(p)
		if err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, auth.UserID(c), fmt.Sprintf("Dashboard: updated agent %s.", saved.ID))
		c.JSON(http.StatusOK, saved)
	}
}

func handleDeleteAgent(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := agentID(c)
		if err != nil {
			a.respond(c, err)
			return
		}
		if err := a.agents.Delete(id); err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, auth.UserID(c), fmt.Sprintf("Dashboard: deleted agent %s.", id))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
