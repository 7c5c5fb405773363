package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zulandar/cockpit/internal/auth"
	"github.com/zulandar/cockpit/internal/store"
	"github.com/zulandar/cockpit/internal/task"
)

const maxNoteLen = 2000

type tasksQuery struct {
	Scope     string `form:"scope" binding:"omitempty,oneof=today week overdue"`
	Status    string `form:"status" binding:"omitempty,oneof=pending done cancelled"`
	Priority  string `form:"priority" binding:"omitempty,oneof=high medium low"`
	ProjectID string `form:"project_id" binding:"omitempty,uuid"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=smart due_date priority created_at"`
	SortDir   string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

func handleTasks(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q tasksQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			a.respond(c, bindError(err))
			return
		}
		if q.Scope == "" {
			q.Scope = store.ScopeToday
		}
		tasks, err := a.store.Tasks(c.Request.Context(), auth.UserID(c), a.clock.Frame(), q.Scope, store.TaskQuery{
			Filter:  task.Filter{Status: q.Status, Priority: q.Priority, ProjectID: q.ProjectID},
			SortBy:  q.SortBy,
			SortDir: q.SortDir,
		})
		if err != nil {
			a.respond(c, err)
			return
		}
		c.JSON(http.StatusOK, tasks)
	}
}

type createTaskRequest struct {
	Title     string  `json:"title" binding:"required,max=240"`
	DueDate   string  `json:"due_date" binding:"required,datetime=2006-01-02"`
	Priority  string  `json:"priority" binding:"omitempty,oneof=high medium low"`
	Note      *string `json:"note" binding:"omitempty,max=2000"`
	ProjectID *string `json:"project_id" binding:"omitempty,uuid"`
}

func handleCreateTask(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			a.respond(c, badRequest("title is required"))
			return
		}
		userID := auth.UserID(c)
		id, err := a.store.CreateTask(c.Request.Context(), userID, store.NewTask{
			Title:     title,
			DueDate:   req.DueDate,
			Priority:  req.Priority,
			ProjectID: req.ProjectID,
			Note:      req.Note,
		})
		if err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, fmt.Sprintf("Dashboard: added task %q due %s.", title, req.DueDate))
		c.JSON(http.StatusOK, gin.H{"id": id})
	}
}

// optionalString tells an absent JSON field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type patchTaskRequest struct {
	Title     *string        `json:"title" binding:"omitempty,max=240"`
	Status    *string        `json:"status" binding:"omitempty,oneof=pending done cancelled"`
	DueDate   *string        `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Priority  *string        `json:"priority" binding:"omitempty,oneof=high medium low"`
	Note      optionalString `json:"note"`
	ProjectID optionalString `json:"project_id"`
}

// patch checks the fields the binding tags cannot reach and builds the
// store patch.
func (r patchTaskRequest) patch() (store.TaskPatch, error) {
	p := store.TaskPatch{
		Status:   r.Status,
		DueDate:  r.DueDate,
		Priority: r.Priority,
	}
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		if title == "" {
			return p, badRequest("title is required")
		}
		p.Title = &title
	}
	if r.Note.Set {
		if r.Note.Value != nil && utf8.RuneCountInString(*r.Note.Value) > maxNoteLen {
			return p, badRequest("note exceeds %d", maxNoteLen)
		}
		p.SetNote = true
		if r.Note.Value != nil && *r.Note.Value != "" {
			p.Note = r.Note.Value
		}
	}
	if r.ProjectID.Set {
		if r.ProjectID.Value != nil {
			if err := uuid.Validate(*r.ProjectID.Value); err != nil {
				return p, badRequest("project_id must be a UUID")
			}
		}
		p.SetProjectID = true
		p.ProjectID = r.ProjectID.Value
	}
	return p, nil
}

func handlePatchTask(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			a.respond(c, badRequest("missing task id"))
			return
		}
		var req patchTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		p, err := req.patch()
		if err != nil {
			a.respond(c, err)
			return
		}
		userID := auth.UserID(c)
		if err := a.store.PatchTask(c.Request.Context(), userID, id, p); err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, fmt.Sprintf("Dashboard: updated task %s.", id))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type bulkTasksRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1,max=200,dive,required"`
	Action string   `json:"action" binding:"required,oneof=mark_done mark_pending cancel postpone_day postpone_week"`
}

func handleBulkTasks(a *api) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkTasksRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respond(c, bindError(err))
			return
		}
		userID := auth.UserID(c)
		n, err := a.store.BulkTasks(c.Request.Context(), userID, req.IDs, req.Action)
		if err != nil {
			a.respond(c, err)
			return
		}
		a.mutated(c, userID, fmt.Sprintf("Dashboard: bulk %s on %d tasks.", req.Action, n))
		c.JSON(http.StatusOK, gin.H{"updatedCount": n})
	}
}
