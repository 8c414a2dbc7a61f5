package handlers

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"habitvault/internal/models"
	"habitvault/internal/pdf"
	"habitvault/internal/services"
)

type TaskHandler struct {
	service services.TaskService
	agenda  pdf.Generator
	loc     *time.Location
}

func NewTaskHandler(service services.TaskService, agenda pdf.Generator, loc *time.Location) *TaskHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TaskHandler{service: service, agenda: agenda, loc: loc}
}

type createTaskRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description *string             `json:"description"`
	Type        models.TaskKind     `json:"type" binding:"required"`
	Priority    models.TaskPriority `json:"priority"`
	TimeOfDay   *string             `json:"time_of_day"` // HH:MM
	Deadline    *time.Time          `json:"deadline"`    // RFC3339
}

type updateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Type        *models.TaskKind     `json:"type"`
	Priority    *models.TaskPriority `json:"priority"`
	Active      *bool                `json:"is_active"`
	TimeOfDay   *string              `json:"time_of_day"`
	Deadline    *time.Time           `json:"deadline"`
}

// @Summary      Create a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        task  body      createTaskRequest  true  "DAILY needs time_of_day, DEADLINE needs deadline"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Security     BearerAuth
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[task][create] user=%s type=%s title=%q priority=%q", userID, req.Type, req.Title, req.Priority)

	task := &models.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Type,
		Priority:    req.Priority,
		TimeOfDay:   req.TimeOfDay,
		Deadline:    req.Deadline,
	}
	created, err := h.service.Create(c.Request.Context(), task)
	if err != nil {
		writeTaskError(c, "create", err)
		return
	}
	log.Printf("[task][create][ok] id=%s", created.ID)
	c.JSON(http.StatusCreated, created)
}

// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	task, err := h.service.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeTaskError(c, "getByID", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      List the caller's tasks
// @Tags         Tasks
// @Produce      json
// @Param        type       query     string  false  "DAILY or DEADLINE"
// @Param        active     query     bool    false  "filter by is_active"
// @Param        completed  query     bool    false  "filter by is_completed"
// @Success      200        {array}   models.Task
// @Security     BearerAuth
// @Router       /tasks [get]
func (h *TaskHandler) GetAll(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	log.Printf("[task][list] user=%s q=%v", userID, c.Request.URL.RawQuery)

	filter := models.TaskFilter{UserID: &userID}
	if v, ok := c.GetQuery("type"); ok {
		kind := models.TaskKind(v)
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
			return
		}
		filter.Kind = &kind
	}
	var valid bool
	if filter.Active, valid = queryBool(c, "active"); !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active"})
		return
	}
	if filter.Completed, valid = queryBool(c, "completed"); !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid completed"})
		return
	}

	tasks, err := h.service.GetAll(c.Request.Context(), filter)
	if err != nil {
		writeTaskError(c, "list", err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	log.Printf("[task][list][ok] count=%d", len(tasks))
	c.JSON(http.StatusOK, tasks)
}

// @Summary      Edit a task
// @Description  Moving a deadline makes the task eligible for a new reminder email.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Task ID"
// @Param        task  body      updateTaskRequest  true  "fields to change"
// @Success      200   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][update][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Update(c.Request.Context(), userID, c.Param("id"), services.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Type,
		Priority:    req.Priority,
		Active:      req.Active,
		TimeOfDay:   req.TimeOfDay,
		Deadline:    req.Deadline,
	})
	if err != nil {
		writeTaskError(c, "update", err)
		return
	}
	log.Printf("[task][update][ok] id=%s", updated.ID)
	c.JSON(http.StatusOK, updated)
}

// @Summary      Delete a task
// @Tags         Tasks
// @Param        id   path  string  true  "Task ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		writeTaskError(c, "delete", err)
		return
	}
	log.Printf("[task][delete][ok] id=%s", id)
	c.Status(http.StatusNoContent)
}

// @Summary      Toggle completion
// @Tags         Tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id}/complete [post]
func (h *TaskHandler) ToggleComplete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	task, err := h.service.ToggleComplete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeTaskError(c, "complete", err)
		return
	}
	log.Printf("[task][complete][ok] id=%s completed=%t", task.ID, task.Completed)
	c.JSON(http.StatusOK, task)
}

// @Summary      Printable agenda of active tasks
// @Tags         Tasks
// @Produce      application/pdf
// @Success      200  {file}  binary
// @Security     BearerAuth
// @Router       /tasks/agenda.pdf [get]
func (h *TaskHandler) Agenda(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	active := true
	tasks, err := h.service.GetAll(c.Request.Context(), models.TaskFilter{UserID: &userID, Active: &active})
	if err != nil {
		writeTaskError(c, "agenda", err)
		return
	}

	var buf bytes.Buffer
	err = h.agenda.GenerateAgenda(&buf, pdf.AgendaData{
		Owner:       c.GetString("email"),
		Tasks:       tasks,
		GeneratedAt: time.Now(),
		Location:    h.loc,
	})
	if err != nil {
		log.Printf("[task][agenda][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render agenda"})
		return
	}
	c.Header("Content-Disposition", `inline; filename="agenda.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
