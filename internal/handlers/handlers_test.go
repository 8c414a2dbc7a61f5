package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitvault/internal/models"
	"habitvault/internal/pdf"
	"habitvault/internal/reminders"
	"habitvault/internal/repositories"
	"habitvault/internal/services"
)

type stubTaskService struct {
	tasks      map[string]*models.Task
	lastFilter models.TaskFilter
	lastPatch  services.TaskPatch
	err        error
}

func newStubTaskService(tasks ...models.Task) *stubTaskService {
	s := &stubTaskService{tasks: map[string]*models.Task{}}
	for i := range tasks {
		t := tasks[i]
		s.tasks[t.ID] = &t
	}
	return s
}

func (s *stubTaskService) owned(userID, id string) (*models.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, repositories.ErrTaskNotFound
	}
	if t.UserID != userID {
		return nil, services.ErrForbidden
	}
	return t, nil
}

func (s *stubTaskService) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := services.ValidateSchedule(withDefaultPriority(t)); err != nil {
		return nil, err
	}
	t.ID = fmt.Sprintf("t%d", len(s.tasks)+1)
	t.Active = true
	s.tasks[t.ID] = t
	return t, nil
}

func withDefaultPriority(t *models.Task) *models.Task {
	if t.Priority == "" {
		t.Priority = models.PriorityNormal
	}
	return t
}

func (s *stubTaskService) GetByID(_ context.Context, userID, id string) (*models.Task, error) {
	return s.owned(userID, id)
}

func (s *stubTaskService) GetAll(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	s.lastFilter = f
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Task
	for _, t := range s.tasks {
		if f.UserID != nil && t.UserID != *f.UserID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *stubTaskService) Update(_ context.Context, userID, id string, p services.TaskPatch) (*models.Task, error) {
	s.lastPatch = p
	t, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Deadline != nil {
		t.Deadline = p.Deadline
		t.RemindedAt = nil
	}
	return t, nil
}

func (s *stubTaskService) Delete(_ context.Context, userID, id string) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	delete(s.tasks, id)
	return nil
}

func (s *stubTaskService) ToggleComplete(_ context.Context, userID, id string) (*models.Task, error) {
	t, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	t.Completed = !t.Completed
	return t, nil
}

type stubAgenda struct{ data pdf.AgendaData }

func (a *stubAgenda) GenerateAgenda(w io.Writer, d pdf.AgendaData) error {
	a.data = d
	_, err := io.WriteString(w, "%PDF-1.3 stub")
	return err
}

func taskRouter(svc services.TaskService, agenda pdf.Generator, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	h := NewTaskHandler(svc, agenda, time.UTC)
	r.POST("/tasks", h.Create)
	r.GET("/tasks", h.GetAll)
	r.GET("/tasks/agenda.pdf", h.Agenda)
	r.GET("/tasks/:id", h.GetByID)
	r.PUT("/tasks/:id", h.Update)
	r.DELETE("/tasks/:id", h.Delete)
	r.POST("/tasks/:id/complete", h.ToggleComplete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ownedTask(id, user string) models.Task {
	d := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	return models.Task{ID: id, UserID: user, Title: "Report", Kind: models.KindDeadline, Priority: models.PriorityNormal, Active: true, Deadline: &d}
}

func TestTaskHandler_Create(t *testing.T) {
	svc := newStubTaskService()
	r := taskRouter(svc, &stubAgenda{}, "u1")

	w := do(r, http.MethodPost, "/tasks", `{"title":"Stretch","type":"DAILY","time_of_day":"07:30"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, models.KindDaily, got.Kind)
	assert.Equal(t, models.PriorityNormal, got.Priority)

	w = do(r, http.MethodPost, "/tasks", `{"title":"Bad","type":"DAILY","deadline":"2026-03-01T10:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/tasks", `{"type":"DAILY"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_RequiresUser(t *testing.T) {
	r := taskRouter(newStubTaskService(), &stubAgenda{}, "")
	w := do(r, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTaskHandler_OwnershipAndNotFound(t *testing.T) {
	svc := newStubTaskService(ownedTask("a", "u1"), ownedTask("b", "u2"))
	r := taskRouter(svc, &stubAgenda{}, "u1")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/tasks/a", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/tasks/b", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/tasks/zzz", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/tasks/b", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/tasks/a", "").Code)
	assert.NotContains(t, svc.tasks, "a")
}

func TestTaskHandler_ListFilters(t *testing.T) {
	svc := newStubTaskService(ownedTask("a", "u1"), ownedTask("b", "u2"))
	r := taskRouter(svc, &stubAgenda{}, "u1")

	w := do(r, http.MethodGet, "/tasks?type=DEADLINE&active=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	require.NotNil(t, svc.lastFilter.UserID)
	assert.Equal(t, "u1", *svc.lastFilter.UserID)
	assert.Equal(t, models.KindDeadline, *svc.lastFilter.Kind)
	assert.True(t, *svc.lastFilter.Active)
	assert.Nil(t, svc.lastFilter.Completed)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/tasks?type=WEEKLY", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/tasks?completed=maybe", "").Code)

	svc.err = errors.New("db gone")
	w = do(r, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db gone")
}

func TestTaskHandler_EmptyListIsArray(t *testing.T) {
	r := taskRouter(newStubTaskService(), &stubAgenda{}, "u1")
	w := do(r, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestTaskHandler_UpdateDeadline(t *testing.T) {
	task := ownedTask("a", "u1")
	reminded := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	task.RemindedAt = &reminded
	svc := newStubTaskService(task)
	r := taskRouter(svc, &stubAgenda{}, "u1")

	w := do(r, http.MethodPut, "/tasks/a", `{"deadline":"2026-03-02T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, svc.lastPatch.Deadline)
	assert.True(t, svc.lastPatch.Deadline.Equal(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))
	assert.Nil(t, svc.tasks["a"].RemindedAt)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/tasks/a", `{"deadline":"tomorrow"}`).Code)
}

func TestTaskHandler_ToggleComplete(t *testing.T) {
	svc := newStubTaskService(ownedTask("a", "u1"))
	r := taskRouter(svc, &stubAgenda{}, "u1")

	w := do(r, http.MethodPost, "/tasks/a/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.tasks["a"].Completed)

	do(r, http.MethodPost, "/tasks/a/complete", "")
	assert.False(t, svc.tasks["a"].Completed)
}

func TestTaskHandler_Agenda(t *testing.T) {
	svc := newStubTaskService(ownedTask("a", "u1"), ownedTask("b", "u2"))
	agenda := &stubAgenda{}
	r := taskRouter(svc, agenda, "u1")

	w := do(r, http.MethodGet, "/tasks/agenda.pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	require.Len(t, agenda.data.Tasks, 1)
	assert.Equal(t, "a", agenda.data.Tasks[0].ID)
	assert.True(t, *svc.lastFilter.Active)
	assert.Equal(t, time.UTC, agenda.data.Location)
}

type stubRunner struct {
	summary *reminders.DispatchSummary
	err     error
	calls   int
}

func (s *stubRunner) Run(context.Context) (*reminders.DispatchSummary, error) {
	s.calls++
	return s.summary, s.err
}

func reminderRouter(run ReminderRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any("/functions/send-task-reminder", NewReminderHandler(run).Trigger)
	return r
}

func TestReminderHandler_Preflight(t *testing.T) {
	run := &stubRunner{}
	w := do(reminderRouter(run), http.MethodOptions, "/functions/send-task-reminder", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Zero(t, run.calls)
}

func TestReminderHandler_Trigger(t *testing.T) {
	run := &stubRunner{summary: &reminders.DispatchSummary{
		Message: "Sent 1 reminder emails",
		Results: []reminders.DispatchResult{
			{TaskID: "a", Email: "a@x.io", Success: true},
			{TaskID: "c", Email: "c@x.io", Success: false, Error: "smtp 550"},
		},
	}}

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		w := do(reminderRouter(run), method, "/functions/send-task-reminder", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.JSONEq(t, `{
			"message": "Sent 1 reminder emails",
			"results": [
				{"taskId": "a", "email": "a@x.io", "success": true},
				{"taskId": "c", "email": "c@x.io", "success": false, "error": "smtp 550"}
			]
		}`, w.Body.String())
	}
	assert.Equal(t, 2, run.calls)
}

func TestReminderHandler_NothingToRemind(t *testing.T) {
	run := &stubRunner{summary: &reminders.DispatchSummary{Message: "No tasks to remind", Results: []reminders.DispatchResult{}}}
	w := do(reminderRouter(run), http.MethodPost, "/functions/send-task-reminder", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"No tasks to remind","results":[]}`, w.Body.String())
}

func TestReminderHandler_QueryFailure(t *testing.T) {
	run := &stubRunner{err: errors.New("fetch reminder candidates: connection refused")}
	w := do(reminderRouter(run), http.MethodPost, "/functions/send-task-reminder", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"fetch reminder candidates: connection refused"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
