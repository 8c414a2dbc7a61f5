package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"habitvault/internal/handlers"
	"habitvault/internal/metrics"
	"habitvault/internal/middleware"
)

type Options struct {
	JWTSecret        []byte
	TriggerTokenHash string
}

func SetupRoutes(
	r *gin.Engine,
	opts Options,
	taskHandler *handlers.TaskHandler,
	reminderHandler *handlers.ReminderHandler,
	sessionHandler *handlers.SessionHandler,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", metrics.Handler())

	// scheduler trigger; any method runs a dispatch, OPTIONS is preflight
	fn := r.Group("/functions", middleware.TriggerGuard(opts.TriggerTokenHash))
	{
		fn.Any("/send-task-reminder", reminderHandler.Trigger)
	}

	// ---- protected
	auth := middleware.AuthMiddleware(opts.JWTSecret)

	tasks := r.Group("/tasks", auth)
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("", taskHandler.GetAll)
		tasks.GET("/agenda.pdf", taskHandler.Agenda)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
		tasks.POST("/:id/complete", taskHandler.ToggleComplete)
	}

	sessions := r.Group("/sessions", auth)
	{
		sessions.GET("/reminders", sessionHandler.Connect)
	}

	return r
}
