package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"habitvault/internal/reminders"
)

// ReminderRunner performs one dispatch.
type ReminderRunner interface {
	Run(ctx context.Context) (*reminders.DispatchSummary, error)
}

type ReminderHandler struct {
	dispatcher ReminderRunner
}

func NewReminderHandler(dispatcher ReminderRunner) *ReminderHandler {
	return &ReminderHandler{dispatcher: dispatcher}
}

func setTriggerCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

// @Summary      Send deadline reminder emails
// @Description  Emails every active, un-reminded DEADLINE task due within the next hour and marks it reminded.
// @Tags         Reminders
// @Produce      json
// @Success      200  {object}  reminders.DispatchSummary
// @Failure      500  {object}  map[string]string
// @Router       /functions/send-task-reminder [post]
func (h *ReminderHandler) Trigger(c *gin.Context) {
	setTriggerCORS(c)
	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusOK)
		return
	}
	log.Printf("[reminder][trigger] method=%s remote=%s", c.Request.Method, c.ClientIP())

	summary, err := h.dispatcher.Run(c.Request.Context())
	if err != nil {
		log.Printf("[reminder][trigger][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
