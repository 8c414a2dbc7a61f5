package handlers

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"habitvault/internal/realtime"
	"habitvault/internal/reminders"
)

type SessionHandler struct {
	tasks    reminders.TaskSource
	hub      *realtime.Hub
	opts     reminders.ScannerOptions
	soundSrc string
}

func NewSessionHandler(tasks reminders.TaskSource, hub *realtime.Hub, interval time.Duration, loc *time.Location, soundSrc string) *SessionHandler {
	return &SessionHandler{
		tasks:    tasks,
		hub:      hub,
		opts:     reminders.ScannerOptions{Interval: interval, Location: loc},
		soundSrc: soundSrc,
	}
}

// @Summary      Live due-time alerts
// @Description  Websocket. Emits sound, notification, toast and request_permission events; accepts {"type":"permission","state":...}.
// @Tags         Reminders
// @Param        permission    query  string  false  "current browser permission: default, granted or denied"
// @Param        access_token  query  string  false  "JWT when the Authorization header cannot be set"
// @Success      101
// @Router       /sessions/reminders [get]
func (h *SessionHandler) Connect(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	perm := reminders.Permission(c.DefaultQuery("permission", string(reminders.PermissionDefault)))

	sess, err := realtime.Upgrade(c.Writer, c.Request, userID, perm, h.soundSrc)
	if err != nil {
		log.Printf("[ws][upgrade][err] user=%s: %v", userID, err)
		return
	}
	h.hub.Register(sess)
	defer h.hub.Unregister(sess)
	log.Printf("[ws][open] user=%s sessions=%d", userID, h.hub.Sessions(userID))

	scanner := reminders.NewScanner(h.tasks, sess.Channels(), sess, h.opts)
	if err := sess.Serve(c.Request.Context(), scanner); err != nil {
		log.Printf("[ws][serve][err] user=%s: %v", userID, err)
	}
	log.Printf("[ws][close] user=%s", userID)
}
