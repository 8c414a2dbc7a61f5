package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"habitvault/internal/reminders"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

// Event is pushed to the browser, which renders it as a sound, a system
// notification, a toast or a permission prompt.
type Event struct {
	Type               string `json:"type"`
	TaskID             string `json:"task_id,omitempty"`
	Title              string `json:"title,omitempty"`
	Body               string `json:"body,omitempty"`
	Tag                string `json:"tag,omitempty"`
	RequireInteraction bool   `json:"require_interaction,omitempty"`
	DurationMS         int64  `json:"duration_ms,omitempty"`
	Src                string `json:"src,omitempty"`
}

const (
	EventSound             = "sound"
	EventNotification      = "notification"
	EventToast             = "toast"
	EventRequestPermission = "request_permission"
)

// clientMessage is what the browser sends back; only permission updates are understood.
type clientMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Session is one browser tab listening for due-time alerts.
type Session struct {
	UserID string

	conn     *websocket.Conn
	soundSrc string
	writeMu  sync.Mutex

	permMu sync.RWMutex
	perm   reminders.Permission
}

// Upgrade switches the request to a websocket and opens a session for userID.
// initial is the browser's current Notification.permission.
func Upgrade(w http.ResponseWriter, r *http.Request, userID string, initial reminders.Permission, soundSrc string) (*Session, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newSession(conn, userID, initial, soundSrc), nil
}

func newSession(conn *websocket.Conn, userID string, initial reminders.Permission, soundSrc string) *Session {
	if !validPermission(initial) {
		initial = reminders.PermissionDefault
	}
	return &Session{UserID: userID, conn: conn, soundSrc: soundSrc, perm: initial}
}

func validPermission(p reminders.Permission) bool {
	switch p {
	case reminders.PermissionDefault, reminders.PermissionGranted, reminders.PermissionDenied:
		return true
	}
	return false
}

func (s *Session) Permission(context.Context) (reminders.Permission, error) {
	s.permMu.RLock()
	defer s.permMu.RUnlock()
	return s.perm, nil
}

// Request asks the browser to prompt. The answer arrives later as a
// permission message; until then the current state is returned.
func (s *Session) Request(ctx context.Context) (reminders.Permission, error) {
	if err := s.send(Event{Type: EventRequestPermission}); err != nil {
		return reminders.PermissionDefault, err
	}
	return s.Permission(ctx)
}

func (s *Session) setPermission(p reminders.Permission) {
	s.permMu.Lock()
	s.perm = p
	s.permMu.Unlock()
}

// Channels maps the three alert variants onto websocket events.
func (s *Session) Channels() reminders.Channels {
	return reminders.Channels{
		Sound: reminders.NotifierFunc(func(_ context.Context, a reminders.Alert) error {
			return s.send(Event{Type: EventSound, TaskID: a.TaskID, Src: s.soundSrc})
		}),
		System: reminders.NotifierFunc(func(_ context.Context, a reminders.Alert) error {
			return s.send(Event{
				Type:               EventNotification,
				TaskID:             a.TaskID,
				Title:              "Task Reminder",
				Body:               "Time for: " + a.Title,
				Tag:                a.Tag,
				RequireInteraction: a.RequireInteraction,
			})
		}),
		Toast: reminders.NotifierFunc(func(_ context.Context, a reminders.Alert) error {
			return s.send(Event{
				Type:       EventToast,
				TaskID:     a.TaskID,
				Title:      "Task Reminder",
				Body:       "Time for: " + a.Title,
				DurationMS: a.Duration.Milliseconds(),
			})
		}),
	}
}

func (s *Session) send(ev Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(ev)
}

// Serve runs scanner for this session until the client goes away or ctx ends.
func (s *Session) Serve(ctx context.Context, scanner *reminders.Scanner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.readLoop(cancel)
	go s.pingLoop(ctx)

	return scanner.Run(ctx, s.UserID)
}

func (s *Session) readLoop(cancel context.CancelFunc) {
	defer cancel()
	s.conn.SetReadLimit(maxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws][read][err] user=%s: %v", s.UserID, err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[ws][read][warn] user=%s bad message: %v", s.UserID, err)
			continue
		}
		if msg.Type == "permission" && validPermission(reminders.Permission(msg.State)) {
			s.setPermission(reminders.Permission(msg.State))
		}
	}
}

func (s *Session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Session) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}
