package services

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"habitvault/internal/models"
)

func strPtr(s string) *string { return &s }

func deadlineTask(priority models.TaskPriority, desc *string) models.Task {
	d := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	return models.Task{
		ID: "A", UserID: "u1", Title: "Ship <report>", Description: desc,
		Kind: models.KindDeadline, Priority: priority, Active: true, Deadline: &d,
	}
}

func TestRenderTaskReminder_PriorityCues(t *testing.T) {
	profile := models.Profile{ID: "u1", Email: "u1@example.com", Name: "Ana"}

	cases := []struct {
		priority models.TaskPriority
		subject  string
		label    string
	}{
		{models.PriorityUrgent, "🚨 Task Reminder: Ship <report>", "URGENT"},
		{models.PriorityNormal, "⏰ Task Reminder: Ship <report>", "Normal"},
		{models.PriorityLow, "📌 Task Reminder: Ship <report>", "Low Priority"},
	}
	for _, tc := range cases {
		t.Run(string(tc.priority), func(t *testing.T) {
			email, err := RenderTaskReminder(deadlineTask(tc.priority, nil), profile, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, "u1@example.com", email.To)
			assert.Equal(t, tc.subject, email.Subject)
			assert.Contains(t, email.HTML, tc.label)
			assert.Contains(t, email.HTML, "Hi Ana,")
			assert.Contains(t, email.HTML, noDescription)
			assert.Contains(t, email.HTML, "Monday, March 2, 2026 at 09:30 AM")
			assert.Contains(t, email.HTML, "Ship &lt;report&gt;")
		})
	}
}

func TestRenderTaskReminder_UrgentStyling(t *testing.T) {
	urgent, err := RenderTaskReminder(deadlineTask(models.PriorityUrgent, strPtr("quarterly")), models.Profile{Email: "x@y"}, time.UTC)
	require.NoError(t, err)
	assert.Contains(t, urgent.HTML, "#FEE2E2")
	assert.Contains(t, urgent.HTML, "This is urgent!")
	assert.Contains(t, urgent.HTML, "quarterly")
	assert.Contains(t, urgent.HTML, "Hi there,")

	normal, err := RenderTaskReminder(deadlineTask(models.PriorityNormal, nil), models.Profile{Email: "x@y"}, time.UTC)
	require.NoError(t, err)
	assert.NotContains(t, normal.HTML, "#FEE2E2")
	assert.Contains(t, normal.HTML, "complete this task on time")
}

type recordingSender struct {
	mu   sync.Mutex
	sent []*gomail.Message
	err  error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m...)
	return nil
}

func TestEmailService_SendTaskReminder(t *testing.T) {
	sender := &recordingSender{}
	svc := newEmailServiceWithSender(sender, "Habit Vault <onboarding@resend.dev>", time.UTC)

	err := svc.SendTaskReminder(context.Background(),
		models.Profile{Email: "u1@example.com", Name: "Ana"},
		deadlineTask(models.PriorityUrgent, nil))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, []string{"u1@example.com"}, m.GetHeader("To"))
	subject := m.GetHeader("Subject")
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, "🚨 Task Reminder: Ship <report>", decoded)
}

func TestEmailService_SendFailureIsWrapped(t *testing.T) {
	boom := errors.New("smtp down")
	svc := newEmailServiceWithSender(&recordingSender{err: boom}, "from@x", time.UTC)

	err := svc.SendTaskReminder(context.Background(), models.Profile{Email: "a@b"}, deadlineTask(models.PriorityLow, nil))
	assert.ErrorIs(t, err, boom)
}

func TestEmailService_MissingRecipient(t *testing.T) {
	sender := &recordingSender{}
	svc := newEmailServiceWithSender(sender, "from@x", time.UTC)

	err := svc.SendTaskReminder(context.Background(), models.Profile{}, deadlineTask(models.PriorityLow, nil))
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestTelegramService_SendTaskAlert(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, r.URL.Path+"?"+string(b))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"hv","username":"hv_bot"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
	}))
	defer srv.Close()

	tg, err := NewTelegramService("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	require.True(t, tg.Enabled())

	require.NoError(t, tg.SendTaskAlert(42, "Stretch", "B"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[1], "/botTOKEN/sendMessage")
	assert.Contains(t, bodies[1], "chat_id=42")
	assert.Contains(t, bodies[1], "Stretch")
}

func TestTelegramService_StalledSendTimesOut(t *testing.T) {
	prev := telegramTimeout
	telegramTimeout = 100 * time.Millisecond
	t.Cleanup(func() { telegramTimeout = prev })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"hv","username":"hv_bot"}}`)
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	tg, err := NewTelegramService("TOKEN", srv.URL+"/bot%s/%s", &http.Client{Transport: srv.Client().Transport})
	require.NoError(t, err)

	start := time.Now()
	assert.Error(t, tg.SendTaskAlert(42, "Stretch", "B"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTelegramService_NilIsNoop(t *testing.T) {
	tg, err := NewTelegramService("", "", nil)
	require.NoError(t, err)
	assert.False(t, tg.Enabled())
	assert.NoError(t, tg.SendTaskAlert(42, "x", "y"))
}
