package services

import (
	"bytes"
	"html/template"
	"time"

	"habitvault/internal/models"
)

const noDescription = "No description provided"

// ReminderEmail is a rendered deadline reminder.
type ReminderEmail struct {
	To      string
	Subject string
	HTML    string
}

type urgencyCue struct {
	Emoji      string
	Label      string
	Background string
	Accent     string
	Closing    string
	Urgent     bool
}

func cueFor(p models.TaskPriority) urgencyCue {
	switch p {
	case models.PriorityUrgent:
		return urgencyCue{
			Emoji: "🚨", Label: "URGENT", Background: "#FEE2E2", Accent: "#EF4444", Urgent: true,
			Closing: "⚡ This is urgent! Complete it as soon as possible! ⚡",
		}
	case models.PriorityLow:
		return urgencyCue{
			Emoji: "📌", Label: "Low Priority", Background: "#F3F4F6", Accent: "#6366F1",
			Closing: "Don't forget to complete this task on time! 💪",
		}
	default:
		return urgencyCue{
			Emoji: "⏰", Label: "Normal", Background: "#F3F4F6", Accent: "#6366F1",
			Closing: "Don't forget to complete this task on time! 💪",
		}
	}
}

// FormatDeadline renders a deadline like "Monday, March 2, 2026 at 09:30 AM".
func FormatDeadline(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Monday, January 2, 2006 at 03:04 PM")
}

var reminderTmpl = template.Must(template.New("reminder").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9fafb;">
  <div style="background: linear-gradient(135deg, #8B5CF6 0%, #6366F1 100%); padding: 30px; border-radius: 10px 10px 0 0; text-align: center;">
    <h1 style="color: white; margin: 0; font-size: 28px;">🌱 Habit Vault Reminder</h1>
  </div>
  <div style="background-color: white; padding: 30px; border-radius: 0 0 10px 10px;">
    <p style="font-size: 18px; color: #374151;">Hi {{.Name}},</p>
    <div style="background-color: {{.Cue.Background}}; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid {{.Cue.Accent}};">
      <h2 style="color: #1F2937; margin-top: 0;">{{.Cue.Emoji}} {{.Title}}</h2>
      <p style="color: #6B7280;"><strong>Description:</strong> {{.Description}}</p>
      <p style="color: #6B7280;"><strong>Priority:</strong> <span style="color: {{.Cue.Accent}}; font-weight: bold;">{{.Cue.Label}}</span></p>
      <p style="color: #6B7280;"><strong>Deadline:</strong> {{.Deadline}}</p>
    </div>
    <p style="font-size: 16px; color: {{.Cue.Accent}};{{if .Cue.Urgent}} font-weight: bold;{{end}} text-align: center;">{{.Cue.Closing}}</p>
    <p style="color: #6B7280; font-size: 14px; margin-top: 30px;">Stay organized and productive! 🚀</p>
    <p style="color: #9CA3AF; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #E5E7EB;">
      You're receiving this email because you set a deadline for this task in Habit Vault.
    </p>
  </div>
</div>
`))

// RenderTaskReminder builds the priority-aware reminder email for a deadline task.
func RenderTaskReminder(task models.Task, profile models.Profile, loc *time.Location) (ReminderEmail, error) {
	cue := cueFor(task.Priority)

	desc := noDescription
	if task.Description != nil && *task.Description != "" {
		desc = *task.Description
	}
	deadline := ""
	if task.Deadline != nil {
		deadline = FormatDeadline(*task.Deadline, loc)
	}

	var buf bytes.Buffer
	err := reminderTmpl.Execute(&buf, struct {
		Name        string
		Title       string
		Description string
		Deadline    string
		Cue         urgencyCue
	}{profile.DisplayName(), task.Title, desc, deadline, cue})
	if err != nil {
		return ReminderEmail{}, err
	}

	return ReminderEmail{
		To:      profile.Email,
		Subject: cue.Emoji + " Task Reminder: " + task.Title,
		HTML:    buf.String(),
	}, nil
}
