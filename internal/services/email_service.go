package services

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"habitvault/internal/models"
)

type EmailService interface {
	SendTaskReminder(ctx context.Context, profile models.Profile, task models.Task) error
}

// messageSender is the part of *gomail.Dialer the service needs.
type messageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer messageSender
	from   string
	loc    *time.Location
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string, loc *time.Location) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return newEmailServiceWithSender(dialer, fromEmail, loc)
}

func newEmailServiceWithSender(sender messageSender, fromEmail string, loc *time.Location) *emailService {
	return &emailService{
		dialer: sender,
		from:   fromEmail,
		loc:    loc,
	}
}

func (s *emailService) SendTaskReminder(ctx context.Context, profile models.Profile, task models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if profile.Email == "" {
		return fmt.Errorf("task %s: owner has no email", task.ID)
	}

	rendered, err := RenderTaskReminder(task, profile, s.loc)
	if err != nil {
		return fmt.Errorf("render reminder email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", rendered.To)
	m.SetHeader("Subject", rendered.Subject)
	m.SetBody("text/html", rendered.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}

	return nil
}
