package reminders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/fatih/color"

	"habitvault/internal/repositories"
	"habitvault/internal/services"
)

// BellNotifier plays the terminal bell.
type BellNotifier struct {
	W io.Writer
}

func (b BellNotifier) Notify(_ context.Context, _ Alert) error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

// ConsoleToast prints a highlighted reminder line.
type ConsoleToast struct {
	W io.Writer
}

func (c ConsoleToast) Notify(_ context.Context, a Alert) error {
	line := color.New(color.FgGreen, color.Bold).Sprintf("⏰ Task Reminder: %s", a.Title)
	_, err := fmt.Fprintf(c.W, "%s %s\n", line, color.New(color.Faint).Sprintf("(%s)", a.Duration))
	return err
}

// LogNotifier writes alerts to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, a Alert) error {
	log.Printf("[reminder][alert] user=%s task=%s title=%q", a.UserID, a.TaskID, a.Title)
	return nil
}

// TelegramNotifier is a system-notification channel backed by a Telegram chat.
type TelegramNotifier struct {
	TG       *services.TelegramService
	Settings TelegramSettings
}

// TelegramSettings resolves the user's linked chat.
type TelegramSettings interface {
	GetTelegramSettings(ctx context.Context, userID string) (chatID int64, notify bool, err error)
}

func (t TelegramNotifier) Notify(ctx context.Context, a Alert) error {
	chatID, notify, err := t.Settings.GetTelegramSettings(ctx, a.UserID)
	if err != nil {
		return err
	}
	if chatID == 0 || !notify {
		return nil
	}
	return t.TG.SendTaskAlert(chatID, a.Title, a.Tag)
}

// TelegramPermissions derives notification permission from the user's
// Telegram link: unlinked is undecided, linked with notifications off is denied.
type TelegramPermissions struct {
	TG       *services.TelegramService
	Settings TelegramSettings
	UserID   string

	hintOnce sync.Once
}

func (p *TelegramPermissions) Permission(ctx context.Context) (Permission, error) {
	if !p.TG.Enabled() {
		return PermissionDenied, nil
	}
	chatID, notify, err := p.Settings.GetTelegramSettings(ctx, p.UserID)
	if errors.Is(err, repositories.ErrProfileNotFound) {
		return PermissionDefault, nil
	}
	if err != nil {
		return PermissionDefault, err
	}
	switch {
	case chatID == 0:
		return PermissionDefault, nil
	case !notify:
		return PermissionDenied, nil
	default:
		return PermissionGranted, nil
	}
}

func (p *TelegramPermissions) Request(ctx context.Context) (Permission, error) {
	p.hintOnce.Do(func() {
		log.Printf("[reminder][tg] user=%s has no linked Telegram chat; link it to receive system notifications", p.UserID)
	})
	return p.Permission(ctx)
}
