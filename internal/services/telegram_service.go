package services

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramTimeout caps every Bot API round trip.
var telegramTimeout = 10 * time.Second

// TelegramService pushes task alerts to a linked Telegram chat.
type TelegramService struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramService connects to the Bot API. An empty token yields a nil
// service; all methods are safe to call on nil.
func NewTelegramService(botToken, apiEndpoint string, client *http.Client) (*TelegramService, error) {
	if botToken == "" {
		return nil, nil
	}
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	if client.Timeout == 0 {
		c := *client
		c.Timeout = telegramTimeout
		client = &c
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, apiEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.Printf("[tg] authorized as @%s", bot.Self.UserName)
	return &TelegramService{bot: bot}, nil
}

func (t *TelegramService) Enabled() bool {
	return t != nil && t.bot != nil
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if !t.Enabled() || chatID == 0 {
		log.Printf("[tg][skip] bot disabled or chatID empty (chatID=%d)", chatID)
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][send][err] chatID=%d: %v", chatID, err)
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

// SendTaskAlert formats a due-task alert. The tag is the task id so repeated
// alerts for one task are recognisable in the chat.
func (t *TelegramService) SendTaskAlert(chatID int64, title, tag string) error {
	text := fmt.Sprintf("Task Reminder 🌱\nTime for: <b>%s</b>\n<code>#%s</code>",
		html.EscapeString(title), html.EscapeString(tag))
	return t.SendMessage(chatID, text)
}
