package repositories

import (
	"context"
	"database/sql"
	"errors"

	"habitvault/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetTelegramSettings(ctx context.Context, userID string) (chatID int64, notify bool, err error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	const q = `
		SELECT id, email, COALESCE(name, ''),
		       COALESCE(telegram_chat_id, 0), COALESCE(notify_tasks_telegram, TRUE)
		FROM profiles
		WHERE id = $1`
	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Email, &p.Name, &p.TelegramChatID, &p.NotifyTasksTelegram,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) GetTelegramSettings(ctx context.Context, userID string) (int64, bool, error) {
	const q = `
		SELECT COALESCE(telegram_chat_id, 0), COALESCE(notify_tasks_telegram, TRUE)
		FROM profiles WHERE id = $1`
	var (
		chatID int64
		notify bool
	)
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&chatID, &notify); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrProfileNotFound
		}
		return 0, false, err
	}
	return chatID, notify, nil
}
