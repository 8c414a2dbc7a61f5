package models

// Profile is the contact profile of a user. Accounts themselves are managed
// by the auth provider; only what reminders need is kept here.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`

	TelegramChatID      int64 `json:"-"`
	NotifyTasksTelegram bool  `json:"-"`
}

// DisplayName falls back to a neutral greeting when the profile has no name.
func (p Profile) DisplayName() string {
	if p.Name == "" {
		return "there"
	}
	return p.Name
}
