package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

// PathFromEnv returns HABITVAULT_CONFIG when set, DefaultPath otherwise.
func PathFromEnv() string {
	if p := os.Getenv("HABITVAULT_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

type FilesConfig struct {
	FontPath string `yaml:"font_path"` // TTF for the agenda PDF
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	APIEndpoint string `yaml:"api_endpoint"`
}

type RemindersConfig struct {
	ScanInterval        time.Duration `yaml:"scan_interval"`
	Lookahead           time.Duration `yaml:"lookahead"`
	DispatchSchedule    string        `yaml:"dispatch_schedule"`
	DispatchConcurrency int           `yaml:"dispatch_concurrency"`
	TriggerTokenHash    string        `yaml:"trigger_token_hash"`
	Timezone            string        `yaml:"timezone"`
	SoundSrc            string        `yaml:"sound_src"`
}

// Location resolves Timezone; an empty or unknown zone falls back to time.Local.
func (r RemindersConfig) Location() *time.Location {
	if r.Timezone == "" || r.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Reminders RemindersConfig `yaml:"reminders"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Files     FilesConfig     `yaml:"files"`
}

// Load reads the yaml file at path (a missing file is not an error), applies
// environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)
	return &cfg, nil
}

// MustLoad is Load for process entry points.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.Database.DSN = v
	}
	if v, ok := lookup("RESEND_API_KEY"); ok && v != "" {
		// Resend SMTP relay: user "resend", password is the API key.
		cfg.Email.SMTPPassword = v
		if cfg.Email.SMTPHost == "" {
			cfg.Email.SMTPHost = "smtp.resend.com"
			cfg.Email.SMTPPort = 587
			cfg.Email.SMTPUser = "resend"
		}
	}
	if v, ok := lookup("SERVICE_ROLE_KEY"); ok && v != "" && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := lookup("TELEGRAM_BOT_TOKEN"); ok && v != "" {
		cfg.Telegram.BotToken = v
	}
	if v, ok := lookup("PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = "Habit Vault <onboarding@resend.dev>"
	}
	if cfg.Reminders.ScanInterval <= 0 {
		cfg.Reminders.ScanInterval = 30 * time.Second
	}
	if cfg.Reminders.Lookahead <= 0 {
		cfg.Reminders.Lookahead = time.Hour
	}
	if cfg.Reminders.DispatchSchedule == "" {
		cfg.Reminders.DispatchSchedule = "*/5 * * * *"
	}
	if cfg.Reminders.DispatchConcurrency <= 0 {
		cfg.Reminders.DispatchConcurrency = 8
	}
	if cfg.Reminders.SoundSrc == "" {
		cfg.Reminders.SoundSrc = "/notification.mp3"
	}
}
