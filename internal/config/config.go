package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the planner.
type Config struct {
	DatabaseURL    string
	HTTPAddr       string
	APIToken       string
	LogLevel       string
	HorizonDays    int
	RefreshTime    string // HH:MM, rolling-horizon refresh
	ReminderPoll   time.Duration
	TelegramToken  string
	TelegramChatID int64
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		HTTPAddr:       strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		APIToken:       strings.TrimSpace(os.Getenv("API_TOKEN")),
		LogLevel:       strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		HorizonDays:    parseInt(os.Getenv("HORIZON_DAYS")),
		RefreshTime:    strings.TrimSpace(os.Getenv("REFRESH_TIME")),
		ReminderPoll:   parseSeconds(os.Getenv("REMINDER_POLL_SECONDS")),
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		TelegramChatID: parseInt64(os.Getenv("TELEGRAM_CHAT_ID")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskplanner.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 365
	}
	if cfg.RefreshTime == "" {
		cfg.RefreshTime = "03:30"
	}
	if cfg.ReminderPoll == 0 {
		cfg.ReminderPoll = time.Minute
	}

	if cfg.APIToken == "" {
		return cfg, fmt.Errorf("API_TOKEN is required")
	}

	return cfg, nil
}

func parseInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseInt64(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseSeconds(raw string) time.Duration {
	n := parseInt(raw)
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
