package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the bot reads from the environment. It is
// resolved once in main and passed explicitly; nothing re-reads the
// environment after startup.
type Config struct {
	BotToken    string
	BotUsername string
	ChannelID   string
	AdminIDs    []int64

	DatabaseURL string
	Port        string
	CORSOrigin  string

	// Minimum interval between two confession submissions by one user.
	ConfessionCooldown time.Duration
}

// Load reads and validates the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:           os.Getenv("BOT_TOKEN"),
		BotUsername:        os.Getenv("BOT_USERNAME"),
		ChannelID:          os.Getenv("CHANNEL_ID"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Port:               os.Getenv("PORT"),
		CORSOrigin:         os.Getenv("CORS_ORIGIN"),
		ConfessionCooldown: 60 * time.Second,
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "sqlite://confide.db"
	}

	if raw := os.Getenv("CONFESSION_COOLDOWN"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CONFESSION_COOLDOWN: %w", err)
		}
		cfg.ConfessionCooldown = d
	}

	ids, err := parseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.AdminIDs = ids

	return cfg, nil
}

func parseAdminIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsAdmin reports whether the given Telegram user id is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
