package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration for the harvester.
type Config struct {
	APIBaseURL         string
	WebBaseURL         string
	CalendarURL        string
	APIToken           string
	Timezone           string
	WindowDays         float64
	EventIDs           []int
	RequestsPerSecond  float64
	FindMissingPartner bool
	SentryDSN          string
}

// FromEnv creates a configuration instance sourced from environment variables.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIBaseURL:         getEnv("HARVEST_API_BASE_URL", "https://webapi.legistar.com/v1/metro"),
		WebBaseURL:         getEnv("HARVEST_WEB_BASE_URL", "https://metro.legistar.com/"),
		CalendarURL:        getEnv("HARVEST_CALENDAR_URL", "https://metro.legistar.com/Calendar.aspx"),
		APIToken:           getEnv("LEGISTAR_API_TOKEN", ""),
		Timezone:           getEnv("HARVEST_TIMEZONE", "America/Los_Angeles"),
		RequestsPerSecond:  10,
		FindMissingPartner: true,
		SentryDSN:          getEnv("SENTRY_DSN", ""),
	}

	if window := os.Getenv("HARVEST_WINDOW_DAYS"); window != "" {
		if _, err := fmt.Sscanf(window, "%f", &cfg.WindowDays); err != nil {
			return Config{}, fmt.Errorf("parse HARVEST_WINDOW_DAYS: %w", err)
		}
	}

	if ids := os.Getenv("HARVEST_EVENT_IDS"); ids != "" {
		for _, part := range strings.Split(ids, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return Config{}, fmt.Errorf("parse HARVEST_EVENT_IDS: %w", err)
			}
			cfg.EventIDs = append(cfg.EventIDs, id)
		}
	}

	if cfg.WindowDays != 0 && len(cfg.EventIDs) > 0 {
		return Config{}, fmt.Errorf("config: HARVEST_WINDOW_DAYS and HARVEST_EVENT_IDS are mutually exclusive")
	}

	if rps := os.Getenv("HARVEST_REQUESTS_PER_SECOND"); rps != "" {
		if _, err := fmt.Sscanf(rps, "%f", &cfg.RequestsPerSecond); err != nil {
			return Config{}, fmt.Errorf("parse HARVEST_REQUESTS_PER_SECOND: %w", err)
		}
	}

	if v := os.Getenv("HARVEST_FIND_MISSING_PARTNER"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse HARVEST_FIND_MISSING_PARTNER: %w", err)
		}
		cfg.FindMissingPartner = enabled
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
