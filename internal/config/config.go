// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// Session
	SessionSecret string `env:"SESSION_SECRET,notEmpty"`
	SessionMaxAge int    `env:"SESSION_MAX_AGE" envDefault:"86400"`

	// Rate Limit（req/min）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"600"`
	RateLimitSignup  int `env:"RATE_LIMIT_SIGNUP" envDefault:"10"`

	// Cleanup
	TrashRetentionDays int           `env:"TRASH_RETENTION_DAYS" envDefault:"30"`
	CleanupInterval    time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,notEmpty"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS（カンマ区切りで複数指定可）
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や値の形式が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	if cfg.SessionMaxAge <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE must be positive: %d", cfg.SessionMaxAge)
	}
	if cfg.TrashRetentionDays <= 0 {
		return nil, fmt.Errorf("TRASH_RETENTION_DAYS must be positive: %d", cfg.TrashRetentionDays)
	}

	return cfg, nil
}
