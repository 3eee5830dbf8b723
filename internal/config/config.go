package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream (ログイン・サインアップの転送先)
	DatabaseURL  string
	PublicAPIURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Session
	NextAuthSecret string
	NextAuthURL    string
	SessionMaxAge  int

	// Backend services (ステータスチェック対象)
	CoreServiceURL    string
	PathwayEngineURL  string
	CompanionURL      string
	FrontendStatusURL string

	// Timeouts
	LoginTimeout       time.Duration
	StatusCheckTimeout time.Duration

	// Status monitor
	StatusMonitorSchedule string

	// Rate Limit
	RateLimitLogin int
	TrustedProxy   bool // X-Forwarded-Forを信頼するか

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
// 必須の環境変数は存在しない。上流URLが未設定の場合はリクエスト単位で503を返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.PublicAPIURL = strings.TrimSpace(os.Getenv("NEXT_PUBLIC_API_URL"))

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.NextAuthSecret = os.Getenv("NEXTAUTH_SECRET")
	cfg.NextAuthURL = getEnvString("NEXTAUTH_URL", "http://localhost:3000")
	cfg.SessionMaxAge = getEnvPositiveInt("SESSION_MAX_AGE", 30*24*60*60)

	cfg.CoreServiceURL = getEnvString("BACKEND_SERVICE_CORE_BASE_URL", "http://localhost:8000")
	cfg.PathwayEngineURL = getEnvString("BACKEND_SERVICE_AI_PATHWAY_ENGINE_BASE_URL", "http://localhost:8001")
	cfg.CompanionURL = getEnvString("BACKEND_SERVICE_AI_COMPANION_BASE_URL", "http://localhost:8002")
	cfg.FrontendStatusURL = getEnvString("FRONTEND_STATUS_URL", "https://vercel.com")

	cfg.LoginTimeout = getEnvDuration("LOGIN_TIMEOUT", 10*time.Second)
	cfg.StatusCheckTimeout = getEnvDuration("STATUS_CHECK_TIMEOUT", 5*time.Second)

	// 空文字列を明示した場合はモニターを無効化するため、LookupEnvで判定する
	cfg.StatusMonitorSchedule = "@every 1m"
	if v, ok := os.LookupEnv("STATUS_MONITOR_SCHEDULE"); ok {
		cfg.StatusMonitorSchedule = strings.TrimSpace(v)
	}

	cfg.RateLimitLogin = getEnvPositiveInt("RATE_LIMIT_LOGIN", 20)
	cfg.TrustedProxy = getEnvBool("TRUSTED_PROXY", false)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.NextAuthURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// UpstreamURL はログイン転送先のベースURLを返す。
// DATABASE_URLを優先し、未設定の場合はNEXT_PUBLIC_API_URLを使う。
// どちらも未設定の場合は空文字列を返す。
func (c *Config) UpstreamURL() string {
	if c.DatabaseURL != "" {
		return strings.TrimRight(c.DatabaseURL, "/")
	}
	return strings.TrimRight(c.PublicAPIURL, "/")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvPositiveInt は正の整数を読み込む。未設定・不正値・0以下の場合はdefaultValを返す。
func getEnvPositiveInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
