package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shikshadisha/portal/internal/auth"
	"github.com/shikshadisha/portal/internal/metrics"
	"github.com/shikshadisha/portal/internal/middleware"
)

// SessionManager はセッショントークンの発行と検証を行うインターフェース。
type SessionManager interface {
	SessionIssuer
	middleware.SessionParser
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	CORSAllowedOrigin string
	LoginRateLimiter  *middleware.RateLimiter

	// TrustProxyHeaders がtrueの場合のみX-Forwarded-For / X-Real-IPをクライアントIPとして採用する。
	// 信頼できるリバースプロキシの背後で動かす場合に限って有効にする。
	TrustProxyHeaders bool

	// メトリクス
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer

	// 認証
	AuthService   AuthServiceInterface
	Sessions      SessionManager
	OAuthProvider auth.OAuthProvider
	AuthConfig    AuthHandlerConfig

	// ステータス
	StatusChecker StatusChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → [RealIP] → OptionalSession → Logging
//
// RealIPはTrustProxyHeadersが有効な場合のみ積む。無効な場合、レート制限は
// ソケットのリモートアドレスをキーにする。
// ログインエンドポイントにのみクライアントIP単位のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewOptionalSessionMiddleware(deps.Sessions, auth.SessionCookieName))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, deps.OAuthProvider, deps.AuthConfig, deps.Logger)
	statusHandler := NewStatusHandler(deps.StatusChecker)

	r.Get("/health", Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api/auth", func(r chi.Router) {
		// ログイン転送
		login := http.HandlerFunc(authHandler.Login)
		if deps.LoginRateLimiter != nil {
			r.With(deps.LoginRateLimiter.Middleware()).Post("/login", login)
		} else {
			r.Post("/login", login)
		}
		r.Get("/status", authHandler.Status)
		r.Post("/google", authHandler.GoogleDemo)

		// OAuth / 資格情報プロバイダー
		r.Get("/signin/google", authHandler.GoogleSignIn)
		r.Get("/callback/google", authHandler.GoogleCallback)
		r.Post("/callback/credentials", authHandler.CredentialsCallback)

		// セッション管理
		r.Get("/session", authHandler.Session)
		r.Post("/signout", authHandler.SignOut)
	})

	r.Get("/api/status", statusHandler.Status)

	return r
}
