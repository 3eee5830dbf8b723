// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shikshadisha/portal/internal/auth"
	"github.com/shikshadisha/portal/internal/middleware"
	"github.com/shikshadisha/portal/internal/model"
)

// フロントエンドに返す固定メッセージ
const (
	msgCredentialsRequired = "Email and password are required"
	msgNotConfigured       = "Authentication service is not configured"
	msgUnavailable         = "Authentication service is unavailable. Please try again later."
)

const oauthStateCookie = "portal.oauth-state"

// maxRequestBodySize はリクエストボディの読み取り上限。
const maxRequestBodySize = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error)
	AuthorizeCredentials(ctx context.Context, req model.CredentialsRequest) (*model.User, error)
	GoogleDemoLogin() *model.AuthResponse
}

// SessionIssuer はセッショントークンの発行に必要なインターフェース。
type SessionIssuer interface {
	Configured() bool
	Issue(user model.User) (string, time.Time, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string // サインイン後のリダイレクト先（NEXTAUTH_URL）
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）

	// Googleサインインの設定値。全て実値の場合のみ有効になる。
	GoogleClientID     string
	GoogleClientSecret string
	NextAuthSecret     string
}

// AuthHandler はログイン・セッション関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionIssuer
	oauth    auth.OAuthProvider
	config   AuthHandlerConfig
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
// oauthはGoogleサインインを使わない場合nilでよい。
func NewAuthHandler(
	service AuthServiceInterface,
	sessions SessionIssuer,
	oauth auth.OAuthProvider,
	config AuthHandlerConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		oauth:    oauth,
		config:   config,
		logger:   logger,
	}
}

// Login は資格情報を上流に転送する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAuthFailure(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		middleware.WriteAuthFailure(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Status はGoogleサインインが利用可能かを返す。
// GET /api/auth/status
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, model.AuthStatusResponse{
		GoogleLoginAvailable: h.googleAvailable(),
	})
}

// GoogleDemo はデモ用の固定レスポンスを返す。
// POST /api/auth/google
func (h *AuthHandler) GoogleDemo(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.service.GoogleDemoLogin())
}

// writeServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func (h *AuthHandler) writeServiceError(w http.ResponseWriter, err error) {
	var invalid *auth.InvalidCredentialsError
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		middleware.WriteAuthFailure(w, http.StatusServiceUnavailable, msgNotConfigured)
	case errors.As(err, &invalid):
		middleware.WriteAuthFailure(w, http.StatusUnauthorized, invalid.Message)
	case errors.Is(err, auth.ErrUnavailable):
		middleware.WriteAuthFailure(w, http.StatusServiceUnavailable, msgUnavailable)
	default:
		h.logger.Error("認証処理で予期しないエラーが発生しました",
			slog.String("error", err.Error()),
		)
		middleware.WriteAuthFailure(w, http.StatusServiceUnavailable, msgUnavailable)
	}
}

func (h *AuthHandler) googleAvailable() bool {
	return auth.GoogleLoginAvailable(h.config.GoogleClientID, h.config.GoogleClientSecret, h.config.NextAuthSecret)
}
