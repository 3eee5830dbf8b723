// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shikshadisha/portal/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// sessionContextKey は復元したセッションを格納するためのキー。
	sessionContextKey = contextKey("session")
)

// SessionParser はセッショントークンの検証に必要なインターフェース。
type SessionParser interface {
	Configured() bool
	Parse(token string) (*model.Session, error)
}

// NewOptionalSessionMiddleware はセッションCookieを読み取り、
// 有効な場合のみユーザーIDとセッションをリクエストコンテキストに注入する。
// Cookieが無い・不正な場合もリクエストは拒否しない。
func NewOptionalSessionMiddleware(parser SessionParser, cookieName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" || !parser.Configured() {
				next.ServeHTTP(w, r)
				return
			}

			session, err := parser.Parse(cookie.Value)
			if err != nil {
				slog.Debug("セッショントークンを無視しました",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithUserID(r.Context(), session.User.ID)
			ctx = context.WithValue(ctx, sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ErrNoSession はコンテキストにセッションが無いことを示す。
var ErrNoSession = errors.New("session not found in context")

// SessionFromContext はリクエストコンテキストからセッションを取得する。
func SessionFromContext(ctx context.Context) (*model.Session, error) {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok || session == nil {
		return nil, ErrNoSession
	}
	return session, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアが有効なトークンを検出したリクエストでのみ値を返す。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// セッションミドルウェアが有効なトークンを検出したときに使う。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
