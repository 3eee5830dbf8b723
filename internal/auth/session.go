package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shikshadisha/portal/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "portal.session-token"

var (
	// ErrSessionNotConfigured は署名用シークレットが未設定であることを示す。
	ErrSessionNotConfigured = errors.New("session secret is not configured")
	// ErrInvalidSession はトークンの署名・期限・クレームが不正であることを示す。
	ErrInvalidSession = errors.New("invalid session token")
)

// sessionClaims はセッショントークンのクレーム。
// ユーザーIDはsubに載せる。
type sessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionManager はHS256署名のセッショントークンを発行・検証する。
type SessionManager struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// DefaultSessionMaxAge はmaxAgeに0以下が渡された場合の有効期間（30日）。
const DefaultSessionMaxAge = 30 * 24 * time.Hour

// NewSessionManager はSessionManagerを生成する。
// maxAgeが0以下の場合はDefaultSessionMaxAgeを使う。
func NewSessionManager(secret string, maxAge time.Duration) *SessionManager {
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &SessionManager{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Configured は署名用シークレットが設定されているかを返す。
func (m *SessionManager) Configured() bool {
	return len(m.secret) > 0
}

// MaxAge はセッションの有効期間を返す。
func (m *SessionManager) MaxAge() time.Duration {
	return m.maxAge
}

// Issue はユーザーのセッショントークンを発行し、トークンと有効期限を返す。
func (m *SessionManager) Issue(user model.User) (string, time.Time, error) {
	if !m.Configured() {
		return "", time.Time{}, ErrSessionNotConfigured
	}
	if user.ID == "" {
		return "", time.Time{}, fmt.Errorf("%w: missing user id", ErrInvalidSession)
	}

	now := m.now()
	expires := now.Add(m.maxAge)
	claims := sessionClaims{
		Name:  user.Name,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expires, nil
}

// Parse はセッショントークンを検証し、ユーザーIDをセッションに戻して返す。
func (m *SessionManager) Parse(tokenString string) (*model.Session, error) {
	if !m.Configured() {
		return nil, ErrSessionNotConfigured
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}

	return &model.Session{
		User: model.User{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
		},
		Expires: claims.ExpiresAt.Time,
	}, nil
}
