// Package auth はログインの上流転送、資格情報プロバイダー、Google OAuth、
// セッショントークンの発行と検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shikshadisha/portal/internal/metrics"
	"github.com/shikshadisha/portal/internal/model"
	"github.com/shikshadisha/portal/internal/security"
	"github.com/shikshadisha/portal/internal/upstream"
)

const (
	// DefaultLoginMessage は上流がmessageを返さなかった場合の成功メッセージ。
	DefaultLoginMessage = "Login successful"
	// DefaultRejectMessage は上流が理由を返さなかった場合の拒否メッセージ。
	DefaultRejectMessage = "Invalid email or password"

	flowLogin       = "login"
	flowCredentials = "credentials"
)

var (
	// ErrNotConfigured は転送先の上流URLが未設定であることを示す。
	ErrNotConfigured = errors.New("authentication service is not configured")
	// ErrUnavailable は上流に到達できなかったことを示す。
	ErrUnavailable = errors.New("authentication service is unavailable")
)

// InvalidCredentialsError は上流が資格情報を拒否したことを表す。
// Messageはマークアップ除去済みで、空になることはない。
type InvalidCredentialsError struct {
	Message string
}

func (e *InvalidCredentialsError) Error() string {
	return "invalid credentials: " + e.Message
}

// Upstream はログイン・サインアップを受け付ける上流サービスのインターフェース。
type Upstream interface {
	Configured() bool
	Login(ctx context.Context, email, password string, rememberMe bool) (*upstream.Result, error)
	Authenticate(ctx context.Context, email, password, name string, isSignup bool) (*upstream.Result, error)
}

// Service は資格情報による認証のビジネスロジックを提供する。
type Service struct {
	upstream  Upstream
	sanitizer security.MessageSanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService はServiceを生成する。collectorはnilでもよい。
func NewService(up Upstream, sanitizer security.MessageSanitizer, collector metrics.MetricsCollector, logger *slog.Logger) *Service {
	return &Service{
		upstream:  up,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Login は資格情報を上流のログインエンドポイントへ1回だけ転送し、
// フロントエンド向けのレスポンスを組み立てる。
// 上流がuserやtokenを省略した場合はデモ用の値で補完する。
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	if !s.upstream.Configured() {
		s.recordOutcome(flowLogin, metrics.OutcomeNotConfigured)
		return nil, ErrNotConfigured
	}

	start := time.Now()
	res, err := s.upstream.Login(ctx, req.Email, req.Password, req.RememberMe)
	s.recordLatency(flowLogin, time.Since(start))
	if err != nil {
		return nil, s.classify(flowLogin, err)
	}

	s.recordOutcome(flowLogin, metrics.OutcomeSuccess)

	message := s.sanitizer.Sanitize(res.Message)
	if message == "" {
		message = DefaultLoginMessage
	}
	token := res.Token
	if token == "" {
		token = fmt.Sprintf("demo-token-%d", s.now().UnixMilli())
	}
	user := s.completeUser(res.User, req.Email)

	return &model.AuthResponse{
		Success: true,
		Message: message,
		User:    &user,
		Token:   token,
	}, nil
}

// AuthorizeCredentials は資格情報プロバイダーの認可処理。
// IsSignupに応じてサインアップまたはログインの上流エンドポイントを呼び、
// セッションに載せるユーザーを返す。
func (s *Service) AuthorizeCredentials(ctx context.Context, req model.CredentialsRequest) (*model.User, error) {
	if !s.upstream.Configured() {
		s.recordOutcome(flowCredentials, metrics.OutcomeNotConfigured)
		return nil, ErrNotConfigured
	}

	start := time.Now()
	res, err := s.upstream.Authenticate(ctx, req.Email, req.Password, req.Name, req.IsSignup)
	s.recordLatency(flowCredentials, time.Since(start))
	if err != nil {
		return nil, s.classify(flowCredentials, err)
	}

	s.recordOutcome(flowCredentials, metrics.OutcomeSuccess)

	fallback := res.User
	if fallback == nil && req.Name != "" {
		fallback = &model.User{Name: req.Name}
	}
	user := s.completeUser(fallback, req.Email)
	return &user, nil
}

// GoogleDemoLogin はGoogleログインのデモ用レスポンスを返す。
// 実際のOAuth交換は行わない。
func (s *Service) GoogleDemoLogin() *model.AuthResponse {
	return &model.AuthResponse{
		Success: true,
		Message: "Google login successful",
		User: &model.User{
			ID:    "google-demo-user",
			Name:  "Google User",
			Email: "user@gmail.com",
		},
		Token: fmt.Sprintf("demo-google-token-%d", s.now().UnixMilli()),
	}
}

// classify は上流クライアントのエラーをサービス層のエラーに変換する。
func (s *Service) classify(flow string, err error) error {
	var rejected *upstream.RejectedError
	switch {
	case errors.Is(err, upstream.ErrNotConfigured):
		s.recordOutcome(flow, metrics.OutcomeNotConfigured)
		return ErrNotConfigured
	case errors.As(err, &rejected):
		s.recordOutcome(flow, metrics.OutcomeRejected)
		message := s.sanitizer.Sanitize(rejected.Message)
		if message == "" {
			message = DefaultRejectMessage
		}
		return &InvalidCredentialsError{Message: message}
	default:
		s.recordOutcome(flow, metrics.OutcomeUnavailable)
		s.logger.Error("認証サービスに到達できません",
			slog.String("flow", flow),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// completeUser は欠けているユーザー属性をメールアドレスから補完する。
func (s *Service) completeUser(u *model.User, email string) model.User {
	var user model.User
	if u != nil {
		user = *u
	}
	if user.ID == "" {
		user.ID = s.newID()
	}
	if user.Email == "" {
		user.Email = email
	}
	if user.Name == "" {
		user.Name = localPart(user.Email)
	}
	return user
}

func (s *Service) recordOutcome(flow, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAuthOutcome(flow, outcome)
	}
}

func (s *Service) recordLatency(flow string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordUpstreamLatency(flow, d)
	}
}

// localPart はメールアドレスの@より前を返す。
func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
