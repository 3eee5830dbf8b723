// Package upstream は外部バックエンド（コアサービス）への認証リクエスト転送を提供する。
// ログインとサインアップの2エンドポイントのみを扱い、リトライは行わない。
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shikshadisha/portal/internal/model"
)

const (
	loginPath  = "/auth/login"
	signupPath = "/auth/signup"

	// maxResponseSize は上流レスポンスボディの読み取り上限。
	maxResponseSize = 1 << 20
)

// DefaultTimeout はtimeoutに0以下が渡された場合に使う1呼び出しあたりの上限。
const DefaultTimeout = 10 * time.Second

// ErrNotConfigured は上流URLが未設定であることを示す。
var ErrNotConfigured = errors.New("upstream URL is not configured")

// RejectedError は上流が認証を拒否したことを表す。
// 非2xxレスポンス、または success:false を含む2xxレスポンスで返る。
type RejectedError struct {
	StatusCode int
	Message    string // 上流のメッセージ。無い場合は空文字列
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream rejected request with status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream rejected request with status %d: %s", e.StatusCode, e.Message)
}

// UnavailableError はネットワークエラー・タイムアウト・応答の読み取り失敗を表す。
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Result は上流の成功レスポンス。
// UserやTokenが省略された場合はゼロ値のまま返し、補完は呼び出し側で行う。
type Result struct {
	Message string
	User    *model.User
	Token   string
}

// upstreamResponse は上流が返すJSONの想定形式。
// successが省略された場合はHTTPステータスのみで判定する。
type upstreamResponse struct {
	Success *bool       `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
	User    *model.User `json:"user"`
	Token   string      `json:"token"`
}

// Client は上流サービスのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	timeout    time.Duration
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合、全ての呼び出しはErrNotConfiguredを返す。
// timeoutは1呼び出しごとに適用される。0以下の場合はDefaultTimeoutを使う。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		timeout:    timeout,
	}
}

// Configured は上流URLが設定されているかを返す。
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Login は上流のログインエンドポイントに資格情報を転送する。
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*Result, error) {
	return c.post(ctx, loginPath, map[string]any{
		"email":      email,
		"password":   password,
		"rememberMe": rememberMe,
	})
}

// Authenticate は資格情報プロバイダー用の転送を行う。
// isSignupがtrueの場合はサインアップ、falseの場合はログインエンドポイントを呼ぶ。
func (c *Client) Authenticate(ctx context.Context, email, password, name string, isSignup bool) (*Result, error) {
	path := loginPath
	if isSignup {
		path = signupPath
	}
	return c.post(ctx, path, map[string]any{
		"email":    email,
		"password": password,
		"name":     name,
	})
}

// post はJSONボディを上流に1回だけ送信し、結果を分類する。
func (c *Client) post(ctx context.Context, path string, payload any) (*Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upstream request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("上流へのリクエストに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("上流レスポンスの読み取りに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, &UnavailableError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var parsed upstreamResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("上流が認証要求を拒否しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: parsed.message()}
	}

	if decodeErr != nil {
		c.logger.Error("上流レスポンスのパースに失敗しました",
			slog.String("path", path),
			slog.String("error", decodeErr.Error()),
		)
		return nil, &UnavailableError{Err: fmt.Errorf("failed to parse response body: %w", decodeErr)}
	}

	if parsed.Success != nil && !*parsed.Success {
		c.logger.Warn("上流が失敗を返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: parsed.message()}
	}

	return &Result{
		Message: parsed.Message,
		User:    parsed.User,
		Token:   parsed.Token,
	}, nil
}

// message は上流のmessage、無ければerrorフィールドを返す。
func (r upstreamResponse) message() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}
