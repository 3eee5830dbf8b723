package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 成功フラグ付きエンベロープを返さないエンドポイント（OAuthリダイレクト等）で使う。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeGoogleNotConfigured = "GOOGLE_NOT_CONFIGURED"
	ErrCodeInvalidState        = "INVALID_OAUTH_STATE"
	ErrCodeMissingCode         = "MISSING_AUTHORIZATION_CODE"
	ErrCodeOAuthFailed         = "OAUTH_EXCHANGE_FAILED"
	ErrCodeSessionFailed       = "SESSION_ISSUE_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// エラーカテゴリ
const (
	CategoryAuth     = "auth"
	CategoryUpstream = "upstream"
	CategorySystem   = "system"
)

// NewGoogleNotConfiguredError はGoogleサインインが未設定の場合のエラーを生成する。
func NewGoogleNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeGoogleNotConfigured,
		Message:  "Google sign-in is not configured.",
		Category: CategoryAuth,
		Action:   "Sign in with email and password instead.",
	}
}

// NewInvalidStateError はOAuthのstate不一致エラーを生成する。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "Invalid OAuth state parameter.",
		Category: CategoryAuth,
		Action:   "Start the sign-in flow again.",
	}
}

// NewMissingCodeError は認可コード欠落エラーを生成する。
func NewMissingCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCode,
		Message:  "Missing authorization code.",
		Category: CategoryAuth,
		Action:   "Start the sign-in flow again.",
	}
}

// NewOAuthFailedError はIdPとのトークン交換失敗エラーを生成する。
func NewOAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthFailed,
		Message:  "Could not complete Google sign-in.",
		Category: CategoryUpstream,
		Action:   "Please wait a moment and try again.",
	}
}

// NewSessionFailedError はセッショントークン発行失敗エラーを生成する。
func NewSessionFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionFailed,
		Message:  "Could not create a session.",
		Category: CategorySystem,
		Action:   "Please wait a moment and try again.",
	}
}
