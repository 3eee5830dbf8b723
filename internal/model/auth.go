package model

// LoginRequest は POST /api/auth/login のリクエストボディ。
type LoginRequest struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// CredentialsRequest は資格情報プロバイダーのサインイン・サインアップ要求。
// IsSignupがtrueの場合は上流のサインアップエンドポイントに転送する。
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
	IsSignup bool   `json:"isSignup"`
}

// AuthResponse はログイン系エンドポイントの応答エンベロープ。
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token,omitempty"`
}

// AuthStatusResponse は GET /api/auth/status の応答。
type AuthStatusResponse struct {
	GoogleLoginAvailable bool `json:"googleLoginAvailable"`
}
