package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shikshadisha/portal/internal/auth"
	"github.com/shikshadisha/portal/internal/middleware"
	"github.com/shikshadisha/portal/internal/model"
)

// GoogleSignIn はGoogle OAuthフローを開始する。
// GET /api/auth/signin/google
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil || !h.googleAvailable() {
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewGoogleNotConfiguredError())
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("OAuth stateの生成に失敗しました", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理し、セッションCookieを発行する。
// GET /api/auth/callback/google?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		h.logger.Warn("OAuth stateが一致しません")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidStateError())
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingCodeError())
		return
	}

	if h.oauth == nil {
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewGoogleNotConfiguredError())
		return
	}

	info, err := h.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("OAuthコールバックの処理に失敗しました", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewOAuthFailedError())
		return
	}

	user := model.User{ID: info.ProviderUserID, Name: info.Name, Email: info.Email}
	if user.Name == "" {
		user.Name, _, _ = strings.Cut(user.Email, "@")
	}

	if err := h.setSessionCookie(w, user); err != nil {
		h.logger.Error("セッションの発行に失敗しました", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewSessionFailedError())
		return
	}

	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// CredentialsCallback は資格情報プロバイダーでサインイン・サインアップする。
// POST /api/auth/callback/credentials
func (h *AuthHandler) CredentialsCallback(w http.ResponseWriter, r *http.Request) {
	var req model.CredentialsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAuthFailure(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		middleware.WriteAuthFailure(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	if !h.sessions.Configured() {
		middleware.WriteAuthFailure(w, http.StatusServiceUnavailable, msgNotConfigured)
		return
	}

	user, err := h.service.AuthorizeCredentials(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := h.setSessionCookie(w, *user); err != nil {
		h.logger.Error("セッションの発行に失敗しました", slog.String("error", err.Error()))
		middleware.WriteAuthFailure(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, model.AuthResponse{
		Success: true,
		User:    user,
	})
}

// Session は現在のセッションを返す。セッションが無い場合は空オブジェクト。
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if errors.Is(err, middleware.ErrNoSession) {
		middleware.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, session)
}

// SignOut はセッションCookieを削除する。
// POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	middleware.WriteJSON(w, http.StatusOK, model.AuthResponse{Success: true})
}

// setSessionCookie はユーザーのセッショントークンを発行してCookieに設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, user model.User) error {
	token, _, err := h.sessions.Issue(user)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
