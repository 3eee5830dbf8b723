package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shikshadisha/portal/internal/model"
)

// ErrorResponseBody はOAuth・セッション系エンドポイントのエラーフォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteJSON はvをJSONとして書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("レスポンスのエンコードに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	WriteJSON(w, statusCode, ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteAuthFailure はログイン系エンドポイントの失敗エンベロープを書き込む。
// フロントエンドは {success:false, message} の形式のみを解釈する。
func WriteAuthFailure(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, model.AuthResponse{
		Success: false,
		Message: message,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     model.ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: model.CategorySystem,
		Action:   "Please wait a moment and try again.",
	})
}
