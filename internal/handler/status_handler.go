package handler

import (
	"context"
	"net/http"

	"github.com/shikshadisha/portal/internal/middleware"
	"github.com/shikshadisha/portal/internal/model"
)

// StatusChecker はサービス群のヘルスチェックを実行するインターフェース。
type StatusChecker interface {
	Check(ctx context.Context) *model.StatusReport
}

// StatusHandler はサービス稼働状況のHTTPハンドラー。
type StatusHandler struct {
	checker StatusChecker
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(checker StatusChecker) *StatusHandler {
	return &StatusHandler{checker: checker}
}

// Status は全サービスをチェックし、結果を返す。キャッシュはしない。
// クライアントが切断してもチェックは中断せず、各サービスのタイムアウトまで待つ。
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	middleware.WriteJSON(w, http.StatusOK, h.checker.Check(ctx))
}

// Health はプロセスの生存確認に応答する。外部サービスには問い合わせない。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
