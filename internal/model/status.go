package model

import "time"

// TimestampLayout はステータス応答で使うRFC 3339（ミリ秒精度）の書式。
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp は時刻をUTCのTimestampLayout形式に整形する。
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// OverallStatus はサービス群全体の稼働状態を表す。
type OverallStatus string

const (
	// StatusOperational は全サービスが到達可能な状態。
	StatusOperational OverallStatus = "operational"
	// StatusDegraded は応答形式上の値。集計では生成しない。
	StatusDegraded OverallStatus = "degraded"
	// StatusIssues は1つ以上のサービスが到達不能な状態。
	StatusIssues OverallStatus = "issues"
)

// ServiceStatus は1サービス分のヘルスチェック結果。
type ServiceStatus struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Status    bool   `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StatusReport は GET /api/status の応答。
type StatusReport struct {
	Status    OverallStatus   `json:"status"`
	Services  []ServiceStatus `json:"services"`
	CheckedAt string          `json:"checkedAt"`
}
