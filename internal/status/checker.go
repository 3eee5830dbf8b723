// Package status はバックエンドサービス群のヘルスチェックを提供する。
// 全サービスへ並行にGETを送り、到達可否を集計する。
package status

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shikshadisha/portal/internal/config"
	"github.com/shikshadisha/portal/internal/metrics"
	"github.com/shikshadisha/portal/internal/model"
)

// Target はヘルスチェック対象のサービス。
type Target struct {
	Name string
	URL  string
}

// TargetsFromConfig は設定からチェック対象の一覧を組み立てる。
// 先頭は静的なフロントエンドのエントリ。
func TargetsFromConfig(cfg *config.Config) []Target {
	return []Target{
		{Name: "Frontend (Vercel)", URL: cfg.FrontendStatusURL},
		{Name: "Core Service", URL: cfg.CoreServiceURL},
		{Name: "AI Pathway Engine", URL: cfg.PathwayEngineURL},
		{Name: "AI Companion", URL: cfg.CompanionURL},
	}
}

// Checker はサービス群のヘルスチェックを実行する。
type Checker struct {
	httpClient *http.Client
	targets    []Target
	timeout    time.Duration
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	now        func() time.Time
}

// DefaultTimeout はtimeoutに0以下が渡された場合に使うサービス1件あたりの上限。
const DefaultTimeout = 5 * time.Second

// NewChecker はCheckerを生成する。timeoutはサービス1件ごとに適用され、
// 0以下の場合はDefaultTimeoutを使う。collectorはnilでもよい。
func NewChecker(
	httpClient *http.Client,
	targets []Target,
	timeout time.Duration,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Checker {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		httpClient: httpClient,
		targets:    targets,
		timeout:    timeout,
		metrics:    collector,
		logger:     logger,
		now:        time.Now,
	}
}

// Check は全サービスを並行にチェックし、全件の完了を待ってから結果を返す。
// 1サービスの失敗やタイムアウトは他のサービスに影響しない。
func (c *Checker) Check(ctx context.Context) *model.StatusReport {
	results := make([]model.ServiceStatus, len(c.targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range c.targets {
		i, t := i, t
		g.Go(func() error {
			results[i] = c.probe(gctx, t)
			return nil
		})
	}
	// probeはエラーを返さない
	_ = g.Wait()

	report := &model.StatusReport{
		Status:    Aggregate(results),
		Services:  results,
		CheckedAt: model.FormatTimestamp(c.now()),
	}

	c.logger.Debug("ヘルスチェックが完了しました",
		slog.String("status", string(report.Status)),
		slog.Int("services", len(results)),
	)
	return report
}

// probe は1サービスにGETを送り、2xx応答なら到達可能とする。
func (c *Checker) probe(ctx context.Context, t Target) model.ServiceStatus {
	start := time.Now()
	up := c.reachable(ctx, t)
	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordServiceCheck(t.Name, up, elapsed)
	}

	return model.ServiceStatus{
		Name:      t.Name,
		URL:       t.URL,
		Status:    up,
		Timestamp: model.FormatTimestamp(c.now()),
	}
}

func (c *Checker) reachable(ctx context.Context, t Target) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		c.logger.Warn("ヘルスチェックのリクエスト生成に失敗しました",
			slog.String("service", t.Name),
			slog.String("url", t.URL),
			slog.String("error", err.Error()),
		)
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("サービスに到達できません",
			slog.String("service", t.Name),
			slog.String("url", t.URL),
			slog.String("error", err.Error()),
		)
		return false
	}
	defer resp.Body.Close()
	// コネクション再利用のため少量だけ読み捨てる
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("サービスが異常なステータスを返しました",
			slog.String("service", t.Name),
			slog.Int("http_status", resp.StatusCode),
		)
		return false
	}
	return true
}

// Aggregate は個別結果から全体の状態を決める。
// 全件到達可能ならoperational、1件でも不可ならissues。
func Aggregate(results []model.ServiceStatus) model.OverallStatus {
	for _, r := range results {
		if !r.Status {
			return model.StatusIssues
		}
	}
	return model.StatusOperational
}
