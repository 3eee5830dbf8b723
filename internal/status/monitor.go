package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shikshadisha/portal/internal/model"
)

// ReportChecker はヘルスチェックを1回実行するインターフェース。
type ReportChecker interface {
	Check(ctx context.Context) *model.StatusReport
}

// Monitor はcronスケジュールでヘルスチェックを定期実行する。
// 結果はメトリクスとログにのみ反映し、APIの応答には使わない。
type Monitor struct {
	checker  ReportChecker
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
	timeout  time.Duration
}

// NewMonitor はMonitorを生成する。
// 前回の実行が終わっていない場合、その回はスキップする。
func NewMonitor(checker ReportChecker, schedule string, timeout time.Duration, logger *slog.Logger) *Monitor {
	cl := &cronLogger{logger: logger.With(slog.String("component", "cron"))}
	return &Monitor{
		checker:  checker,
		schedule: schedule,
		logger:   logger,
		timeout:  timeout,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start はジョブを登録してスケジューラを起動する。
// スケジュールが空の場合は何もしない。
func (m *Monitor) Start() error {
	if m.schedule == "" {
		m.logger.Warn("ステータスモニターのスケジュールが未設定のため起動しません")
		return nil
	}

	id, err := m.cron.AddFunc(m.schedule, func() {
		m.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule status monitor %q: %w", m.schedule, err)
	}

	m.cron.Start()
	m.logger.Info("ステータスモニターを開始しました",
		slog.String("schedule", m.schedule),
		slog.Int("job_id", int(id)),
	)
	return nil
}

// Stop はスケジューラを停止し、実行中のジョブの完了かctxの期限まで待つ。
func (m *Monitor) Stop(ctx context.Context) {
	stopped := m.cron.Stop()
	select {
	case <-stopped.Done():
		m.logger.Info("ステータスモニターを停止しました")
	case <-ctx.Done():
		m.logger.Warn("ステータスモニターの停止がタイムアウトしました")
	}
}

// RunOnce はヘルスチェックを1回実行して結果をログに残す。
func (m *Monitor) RunOnce(ctx context.Context) *model.StatusReport {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	report := m.checker.Check(ctx)

	down := make([]string, 0)
	for _, s := range report.Services {
		if !s.Status {
			down = append(down, s.Name)
		}
	}

	level := slog.LevelInfo
	if report.Status != model.StatusOperational {
		level = slog.LevelWarn
	}
	m.logger.Log(ctx, level, "ステータスチェックを実行しました",
		slog.String("status", string(report.Status)),
		slog.Any("unreachable", down),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return report
}

// cronLogger はslog.Loggerをcron.Loggerに適合させる。
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
