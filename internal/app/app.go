package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shikshadisha/portal/internal/auth"
	"github.com/shikshadisha/portal/internal/config"
	"github.com/shikshadisha/portal/internal/handler"
	"github.com/shikshadisha/portal/internal/logger"
	"github.com/shikshadisha/portal/internal/metrics"
	"github.com/shikshadisha/portal/internal/middleware"
	"github.com/shikshadisha/portal/internal/model"
	"github.com/shikshadisha/portal/internal/security"
	"github.com/shikshadisha/portal/internal/status"
	"github.com/shikshadisha/portal/internal/upstream"
)

// shutdownTimeout はグレースフルシャットダウンの猶予時間。
const shutdownTimeout = 30 * time.Second

// ErrNotOperational はstatusコマンドで一部サービスに到達できなかったことを示す。
var ErrNotOperational = errors.New("one or more services are unreachable")

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	logger.SetupDefaultWithLevel(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	// statusコマンドは標準出力にJSONを出すため、ログは標準エラーに分ける
	logWriter := w
	if cmd == CommandStatus {
		logWriter = os.Stderr
	}

	cfg, err := Init(logWriter)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("アプリケーションを起動します",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("upstream_configured", cfg.UpstreamURL() != ""),
	)

	switch cmd {
	case CommandMonitor:
		return runMonitor(cfg)
	case CommandStatus:
		return runStatus(context.Background(), cfg, w)
	default:
		return runServe(cfg)
	}
}

// newRegistry はプロセス・Goランタイムのコレクターを含むレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newChecker は設定からステータスチェッカーを構築する。
func newChecker(cfg *config.Config, collector metrics.MetricsCollector) *status.Checker {
	return status.NewChecker(
		&http.Client{},
		status.TargetsFromConfig(cfg),
		cfg.StatusCheckTimeout,
		collector,
		slog.Default(),
	)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーとステータスモニターを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. メトリクス
	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	// 2. 上流クライアントと認証サービス
	upstreamClient := upstream.NewClient(&http.Client{}, log, cfg.UpstreamURL(), cfg.LoginTimeout)
	if !upstreamClient.Configured() {
		log.Warn("上流URLが未設定のため、ログインは503を返します")
	}
	authService := auth.NewService(upstreamClient, security.NewMessageSanitizer(), collector, log)

	sessions := auth.NewSessionManager(cfg.NextAuthSecret, time.Duration(cfg.SessionMaxAge)*time.Second)
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  strings.TrimRight(cfg.NextAuthURL, "/") + "/api/auth/callback/google",
	})

	// 3. ステータスチェックとモニター
	checker := newChecker(cfg, collector)
	monitor := status.NewMonitor(checker, cfg.StatusMonitorSchedule, cfg.StatusCheckTimeout*2, log)
	if err := monitor.Start(); err != nil {
		return err
	}

	// 4. ルーターの構築
	loginLimiter := middleware.NewRateLimiter(middleware.LoginRateLimiterConfig(cfg.RateLimitLogin))
	defer loginLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		LoginRateLimiter:  loginLimiter,
		TrustProxyHeaders: cfg.TrustedProxy,
		Metrics:           collector,
		Gatherer:          reg,
		AuthService:       authService,
		Sessions:          sessions,
		OAuthProvider:     oauthProvider,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:            cfg.NextAuthURL,
			CookieDomain:       cfg.CookieDomain,
			CookieSecure:       cfg.CookieSecure,
			SessionMaxAge:      cfg.SessionMaxAge,
			GoogleClientID:     cfg.GoogleClientID,
			GoogleClientSecret: cfg.GoogleClientSecret,
			NextAuthSecret:     cfg.NextAuthSecret,
		},
		StatusChecker: checker,
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LoginTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilSignal(server, func(ctx context.Context) {
		monitor.Stop(ctx)
	})
}

// runMonitor はステータスモニターのみを起動する。
// /metrics と /health だけを公開し、ゲージをPrometheusから収集できるようにする。
func runMonitor(cfg *config.Config) error {
	log := slog.Default()

	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	checker := newChecker(cfg, collector)
	monitor := status.NewMonitor(checker, cfg.StatusMonitorSchedule, cfg.StatusCheckTimeout*2, log)
	if err := monitor.Start(); err != nil {
		return err
	}

	// 起動直後に1回実行してゲージを初期化する
	go monitor.RunOnce(context.Background())

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.SetupMetricsRoute(reg))
	mux.HandleFunc("/health", handler.Health)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilSignal(server, func(ctx context.Context) {
		monitor.Stop(ctx)
	})
}

// runStatus はヘルスチェックを1回実行し、結果のJSONをwに書き出す。
// 全サービスに到達できた場合のみnilを返す。
func runStatus(ctx context.Context, cfg *config.Config, w io.Writer) error {
	checker := newChecker(cfg, nil)
	report := checker.Check(ctx)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write status report: %w", err)
	}

	if report.Status != model.StatusOperational {
		return ErrNotOperational
	}
	return nil
}

// serveUntilSignal はサーバーを起動し、SIGINTまたはSIGTERMを受信するまでブロックする。
// 受信後はonShutdownを呼んでからサーバーを停止する。
func serveUntilSignal(server *http.Server, onShutdown func(ctx context.Context)) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTPサーバーを起動します", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}

	slog.Info("シャットダウンを開始します")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("サーバーを停止しました")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
